package timer

import (
	"errors"
	"testing"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateOff, "OFF"},
		{StateOn, "ON"},
		{StatePendingAdd, "PENDING_ADD"},
		{StatePaused, "PAUSED"},
		{StatePendingRemove, "PENDING_REMOVE"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", uint8(tt.state), got, tt.want)
		}
	}
}

func TestParseKind_RoundTrip(t *testing.T) {
	for _, k := range []Kind{KindSingle, KindPeriodic, KindPreDelayPeriodic} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = (%v, %v), want %v", k.String(), got, err, k)
		}
	}
	if _, err := ParseKind("cron"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ParseKind(cron) err = %v, want ErrInvalidKind", err)
	}
}

func TestSlotError_Message(t *testing.T) {
	err := &SlotError{Op: "pause", ID: 7, Err: ErrInvalidSlot}
	want := "pause slot 7: timer: invalid slot"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
