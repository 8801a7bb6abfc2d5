package timer

import "fmt"

// SlotID identifies a slot by its table index. It is stable while the slot is
// occupied and may be handed out again once the slot returns to Off.
type SlotID int

// Callback is invoked with the id of the slot that fired.
type Callback func(id SlotID)

// State is the lifecycle state of a slot.
type State uint8

const (
	StateOff State = iota
	StateOn
	StatePendingAdd
	StatePaused
	StatePendingRemove
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateOn:
		return "ON"
	case StatePendingAdd:
		return "PENDING_ADD"
	case StatePaused:
		return "PAUSED"
	case StatePendingRemove:
		return "PENDING_REMOVE"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Kind governs how a slot's counters behave.
type Kind uint8

const (
	// KindSingle fires once and frees its slot.
	KindSingle Kind = iota
	// KindPeriodic fires every interval until disabled.
	KindPeriodic
	// KindPreDelayPeriodic counts down its predelay, then becomes KindPeriodic.
	KindPreDelayPeriodic
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindPeriodic:
		return "periodic"
	case KindPreDelayPeriodic:
		return "predelay_periodic"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind converts the string form produced by Kind.String back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "single":
		return KindSingle, nil
	case "periodic":
		return KindPeriodic, nil
	case "predelay_periodic":
		return KindPreDelayPeriodic, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// slot is one entry of the task table.
type slot struct {
	state    State
	kind     Kind
	callback Callback
	interval uint32
	elapsed  uint32
	predelay uint32

	// parked is set when a task is paused before its first activation. Such a
	// task resumes through the add pass, never straight into StateOn.
	parked bool
}
