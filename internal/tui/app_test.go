package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/me/ticksched/pkg/model"
)

type fakeSource struct {
	snap model.Snapshot
	err  error
}

func (f *fakeSource) Snapshot(context.Context) (model.Snapshot, error) { return f.snap, f.err }

type fakeControl struct {
	calls []string
}

func (f *fakeControl) ControlTask(_ context.Context, op, name string) error {
	f.calls = append(f.calls, op+" "+name)
	return nil
}

func sampleSnapshot() model.Snapshot {
	return model.Snapshot{
		Stats: model.StatsView{RunID: "run_x", TickPeriodMs: 10, Ticks: 120, Fires: 7, Capacity: 4, Active: 2},
		Slots: []model.SlotView{
			{ID: 0, Task: "led", State: model.SlotStateOn, Kind: model.TaskKindPeriodic, IntervalTicks: 50, ElapsedTicks: 20},
			{ID: 2, Task: "warmup", State: model.SlotStateOn, Kind: model.TaskKindPreDelayPeriodic, IntervalTicks: 10, PredelayTicks: 3},
		},
	}
}

// runCmd executes cmd and feeds its message back into m.
func runCmd(t *testing.T, m *Model, cmd tea.Cmd) *Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(*Model)
}

func TestModel_RendersSnapshot(t *testing.T) {
	src := &fakeSource{snap: sampleSnapshot()}
	m := New("blinker", src, nil, 0)
	m = runCmd(t, m, m.Init())

	view := m.View()
	for _, want := range []string{"blinker", "ticks 120", "fires 7", "slots 2/4", "led", "warmup", "predelay_periodic"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "p pause") {
		t.Error("control keys shown without a controller")
	}
}

func TestModel_ShowsError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	m := New("x", src, nil, 0)
	m = runCmd(t, m, m.Init())

	if !strings.Contains(m.View(), "connection refused") {
		t.Errorf("view missing error:\n%s", m.View())
	}

	src.err = nil
	src.snap = sampleSnapshot()
	m = runCmd(t, m, m.fetch())
	if strings.Contains(m.View(), "connection refused") {
		t.Error("error still shown after a successful refresh")
	}
}

func TestModel_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		m := New("x", &fakeSource{}, nil, 0)
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", key)
		}
	}
}

func TestModel_ControlSelected(t *testing.T) {
	ctl := &fakeControl{}
	m := New("x", &fakeSource{snap: sampleSnapshot()}, ctl, 0)
	m = runCmd(t, m, m.Init())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = runCmd(t, m, cmd)

	if len(ctl.calls) != 1 || ctl.calls[0] != "pause led" {
		t.Errorf("calls = %v, want [pause led]", ctl.calls)
	}
	if !strings.Contains(m.View(), "pause led") {
		t.Errorf("status missing from view:\n%s", m.View())
	}
}

func TestRows(t *testing.T) {
	r := rows(sampleSnapshot().Slots)
	if len(r) != 2 {
		t.Fatalf("rows = %d, want 2", len(r))
	}
	if r[0][6] != "-" || r[1][6] != "3" {
		t.Errorf("predelay columns = %q, %q", r[0][6], r[1][6])
	}
}
