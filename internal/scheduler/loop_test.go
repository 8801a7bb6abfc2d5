package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/me/ticksched/internal/action"
	"github.com/me/ticksched/internal/clock"
	"github.com/me/ticksched/internal/logging"
	"github.com/me/ticksched/internal/store"
	"github.com/me/ticksched/pkg/model"
	"github.com/me/ticksched/pkg/timer"
)

func testSetup(t *testing.T, p *model.Plan) (*Loop, *store.SQLiteStore) {
	t.Helper()
	logger := logging.Discard()
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	l, err := NewLoop(p, action.NewDefaultRegistry(logger), st, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return l, st
}

func testPlan(capacity int, tasks ...model.TaskSpec) *model.Plan {
	return &model.Plan{Name: "test", TickPeriodMs: 10, Capacity: capacity, Tasks: tasks}
}

func periodic(name string, intervalMs int) model.TaskSpec {
	return model.TaskSpec{Name: name, Kind: model.TaskKindPeriodic, IntervalMs: intervalMs}
}

func single(name string, intervalMs int) model.TaskSpec {
	return model.TaskSpec{Name: name, Kind: model.TaskKindSingle, IntervalMs: intervalMs}
}

func withScript(spec model.TaskSpec, src string) model.TaskSpec {
	spec.Action = model.ActionSpec{Type: model.ActionTypeScript, Script: src}
	return spec
}

// step feeds and drains n ticks one at a time.
func step(t *testing.T, l *Loop, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		l.Tick()
		if got := l.Drain(context.Background()); got != 1 {
			t.Fatalf("drain processed %d ticks, want 1", got)
		}
	}
}

func begin(t *testing.T, l *Loop) {
	t.Helper()
	if err := l.Begin(context.Background()); err != nil {
		t.Fatalf("begin: %v", err)
	}
}

func fireTicks(t *testing.T, st store.Store, runID, task string) []uint64 {
	t.Helper()
	fires, _, err := st.ListFires(context.Background(), runID, model.ListOptions{Limit: 500})
	if err != nil {
		t.Fatalf("list fires: %v", err)
	}
	var ticks []uint64
	for _, f := range fires {
		if f.TaskName == task {
			ticks = append(ticks, f.Tick)
		}
	}
	return ticks
}

func equalTicks(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func slotOf(snap model.Snapshot, task string) (model.SlotView, bool) {
	for _, s := range snap.Slots {
		if s.Task == task {
			return s, true
		}
	}
	return model.SlotView{}, false
}

func TestLoop_JournalsFires(t *testing.T) {
	l, st := testSetup(t, testPlan(4, periodic("beat", 50), single("once", 30)))
	begin(t, l)

	// Tick 1 activates both tasks.
	step(t, l, 12)

	if got := fireTicks(t, st, l.RunID(), "beat"); !equalTicks(got, []uint64{6, 11}) {
		t.Errorf("beat fired at %v, want [6 11]", got)
	}
	if got := fireTicks(t, st, l.RunID(), "once"); !equalTicks(got, []uint64{4}) {
		t.Errorf("once fired at %v, want [4]", got)
	}

	snap := l.Snapshot()
	if snap.Stats.Ticks != 12 || snap.Stats.Fires != 3 {
		t.Errorf("stats = %+v, want 12 ticks and 3 fires", snap.Stats)
	}
	if _, ok := slotOf(snap, "once"); ok {
		t.Error("single task still holds a slot after firing")
	}
	if s, ok := slotOf(snap, "beat"); !ok || s.State != model.SlotStateOn || s.ElapsedTicks != 1 {
		t.Errorf("beat slot = %+v, want ON with 1 elapsed tick", s)
	}

	if err := l.Finish(context.Background(), nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	run, err := st.GetRun(context.Background(), l.RunID())
	if err != nil || run == nil {
		t.Fatalf("get run: %v %v", run, err)
	}
	if run.State != model.RunStateCompleted {
		t.Errorf("run state = %s, want COMPLETED", run.State)
	}
	if run.Ticks != 12 || run.Fires != 3 || run.FinishedAt == nil {
		t.Errorf("run = %+v", run)
	}
}

func TestLoop_RecordsOverruns(t *testing.T) {
	l, st := testSetup(t, testPlan(1, periodic("beat", 10)))
	begin(t, l)

	for i := 0; i < 3; i++ {
		l.Tick()
	}
	if n := l.Drain(context.Background()); n != 3 {
		t.Fatalf("drain processed %d ticks, want 3", n)
	}

	overruns, total, err := st.ListOverruns(context.Background(), l.RunID(), model.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list overruns: %v", err)
	}
	if total != 2 {
		t.Fatalf("overruns = %d, want 2", total)
	}
	if overruns[0].Tick != 1 || overruns[0].Pending != 2 || overruns[1].Tick != 2 || overruns[1].Pending != 1 {
		t.Errorf("overruns = %+v", overruns)
	}
	if got := l.Snapshot().Stats.Overruns; got != 2 {
		t.Errorf("stats overruns = %d, want 2", got)
	}
}

func TestLoop_ScriptDisablesOtherTask(t *testing.T) {
	l, st := testSetup(t, testPlan(4,
		periodic("worker", 10),
		withScript(single("stopper", 30), `sched.disable("worker")`),
	))
	begin(t, l)
	step(t, l, 8)

	if got := fireTicks(t, st, l.RunID(), "worker"); !equalTicks(got, []uint64{2, 3, 4}) {
		t.Errorf("worker fired at %v, want [2 3 4]", got)
	}
	if len(l.Snapshot().Slots) != 0 {
		t.Errorf("slots = %+v, want none", l.Snapshot().Slots)
	}
	if len(l.Tasks()) != 2 {
		t.Errorf("tasks = %+v, want both specs kept", l.Tasks())
	}
}

func TestLoop_ScriptReaddsSingleTask(t *testing.T) {
	l, st := testSetup(t, testPlan(4,
		single("once", 20),
		withScript(periodic("again", 50), `sched.add("once")`),
	))
	begin(t, l)
	step(t, l, 9)

	if got := fireTicks(t, st, l.RunID(), "once"); !equalTicks(got, []uint64{3, 8}) {
		t.Errorf("once fired at %v, want [3 8]", got)
	}
}

func TestLoop_PausedSpecDoesNotFire(t *testing.T) {
	spec := periodic("held", 10)
	spec.Paused = true
	l, st := testSetup(t, testPlan(2, spec))
	begin(t, l)
	step(t, l, 5)

	if got := fireTicks(t, st, l.RunID(), "held"); len(got) != 0 {
		t.Errorf("paused task fired at %v", got)
	}
	if s, ok := slotOf(l.Snapshot(), "held"); !ok || s.State != model.SlotStatePaused {
		t.Errorf("held slot = %+v, want PAUSED", s)
	}
}

func TestLoop_SystemTask(t *testing.T) {
	l, st := testSetup(t, testPlan(2, periodic("beat", 50)))

	var seen []model.StatsView
	if err := l.AddSystemTask("_status", 20*time.Millisecond, func(s model.StatsView) {
		seen = append(seen, s)
	}); err != nil {
		t.Fatalf("add system task: %v", err)
	}
	begin(t, l)
	step(t, l, 5)

	if len(seen) != 2 {
		t.Fatalf("system task ran %d times, want 2", len(seen))
	}
	if seen[0].RunID != l.RunID() || seen[0].Capacity != 2 {
		t.Errorf("stats = %+v", seen[0])
	}
	if got := fireTicks(t, st, l.RunID(), "_status"); len(got) != 0 {
		t.Errorf("system task journaled at %v", got)
	}
	if _, err := l.ctl.AddSpec(periodic("_status", 10)); !errors.Is(err, ErrTaskExists) {
		t.Errorf("AddSpec(_status) error = %v, want ErrTaskExists", err)
	}
}

type panicFactory struct{}

func (panicFactory) Type() model.ActionType { return "panic" }
func (panicFactory) Build(string, model.ActionSpec) (action.Action, error) {
	return panicAction{}, nil
}

type panicAction struct{}

func (panicAction) Fire(action.FireContext) error { panic("boom") }

func TestLoop_ActionPanicIsContained(t *testing.T) {
	logger := logging.Discard()
	reg := action.NewDefaultRegistry(logger)
	reg.Register(panicFactory{})

	spec := periodic("bad", 10)
	spec.Action = model.ActionSpec{Type: "panic"}
	l, err := NewLoop(testPlan(2, spec, periodic("good", 10)), reg, nil, DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	begin(t, l)
	step(t, l, 4)

	if got := l.Snapshot().Stats.Fires; got != 6 {
		t.Errorf("fires = %d, want 6", got)
	}
}

func TestLoop_FinishFailed(t *testing.T) {
	l, st := testSetup(t, testPlan(1, periodic("beat", 10)))
	begin(t, l)
	step(t, l, 2)

	ctx := context.Background()
	if err := l.Finish(ctx, errors.New("clock lost")); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := l.Finish(ctx, nil); err != nil {
		t.Fatalf("second finish: %v", err)
	}
	run, _ := st.GetRun(ctx, l.RunID())
	if run.State != model.RunStateFailed || run.Error != "clock lost" {
		t.Errorf("run = %+v, want FAILED with error", run)
	}
}

func TestNewLoop_RejectsOverfullPlan(t *testing.T) {
	logger := logging.Discard()
	_, err := NewLoop(testPlan(1, periodic("a", 10), periodic("b", 10)),
		action.NewDefaultRegistry(logger), nil, DefaultConfig(), logger)
	if !errors.Is(err, timer.ErrCapacityExceeded) {
		t.Errorf("error = %v, want ErrCapacityExceeded", err)
	}
}

// startLoop runs l on a manual clock and returns a function that advances it
// n ticks and waits until they have been drained.
func startLoop(t *testing.T, l *Loop) func(n int) {
	t.Helper()
	src := clock.NewManual(l)
	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(context.Background(), src) }()
	// Begin resets the tick counter, so wait until the loop is serving requests.
	if err := l.Do(context.Background(), func(Controller) error { return nil }); err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() {
		l.Stop()
		if err := <-errCh; err != nil {
			t.Errorf("start returned %v", err)
		}
	})

	return func(n int) {
		t.Helper()
		want := l.Snapshot().Stats.Ticks + uint64(n)
		src.Advance(n)
		deadline := time.Now().Add(2 * time.Second)
		for l.Snapshot().Stats.Ticks < want {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for tick %d", want)
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func TestLoop_ControlByName(t *testing.T) {
	l, _ := testSetup(t, testPlan(2, periodic("beat", 50)))
	advance := startLoop(t, l)
	ctx := context.Background()

	advance(1)

	if err := l.PauseTask(ctx, "beat"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if s, _ := slotOf(l.Snapshot(), "beat"); s.State != model.SlotStatePaused {
		t.Errorf("state after pause = %s, want PAUSED", s.State)
	}
	if err := l.ContinueTask(ctx, "beat"); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if s, _ := slotOf(l.Snapshot(), "beat"); s.State != model.SlotStateOn {
		t.Errorf("state after continue = %s, want ON", s.State)
	}

	if err := l.PauseTask(ctx, "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("pause unknown error = %v, want ErrTaskNotFound", err)
	}

	res, err := l.AddTask(ctx, single("extra", 10))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Name != "extra" || res.Slot != 1 {
		t.Errorf("add result = %+v", res)
	}
	if _, err := l.AddTask(ctx, periodic("beat", 10)); !errors.Is(err, ErrTaskExists) {
		t.Errorf("duplicate add error = %v, want ErrTaskExists", err)
	}
	if _, err := l.AddTask(ctx, periodic("more", 10)); !errors.Is(err, timer.ErrCapacityExceeded) {
		t.Errorf("add to full table error = %v, want ErrCapacityExceeded", err)
	}

	if err := l.DisableTask(ctx, "beat"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if s, _ := slotOf(l.Snapshot(), "beat"); s.State != model.SlotStatePendingRemove {
		t.Errorf("state after disable = %s, want PENDING_REMOVE", s.State)
	}

	advance(1)

	if err := l.PauseTask(ctx, "beat"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("pause after removal error = %v, want ErrTaskNotFound", err)
	}
	if _, err := l.AddTask(ctx, periodic("beat", 10)); err != nil {
		t.Errorf("re-add after removal: %v", err)
	}
}

func TestLoop_StopWithoutStart(t *testing.T) {
	l, _ := testSetup(t, testPlan(1, periodic("beat", 10)))

	done := make(chan error, 1)
	go func() { done <- l.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a loop that was never started")
	}

	if err := l.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
	if err := l.Start(context.Background(), clock.NewManual(l)); !errors.Is(err, ErrStopped) {
		t.Errorf("start after stop error = %v, want ErrStopped", err)
	}
	if err := l.PauseTask(context.Background(), "beat"); !errors.Is(err, ErrStopped) {
		t.Errorf("pause after stop error = %v, want ErrStopped", err)
	}
}

func TestLoop_StoppedRejectsRequests(t *testing.T) {
	l, st := testSetup(t, testPlan(1, periodic("beat", 10)))
	src := clock.NewManual(l)
	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(context.Background(), src) }()

	// A round trip guarantees the loop is running before it is stopped.
	if err := l.Do(context.Background(), func(Controller) error { return nil }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("start returned %v", err)
	}

	if err := l.PauseTask(context.Background(), "beat"); !errors.Is(err, ErrStopped) {
		t.Errorf("pause after stop error = %v, want ErrStopped", err)
	}
	run, _ := st.GetRun(context.Background(), l.RunID())
	if run == nil || run.State != model.RunStateCompleted {
		t.Errorf("run = %+v, want COMPLETED", run)
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	l, _ := testSetup(t, testPlan(1, periodic("beat", 10)))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(ctx, clock.NewManual(l)) }()

	if err := l.Do(context.Background(), func(Controller) error { return nil }); err != nil {
		t.Fatalf("do: %v", err)
	}
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
