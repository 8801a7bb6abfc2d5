package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/me/ticksched/internal/action"
	"github.com/me/ticksched/internal/clock"
	"github.com/me/ticksched/internal/store"
	"github.com/me/ticksched/pkg/model"
	"github.com/me/ticksched/pkg/timer"
)

// Config holds loop configuration.
type Config struct {
	// CheckpointTicks is how often (in processed ticks) the run record is
	// updated with the current counters. Zero only writes it at the end.
	CheckpointTicks uint64
	// JournalFires records every fire of a plan task in the store.
	JournalFires bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{CheckpointTicks: 1000, JournalFires: true}
}

type request struct {
	fn    func(c Controller) error
	reply chan error
}

// Loop owns a timer.Scheduler built from a plan. Its goroutine is the only
// one that calls Events or the control API; other goroutines send requests
// through Do and read the snapshot published after each drain.
type Loop struct {
	sched   *timer.Scheduler
	plan    *model.Plan
	actions *action.Registry
	store   store.Store
	config  Config
	logger  *slog.Logger
	ctl     *loopControl

	specs     map[string]model.TaskSpec
	specOrder []string
	names     map[string]timer.SlotID
	slotNames []string
	system    map[string]bool

	run       *model.Run
	tick      uint64
	tickStart time.Time
	maxTick   time.Duration
	lastCheck uint64

	fires    []model.Fire
	overruns []model.Overrun
	onFire   []func(model.Fire)
	slotBuf  []timer.SlotInfo

	reqCh    chan request
	stopCh   chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	mu         sync.RWMutex
	snap       model.Snapshot
	tasks      []model.TaskSpec
	tasksDirty bool
}

// NewLoop builds the task table for p and registers its tasks. Tasks become
// active on the first processed tick.
func NewLoop(p *model.Plan, reg *action.Registry, st store.Store, cfg Config, logger *slog.Logger) (*Loop, error) {
	l := &Loop{
		plan:      p,
		actions:   reg,
		store:     st,
		config:    cfg,
		logger:    logger.With("component", "scheduler"),
		specs:     make(map[string]model.TaskSpec, len(p.Tasks)),
		names:     make(map[string]timer.SlotID, p.Capacity),
		slotNames: make([]string, p.Capacity),
		system:    make(map[string]bool),
		reqCh:     make(chan request),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	l.ctl = &loopControl{l: l}

	sched, err := timer.New(
		timer.Config{Capacity: p.Capacity, TickPeriod: ms(p.TickPeriodMs)},
		timer.WithMeasureHooks(l.beginTick, l.endTick),
		timer.WithOverrunHook(l.overrun),
		timer.WithLogger(logger.With("component", "timer")),
	)
	if err != nil {
		return nil, err
	}
	l.sched = sched
	l.run = &model.Run{
		ID:           "run_" + uuid.New().String(),
		PlanName:     p.Name,
		TickPeriodMs: p.TickPeriodMs,
		Capacity:     p.Capacity,
		State:        model.RunStateRunning,
	}

	for _, spec := range p.Tasks {
		if _, err := l.addSpec(spec); err != nil {
			return nil, fmt.Errorf("register task %s: %w", spec.Name, err)
		}
	}
	l.publish()
	return l, nil
}

// RunID returns the id of the run this loop journals into.
func (l *Loop) RunID() string { return l.run.ID }

// Tick feeds one tick into the engine. It is safe from any goroutine and
// makes Loop usable as a clock.Sink.
func (l *Loop) Tick() { l.sched.Tick() }

// OnFire registers an observer called for every journaled fire. It must be
// called before the loop starts.
func (l *Loop) OnFire(fn func(model.Fire)) {
	l.onFire = append(l.onFire, fn)
}

// AddSystemTask registers a periodic task that is not part of the plan and is
// not journaled. fn receives the counters as of the tick being processed and
// must not block. It must be called before the loop starts.
func (l *Loop) AddSystemTask(name string, interval time.Duration, fn func(model.StatsView)) error {
	id, err := l.sched.AddTask(interval, timer.KindPeriodic, func(timer.SlotID) {
		fn(l.statsView())
	})
	if err != nil {
		return fmt.Errorf("add system task %s: %w", name, err)
	}
	l.bind(name, id)
	l.system[name] = true
	l.publish()
	return nil
}

// Begin records the start of the run.
func (l *Loop) Begin(ctx context.Context) error {
	l.run.StartedAt = time.Now().UTC()
	l.sched.ResetTicks()
	if l.store != nil {
		if err := l.store.CreateRun(ctx, l.run); err != nil {
			return fmt.Errorf("create run: %w", err)
		}
	}
	l.logger.Info("run started", "run_id", l.run.ID, "plan", l.plan.Name,
		"tick_period_ms", l.plan.TickPeriodMs, "capacity", l.plan.Capacity, "tasks", len(l.specs))
	return nil
}

// Drain processes all pending ticks, writes the journal and publishes a new
// snapshot. It returns the number of ticks processed.
func (l *Loop) Drain(ctx context.Context) int {
	n := l.sched.Events()
	if n == 0 {
		return 0
	}
	l.flush(ctx)
	if l.config.CheckpointTicks > 0 && l.tick-l.lastCheck >= l.config.CheckpointTicks {
		l.checkpoint(ctx)
	}
	l.publish()
	return n
}

// Finish records the end of the run. runErr marks the run failed. It is
// idempotent.
func (l *Loop) Finish(ctx context.Context, runErr error) error {
	if l.run.State.IsTerminal() {
		return nil
	}
	l.flush(ctx)

	next := model.RunStateCompleted
	if runErr != nil {
		next = model.RunStateFailed
		l.run.Error = runErr.Error()
	}
	if !l.run.State.CanTransitionTo(next) {
		return &model.InvalidTransitionError{Entity: "run", ID: l.run.ID, From: string(l.run.State), To: string(next)}
	}
	now := time.Now().UTC()
	l.run.State = next
	l.run.FinishedAt = &now
	l.fillCounters()

	l.logger.Info("run finished", "run_id", l.run.ID, "state", l.run.State,
		"ticks", l.run.Ticks, "fires", l.run.Fires, "overruns", l.run.Overruns)

	if l.store == nil {
		return nil
	}
	if err := l.store.UpdateRun(ctx, l.run); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Start runs the loop on the calling goroutine, draining whenever src signals
// and applying control requests in between. It blocks until ctx is cancelled
// or Stop is called. A loop runs once: Start after Start or Stop returns
// ErrStopped.
func (l *Loop) Start(ctx context.Context, src clock.Source) error {
	first := false
	l.startOnce.Do(func() { first = true })
	if !first {
		return ErrStopped
	}
	defer close(l.doneCh)

	if err := l.Begin(ctx); err != nil {
		return err
	}
	src.Start()
	defer src.Stop()

	final := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping (context cancelled)")
			if err := l.Finish(final, nil); err != nil {
				l.logger.Error("finish run", "error", err)
			}
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("scheduler stopping (stop called)")
			return l.Finish(final, nil)
		case <-src.C():
			l.Drain(ctx)
		case req := <-l.reqCh:
			req.reply <- l.apply(req.fn)
			l.publish()
		}
	}
}

// Stop shuts down the loop and waits for it to exit. It is safe to call Stop
// without Start and to call it more than once.
func (l *Loop) Stop() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	started := true
	l.startOnce.Do(func() {
		started = false
		close(l.doneCh)
	})
	if started {
		<-l.doneCh
	}
	return nil
}

// Do runs fn on the loop goroutine and returns its error.
func (l *Loop) Do(ctx context.Context, fn func(c Controller) error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case l.reqCh <- req:
	case <-l.doneCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) apply(fn func(c Controller) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("control request panicked: %v", r)
			l.logger.Error("control request panicked", "panic", r)
		}
	}()
	return fn(l.ctl)
}

// --- engine hooks, called from inside Events ---

func (l *Loop) beginTick() {
	l.tick++
	l.tickStart = time.Now()
}

func (l *Loop) endTick() {
	if d := time.Since(l.tickStart); d > l.maxTick {
		l.maxTick = d
	}
}

func (l *Loop) overrun() {
	l.overruns = append(l.overruns, model.Overrun{
		RunID:   l.run.ID,
		Tick:    l.tick,
		Pending: l.sched.PendingTicks(),
		At:      time.Now().UTC(),
	})
}

// callback wraps a task action. Action errors and panics are logged and never
// reach the engine.
func (l *Loop) callback(name string, act action.Action) timer.Callback {
	return func(id timer.SlotID) {
		f := model.Fire{RunID: l.run.ID, Tick: l.tick, SlotID: int(id), TaskName: name, At: time.Now().UTC()}
		if l.config.JournalFires {
			l.fires = append(l.fires, f)
		}
		for _, fn := range l.onFire {
			fn(f)
		}
		l.fire(name, id, act)
	}
}

func (l *Loop) fire(name string, id timer.SlotID, act action.Action) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("action panicked", "task", name, "slot", int(id), "tick", l.tick, "panic", r)
		}
	}()
	err := act.Fire(action.FireContext{
		Task:    name,
		Slot:    int(id),
		Tick:    l.tick,
		Control: l.ctl,
		Logger:  l.logger,
	})
	if err != nil {
		l.logger.Warn("action failed", "task", name, "slot", int(id), "tick", l.tick, "error", err)
	}
}

// --- journal and snapshots ---

func (l *Loop) flush(ctx context.Context) {
	if l.store == nil {
		l.fires = l.fires[:0]
		l.overruns = l.overruns[:0]
		return
	}
	if err := l.store.RecordFires(ctx, l.fires); err != nil {
		l.logger.Error("record fires", "count", len(l.fires), "error", err)
	}
	if err := l.store.RecordOverruns(ctx, l.overruns); err != nil {
		l.logger.Error("record overruns", "count", len(l.overruns), "error", err)
	}
	l.fires = l.fires[:0]
	l.overruns = l.overruns[:0]
}

func (l *Loop) checkpoint(ctx context.Context) {
	l.lastCheck = l.tick
	if l.store == nil {
		return
	}
	l.fillCounters()
	if err := l.store.UpdateRun(ctx, l.run); err != nil {
		l.logger.Error("checkpoint run", "run_id", l.run.ID, "error", err)
	}
}

func (l *Loop) fillCounters() {
	st := l.sched.Stats()
	l.run.Ticks = st.Ticks
	l.run.Fires = st.Fires
	l.run.Overruns = st.Overruns
}

func (l *Loop) statsView() model.StatsView {
	st := l.sched.Stats()
	return model.StatsView{
		RunID:         l.run.ID,
		TickPeriodMs:  l.plan.TickPeriodMs,
		Ticks:         st.Ticks,
		Fires:         st.Fires,
		Overruns:      st.Overruns,
		Capacity:      st.Capacity,
		Active:        st.Active,
		PendingAdd:    st.PendingAdd,
		PendingRemove: st.PendingRemove,
		Paused:        st.Paused,
		PendingTicks:  st.Pending,
		MaxTickMicros: l.maxTick.Microseconds(),
	}
}

// publish sweeps names of freed slots and stores a fresh snapshot for readers.
func (l *Loop) publish() {
	l.slotBuf = l.sched.Snapshot(l.slotBuf)
	for id, name := range l.slotNames {
		if name == "" {
			continue
		}
		if info, _ := l.sched.Slot(timer.SlotID(id)); info.State == timer.StateOff {
			l.unbind(name, timer.SlotID(id))
		}
	}

	slots := make([]model.SlotView, 0, len(l.slotBuf))
	for _, info := range l.slotBuf {
		slots = append(slots, model.SlotView{
			ID:            int(info.ID),
			Task:          l.slotNames[info.ID],
			State:         model.SlotState(info.State.String()),
			Kind:          model.TaskKind(info.Kind.String()),
			IntervalTicks: info.IntervalTicks,
			ElapsedTicks:  info.ElapsedTicks,
			PredelayTicks: info.PredelayTicks,
		})
	}
	snap := model.Snapshot{Stats: l.statsView(), Slots: slots}

	var tasks []model.TaskSpec
	if l.tasksDirty {
		tasks = make([]model.TaskSpec, 0, len(l.specOrder))
		for _, name := range l.specOrder {
			tasks = append(tasks, l.specs[name])
		}
	}

	l.mu.Lock()
	l.snap = snap
	if l.tasksDirty {
		l.tasks = tasks
		l.tasksDirty = false
	}
	l.mu.Unlock()
}

// --- Engine ---

// Snapshot returns the table as of the last drain or control request.
func (l *Loop) Snapshot() model.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Tasks returns every task spec known to the loop, registered or not.
func (l *Loop) Tasks() []model.TaskSpec {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tasks
}

// AddTask registers spec on the loop goroutine.
func (l *Loop) AddTask(ctx context.Context, spec model.TaskSpec) (model.AddTaskResult, error) {
	var slot int
	err := l.Do(ctx, func(c Controller) error {
		var err error
		slot, err = c.AddSpec(spec)
		return err
	})
	if err != nil {
		return model.AddTaskResult{}, err
	}
	return model.AddTaskResult{Name: spec.Name, Slot: slot}, nil
}

// PauseTask pauses the named task on the loop goroutine.
func (l *Loop) PauseTask(ctx context.Context, name string) error {
	return l.Do(ctx, func(c Controller) error { return c.PauseTask(name) })
}

// ContinueTask resumes the named task on the loop goroutine.
func (l *Loop) ContinueTask(ctx context.Context, name string) error {
	return l.Do(ctx, func(c Controller) error { return c.ContinueTask(name) })
}

// DisableTask disables the named task on the loop goroutine.
func (l *Loop) DisableTask(ctx context.Context, name string) error {
	return l.Do(ctx, func(c Controller) error { return c.DisableTask(name) })
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
