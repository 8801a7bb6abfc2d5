package timer

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// NoSlot is returned alongside an error by the registration functions.
const NoSlot SlotID = -1

// Config holds the engine parameters. Both are fixed for the Scheduler's lifetime.
type Config struct {
	Capacity   int           // maximum number of concurrently occupied slots
	TickPeriod time.Duration // time represented by one Tick
}

// Option configures optional Scheduler collaborators.
type Option func(*Scheduler)

// WithMeasureHooks installs hooks called immediately before and after each
// logical tick is processed. Either may be nil.
func WithMeasureHooks(start, stop func()) Option {
	return func(s *Scheduler) {
		s.measureStart = start
		s.measureStop = stop
	}
}

// WithOverrunHook installs a hook called when ticks are still pending after a
// logical tick has been processed, i.e. the tick source is outpacing Events.
func WithOverrunHook(fn func()) Option {
	return func(s *Scheduler) {
		s.onOverrun = fn
	}
}

// WithLogger sets the logger used for registration and control events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler is a fixed-capacity cooperative task table.
//
// Tick, ResetTicks and PendingTicks may be called from any goroutine. All other
// methods belong to the goroutine that calls Events.
type Scheduler struct {
	slots  []slot
	period time.Duration
	ticks  accumulator

	active        int // slots in StateOn
	pendingAdd    int
	pendingRemove int
	paused        int

	draining  bool
	scanning  bool
	scanDirty bool // the set of On slots changed during the current scan

	processed uint64
	fires     uint64
	overruns  uint64

	measureStart func()
	measureStop  func()
	onOverrun    func()
	logger       *slog.Logger
}

// New allocates the task table. No further allocation happens while ticks are processed.
func New(cfg Config, opts ...Option) (*Scheduler, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be > 0, got %d", ErrInvalidConfig, cfg.Capacity)
	}
	if cfg.TickPeriod <= 0 {
		return nil, fmt.Errorf("%w: tick period must be > 0, got %v", ErrInvalidConfig, cfg.TickPeriod)
	}

	s := &Scheduler{
		slots:  make([]slot, cfg.Capacity),
		period: cfg.TickPeriod,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Capacity returns the size of the task table.
func (s *Scheduler) Capacity() int { return len(s.slots) }

// TickPeriod returns the duration of one tick.
func (s *Scheduler) TickPeriod() time.Duration { return s.period }

// Ticks converts d to whole ticks. The remainder is discarded.
func (s *Scheduler) Ticks(d time.Duration) uint32 {
	n := d / s.period
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// Tick records one elapsed tick. It is O(1), lock-free and safe to call
// concurrently with Events.
func (s *Scheduler) Tick() { s.ticks.inc() }

// ResetTicks discards all pending ticks, e.g. to align phase before entering the main loop.
func (s *Scheduler) ResetTicks() { s.ticks.reset() }

// PendingTicks returns the number of ticks not yet processed.
func (s *Scheduler) PendingTicks() uint32 { return s.ticks.load() }

// AddTask registers a single-shot or periodic task that fires every
// interval/TickPeriod ticks. The task becomes active at the end of the tick
// currently being processed, or at the end of the next processed tick when
// called outside Events.
func (s *Scheduler) AddTask(interval time.Duration, kind Kind, cb Callback) (SlotID, error) {
	if kind != KindSingle && kind != KindPeriodic {
		return NoSlot, fmt.Errorf("%w: %s cannot be added without a predelay", ErrInvalidKind, kind)
	}
	if interval < 0 {
		return NoSlot, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	return s.register(slot{
		kind:     kind,
		callback: cb,
		interval: s.Ticks(interval),
	})
}

// AddTaskWithPredelay registers a periodic task whose periodic phase starts
// after predelay. The first fire happens predelay+interval after activation.
// A predelay shorter than one tick still costs one tick of promotion.
func (s *Scheduler) AddTaskWithPredelay(predelay, interval time.Duration, cb Callback) (SlotID, error) {
	if predelay < 0 || interval < 0 {
		return NoSlot, fmt.Errorf("%w: predelay=%v interval=%v", ErrInvalidInterval, predelay, interval)
	}
	return s.register(slot{
		kind:     KindPreDelayPeriodic,
		callback: cb,
		interval: s.Ticks(interval),
		predelay: s.Ticks(predelay),
	})
}

func (s *Scheduler) register(sl slot) (SlotID, error) {
	for i := range s.slots {
		if s.slots[i].state != StateOff {
			continue
		}
		sl.state = StatePendingAdd
		s.slots[i] = sl
		s.pendingAdd++
		s.logger.Debug("task added", "slot", i, "kind", sl.kind, "interval_ticks", sl.interval, "predelay_ticks", sl.predelay)
		return SlotID(i), nil
	}
	return NoSlot, ErrCapacityExceeded
}

// PauseTask stops an active task from counting. Pausing a task that has not
// been activated yet keeps it out of the next add pass. Pausing a paused or
// disabled task does nothing.
func (s *Scheduler) PauseTask(id SlotID) error {
	sl, err := s.lookup("pause", id)
	if err != nil {
		return err
	}
	switch sl.state {
	case StateOn:
		s.active--
		s.touch()
	case StatePendingAdd:
		s.pendingAdd--
		sl.parked = true
	default:
		return nil
	}
	sl.state = StatePaused
	s.paused++
	return nil
}

// ContinueTask resumes a paused task. Its elapsed count is kept. A task paused
// before it was activated goes back to PendingAdd and is activated by the next
// add pass. It is a no-op for tasks that are not paused.
func (s *Scheduler) ContinueTask(id SlotID) error {
	sl, err := s.lookup("continue", id)
	if err != nil {
		return err
	}
	if sl.state != StatePaused {
		return nil
	}
	s.paused--
	if sl.parked {
		sl.parked = false
		sl.state = StatePendingAdd
		s.pendingAdd++
		return nil
	}
	sl.state = StateOn
	s.active++
	s.touch()
	return nil
}

// DisableTask schedules the slot for removal. It stops firing immediately and
// is freed in the removal pass of the tick being processed (or the next one).
// Disabling an already disabled slot does nothing.
func (s *Scheduler) DisableTask(id SlotID) error {
	sl, err := s.lookup("disable", id)
	if err != nil {
		return err
	}
	switch sl.state {
	case StateOn:
		s.active--
		s.touch()
	case StatePendingAdd:
		s.pendingAdd--
	case StatePaused:
		s.paused--
	case StatePendingRemove:
		return nil
	}
	sl.state = StatePendingRemove
	s.pendingRemove++
	s.logger.Debug("task disabled", "slot", int(id))
	return nil
}

func (s *Scheduler) lookup(op string, id SlotID) (*slot, error) {
	if id < 0 || int(id) >= len(s.slots) || s.slots[id].state == StateOff {
		return nil, &SlotError{Op: op, ID: id, Err: ErrInvalidSlot}
	}
	return &s.slots[id], nil
}

// touch marks the running scan as unable to short-circuit.
func (s *Scheduler) touch() {
	if s.scanning {
		s.scanDirty = true
	}
}
