// Package clock provides tick sources for a scheduler: a wall-clock Ticker
// that plays the role of a timer interrupt, and a Manual source for
// deterministic runs.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives ticks. It must be safe to call from the source's goroutine.
type Sink interface {
	Tick()
}

// Source produces ticks into a Sink and signals on C after each one.
// C is coalescing: one pending signal stands for any number of ticks.
type Source interface {
	C() <-chan struct{}
	Start()
	Stop()
}

// Ticker calls Sink.Tick every period from its own goroutine.
type Ticker struct {
	period time.Duration
	sink   Sink
	notify chan struct{}
	count  atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewTicker creates a ticker. It does not run until Start is called.
func NewTicker(period time.Duration, sink Sink) *Ticker {
	return &Ticker{
		period: period,
		sink:   sink,
		notify: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// C returns the notification channel.
func (t *Ticker) C() <-chan struct{} { return t.notify }

// Count returns the number of ticks produced so far.
func (t *Ticker) Count() uint64 { return t.count.Load() }

// Start launches the tick goroutine. Calling Start more than once has no effect.
func (t *Ticker) Start() {
	t.startOnce.Do(func() {
		go t.run()
	})
}

func (t *Ticker) run() {
	defer close(t.doneCh)
	tk := time.NewTicker(t.period)
	defer tk.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-tk.C:
			t.sink.Tick()
			t.count.Add(1)
			signal(t.notify)
		}
	}
}

// Stop halts the tick goroutine and waits for it to exit. It is safe to call
// Stop without Start and to call it more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	started := true
	t.startOnce.Do(func() { started = false })
	if started {
		<-t.doneCh
	}
}

// Manual produces ticks only when Advance is called.
type Manual struct {
	sink   Sink
	notify chan struct{}
	count  atomic.Uint64
}

// NewManual creates a manual source feeding sink.
func NewManual(sink Sink) *Manual {
	return &Manual{sink: sink, notify: make(chan struct{}, 1)}
}

// C returns the notification channel.
func (m *Manual) C() <-chan struct{} { return m.notify }

// Start is a no-op.
func (m *Manual) Start() {}

// Stop is a no-op.
func (m *Manual) Stop() {}

// Count returns the number of ticks produced so far.
func (m *Manual) Count() uint64 { return m.count.Load() }

// Advance delivers n ticks to the sink, then signals once.
func (m *Manual) Advance(n int) {
	if n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		m.sink.Tick()
	}
	m.count.Add(uint64(n))
	signal(m.notify)
}

// signal does a non-blocking send so the tick path never waits on the consumer.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
