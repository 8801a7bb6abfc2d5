package timer

import (
	"math"
	"sync/atomic"
)

// accumulator counts ticks produced by the tick source and not yet processed.
// Increments and decrements are single atomic operations so a producer on
// another goroutine can never lose or duplicate a tick. The counter saturates
// instead of wrapping.
type accumulator struct {
	n atomic.Uint32
}

func (a *accumulator) inc() {
	for {
		cur := a.n.Load()
		if cur == math.MaxUint32 {
			return
		}
		if a.n.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// take removes one tick. It reports false when none were pending.
func (a *accumulator) take() bool {
	for {
		cur := a.n.Load()
		if cur == 0 {
			return false
		}
		if a.n.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

func (a *accumulator) load() uint32 { return a.n.Load() }

func (a *accumulator) reset() { a.n.Store(0) }
