// Package timer implements a cooperative, tick-driven task scheduler.
//
// A Scheduler owns a fixed-capacity table of task slots. A tick source calls
// Tick (from any goroutine, typically a hardware-timer analogue); the main loop
// calls Events, which drains every accumulated tick and, for each one, scans the
// table in index order, fires due callbacks and then reconciles deferred
// removals and additions.
//
// Slots move through Off → PendingAdd → On and leave through PendingRemove → Off.
// Additions and removals requested while the table is being scanned (for
// example from inside a callback) only take effect in the reconciliation passes
// at the end of the tick, so a task's first firing never depends on its table
// index relative to the slot that was executing when it was added.
//
// Only the tick accumulator is shared between goroutines. Everything else,
// including the control API (AddTask, PauseTask, ContinueTask, DisableTask), must
// be used from the goroutine that calls Events. Callbacks run on that goroutine
// and may call the control API reentrantly.
//
//	s, _ := timer.New(timer.Config{Capacity: 8, TickPeriod: 10 * time.Millisecond})
//	id, _ := s.AddTask(50*time.Millisecond, timer.KindPeriodic, func(id timer.SlotID) {
//		// fires every fifth tick
//	})
//	go func() { for range time.Tick(10 * time.Millisecond) { s.Tick() } }()
//	for { s.Events() }
package timer
