package timer

// SlotInfo is a copy of one slot's observable fields.
type SlotInfo struct {
	ID            SlotID
	State         State
	Kind          Kind
	IntervalTicks uint32
	ElapsedTicks  uint32
	PredelayTicks uint32
}

// Stats summarizes the table and the counters accumulated since New.
type Stats struct {
	Ticks         uint64 // logical ticks processed
	Fires         uint64 // interval matches, including those without a callback
	Overruns      uint64
	Capacity      int
	Active        int
	PendingAdd    int
	PendingRemove int
	Paused        int
	Pending       uint32 // ticks accumulated but not processed
}

// Slot returns the state of one slot. Off slots are reported, not rejected;
// only out-of-range ids fail.
func (s *Scheduler) Slot(id SlotID) (SlotInfo, error) {
	if id < 0 || int(id) >= len(s.slots) {
		return SlotInfo{}, &SlotError{Op: "inspect", ID: id, Err: ErrInvalidSlot}
	}
	return s.info(int(id)), nil
}

// Snapshot appends every occupied slot to dst and returns the result.
func (s *Scheduler) Snapshot(dst []SlotInfo) []SlotInfo {
	dst = dst[:0]
	for i := range s.slots {
		if s.slots[i].state != StateOff {
			dst = append(dst, s.info(i))
		}
	}
	return dst
}

// Stats returns the current counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:         s.processed,
		Fires:         s.fires,
		Overruns:      s.overruns,
		Capacity:      len(s.slots),
		Active:        s.active,
		PendingAdd:    s.pendingAdd,
		PendingRemove: s.pendingRemove,
		Paused:        s.paused,
		Pending:       s.ticks.load(),
	}
}

func (s *Scheduler) info(i int) SlotInfo {
	sl := &s.slots[i]
	return SlotInfo{
		ID:            SlotID(i),
		State:         sl.state,
		Kind:          sl.kind,
		IntervalTicks: sl.interval,
		ElapsedTicks:  sl.elapsed,
		PredelayTicks: sl.predelay,
	}
}
