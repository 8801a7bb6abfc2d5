package timer

// Events processes every pending tick and returns how many were processed.
// It returns 0 without doing anything when called from inside a callback.
func (s *Scheduler) Events() int {
	if s.draining {
		return 0
	}
	s.draining = true
	defer func() { s.draining = false }()

	n := 0
	for s.ticks.take() {
		if s.measureStart != nil {
			s.measureStart()
		}

		s.scan()
		s.removePending()
		s.activatePending()
		s.processed++
		n++

		if pending := s.ticks.load(); pending != 0 {
			s.overruns++
			s.logger.Warn("tick overrun", "tick", s.processed, "pending", pending)
			if s.onOverrun != nil {
				s.onOverrun()
			}
		}

		if s.measureStop != nil {
			s.measureStop()
		}
	}
	return n
}

// scan advances every On slot by one tick in index order and fires the due ones.
func (s *Scheduler) scan() {
	s.scanning = true
	s.scanDirty = false
	defer func() { s.scanning = false }()

	remaining := s.active
	for i := range s.slots {
		if remaining == 0 && !s.scanDirty {
			return
		}
		sl := &s.slots[i]
		if sl.state != StateOn {
			continue
		}
		remaining--

		if sl.kind == KindPreDelayPeriodic {
			if sl.predelay > 0 {
				sl.predelay--
			}
			if sl.predelay == 0 {
				// Re-enter through the add pass so the periodic phase starts on a tick boundary.
				sl.kind = KindPeriodic
				sl.state = StatePendingAdd
				s.active--
				s.pendingAdd++
				s.logger.Debug("task promoted", "slot", i)
			}
			continue
		}

		sl.elapsed++
		if sl.elapsed < sl.interval {
			continue
		}
		if sl.callback != nil {
			sl.callback(SlotID(i))
		}
		s.fires++
		sl.elapsed = 0

		// A single-shot slot is freed after its fire unless the callback
		// already disabled it, in which case the removal pass frees it.
		if sl.kind == KindSingle {
			switch sl.state {
			case StateOn:
				*sl = slot{}
				s.active--
			case StatePaused:
				*sl = slot{}
				s.paused--
			}
		}
	}
}

func (s *Scheduler) removePending() {
	for i := 0; i < len(s.slots) && s.pendingRemove > 0; i++ {
		if s.slots[i].state == StatePendingRemove {
			s.slots[i] = slot{}
			s.pendingRemove--
		}
	}
	s.pendingRemove = 0
}

func (s *Scheduler) activatePending() {
	for i := 0; i < len(s.slots) && s.pendingAdd > 0; i++ {
		if s.slots[i].state == StatePendingAdd {
			s.slots[i].state = StateOn
			s.pendingAdd--
			s.active++
		}
	}
	s.pendingAdd = 0
}
