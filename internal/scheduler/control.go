package scheduler

import (
	"fmt"

	"github.com/me/ticksched/pkg/model"
	"github.com/me/ticksched/pkg/timer"
)

// loopControl implements Controller for code already running on the loop
// goroutine.
type loopControl struct {
	l *Loop
}

func (c *loopControl) AddSpec(spec model.TaskSpec) (int, error) {
	id, err := c.l.addSpec(spec)
	return int(id), err
}

// AddTask re-registers a known task, e.g. a single task that already fired.
func (c *loopControl) AddTask(name string) error {
	spec, ok := c.l.specs[name]
	if !ok {
		return fmt.Errorf("add %s: %w", name, ErrTaskNotFound)
	}
	_, err := c.l.addSpec(spec)
	return err
}

func (c *loopControl) PauseTask(name string) error {
	return c.l.control("pause", name, c.l.sched.PauseTask)
}

func (c *loopControl) ContinueTask(name string) error {
	return c.l.control("continue", name, c.l.sched.ContinueTask)
}

func (c *loopControl) DisableTask(name string) error {
	return c.l.control("disable", name, c.l.sched.DisableTask)
}

func (l *Loop) control(op, name string, fn func(timer.SlotID) error) error {
	id, ok := l.lookup(name)
	if !ok {
		return fmt.Errorf("%s %s: %w", op, name, ErrTaskNotFound)
	}
	if err := fn(id); err != nil {
		return fmt.Errorf("%s %s: %w", op, name, err)
	}
	l.logger.Debug("task control", "op", op, "task", name, "slot", int(id))
	return nil
}

// addSpec registers spec and remembers it by name. A name whose previous slot
// is pending removal may be registered again.
func (l *Loop) addSpec(spec model.TaskSpec) (timer.SlotID, error) {
	if l.system[spec.Name] {
		return timer.NoSlot, fmt.Errorf("add %s: %w", spec.Name, ErrTaskExists)
	}
	if id, ok := l.lookup(spec.Name); ok {
		if info, _ := l.sched.Slot(id); info.State != timer.StatePendingRemove {
			return timer.NoSlot, fmt.Errorf("add %s: %w", spec.Name, ErrTaskExists)
		}
	}

	act, err := l.actions.Build(spec.Name, spec.Action)
	if err != nil {
		return timer.NoSlot, err
	}
	cb := l.callback(spec.Name, act)

	var id timer.SlotID
	if spec.HasPredelay() {
		id, err = l.sched.AddTaskWithPredelay(ms(spec.PredelayMs), ms(spec.IntervalMs), cb)
	} else {
		kind, kerr := timer.ParseKind(string(spec.Kind))
		if kerr != nil {
			return timer.NoSlot, kerr
		}
		id, err = l.sched.AddTask(ms(spec.IntervalMs), kind, cb)
	}
	if err != nil {
		return timer.NoSlot, fmt.Errorf("add %s: %w", spec.Name, err)
	}

	l.bind(spec.Name, id)
	if _, known := l.specs[spec.Name]; !known {
		l.specOrder = append(l.specOrder, spec.Name)
	}
	l.specs[spec.Name] = spec
	l.tasksDirty = true

	if spec.Paused {
		if err := l.sched.PauseTask(id); err != nil {
			return id, fmt.Errorf("pause %s: %w", spec.Name, err)
		}
	}
	l.logger.Debug("task registered", "task", spec.Name, "slot", int(id), "kind", spec.Kind,
		"interval_ms", spec.IntervalMs, "predelay_ms", spec.PredelayMs, "paused", spec.Paused)
	return id, nil
}

func (l *Loop) bind(name string, id timer.SlotID) {
	l.names[name] = id
	l.slotNames[id] = name
}

func (l *Loop) unbind(name string, id timer.SlotID) {
	if l.names[name] == id {
		delete(l.names, name)
	}
	l.slotNames[id] = ""
}

// lookup resolves a name to its slot if the slot is still occupied by that task.
func (l *Loop) lookup(name string) (timer.SlotID, bool) {
	id, ok := l.names[name]
	if !ok || l.slotNames[id] != name {
		return timer.NoSlot, false
	}
	if info, _ := l.sched.Slot(id); info.State == timer.StateOff {
		return timer.NoSlot, false
	}
	return id, true
}
