package timer

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned by AddTask and AddTaskWithPredelay when
	// every slot is occupied. The table is left unchanged.
	ErrCapacityExceeded = errors.New("timer: task table full")

	// ErrInvalidSlot is returned by control operations that reference an id
	// outside the table or a slot that is currently Off.
	ErrInvalidSlot = errors.New("timer: invalid slot")

	// ErrInvalidConfig is returned by New for a non-positive capacity or tick period.
	ErrInvalidConfig = errors.New("timer: invalid config")

	// ErrInvalidKind is returned by AddTask for kinds it cannot register.
	ErrInvalidKind = errors.New("timer: invalid task kind")

	// ErrInvalidInterval is returned for negative intervals or predelays.
	ErrInvalidInterval = errors.New("timer: invalid interval")
)

// SlotError records a failed control operation on a slot.
type SlotError struct {
	Op  string
	ID  SlotID
	Err error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s slot %d: %v", e.Op, e.ID, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}
