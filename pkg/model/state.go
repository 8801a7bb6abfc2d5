package model

// SlotState is the string form of a task slot's lifecycle state, used in the
// HTTP API, the plan files and the journal.
type SlotState string

const (
	SlotStateOff           SlotState = "OFF"
	SlotStateOn            SlotState = "ON"
	SlotStatePendingAdd    SlotState = "PENDING_ADD"
	SlotStatePaused        SlotState = "PAUSED"
	SlotStatePendingRemove SlotState = "PENDING_REMOVE"
)

// String returns the string representation of the slot state.
func (s SlotState) String() string {
	return string(s)
}

// IsOccupied returns true if the slot holds a task.
func (s SlotState) IsOccupied() bool {
	return s != SlotStateOff && s != ""
}

// TaskKind is the string form of a task's firing behaviour.
type TaskKind string

const (
	TaskKindSingle           TaskKind = "single"
	TaskKindPeriodic         TaskKind = "periodic"
	TaskKindPreDelayPeriodic TaskKind = "predelay_periodic"
)

// String returns the string representation of the task kind.
func (k TaskKind) String() string {
	return string(k)
}

// RunState represents the lifecycle state of a scheduler Run.
type RunState string

const (
	RunStateRunning   RunState = "RUNNING"
	RunStateCompleted RunState = "COMPLETED"
	RunStateFailed    RunState = "FAILED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed:
		return true
	}
	return false
}

// ValidRunTransitions defines the allowed state transitions for Runs.
var ValidRunTransitions = map[RunState][]RunState{
	RunStateRunning: {RunStateCompleted, RunStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ActionType identifies which action implementation runs when a task fires.
type ActionType string

const (
	ActionTypeLog    ActionType = "log"
	ActionTypeScript ActionType = "script"
)
