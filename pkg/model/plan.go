package model

// Plan is a named set of tasks loaded into one scheduler instance.
type Plan struct {
	Name         string     `json:"name" yaml:"name"`
	TickPeriodMs int        `json:"tick_period_ms" yaml:"tick_period_ms"`
	Capacity     int        `json:"capacity" yaml:"capacity"`
	Tasks        []TaskSpec `json:"tasks" yaml:"tasks"`
}

// TaskSpec describes one task to register. A PredelayMs greater than zero
// registers a pre-delay periodic task; Kind must then be periodic.
type TaskSpec struct {
	Name       string     `json:"name" yaml:"name"`
	Kind       TaskKind   `json:"kind" yaml:"kind"`
	IntervalMs int        `json:"interval_ms" yaml:"interval_ms"`
	PredelayMs int        `json:"predelay_ms,omitempty" yaml:"predelay_ms,omitempty"`
	Paused     bool       `json:"paused,omitempty" yaml:"paused,omitempty"`
	Action     ActionSpec `json:"action" yaml:"action"`
}

// HasPredelay reports whether the task starts with a pre-delay phase.
func (t TaskSpec) HasPredelay() bool {
	return t.PredelayMs > 0
}

// ActionSpec selects what happens when a task fires.
type ActionSpec struct {
	Type    ActionType `json:"type,omitempty" yaml:"type,omitempty"`
	Message string     `json:"message,omitempty" yaml:"message,omitempty"`
	Script  string     `json:"script,omitempty" yaml:"script,omitempty"`
}
