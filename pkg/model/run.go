package model

import "time"

// Run is one execution of a plan by the daemon or the simulator.
type Run struct {
	ID           string     `json:"id"`
	PlanName     string     `json:"plan_name"`
	TickPeriodMs int        `json:"tick_period_ms"`
	Capacity     int        `json:"capacity"`
	State        RunState   `json:"state"`
	Ticks        uint64     `json:"ticks"`
	Fires        uint64     `json:"fires"`
	Overruns     uint64     `json:"overruns"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Fire records one callback invocation.
type Fire struct {
	ID       int64     `json:"id"`
	RunID    string    `json:"run_id"`
	Tick     uint64    `json:"tick"`
	SlotID   int       `json:"slot_id"`
	TaskName string    `json:"task_name"`
	At       time.Time `json:"at"`
}

// Overrun records a processed tick after which ticks were still pending.
type Overrun struct {
	ID      int64     `json:"id"`
	RunID   string    `json:"run_id"`
	Tick    uint64    `json:"tick"`
	Pending uint32    `json:"pending"`
	At      time.Time `json:"at"`
}
