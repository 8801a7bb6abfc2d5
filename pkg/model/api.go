package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions configures list queries with pagination and filtering.
type ListOptions struct {
	Limit  int
	Offset int
	State  string // Optional run state filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 500, min 1). Fire listings are long, so the
// ceiling is higher than a typical resource listing.
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// SlotView is the API representation of one occupied task slot.
type SlotView struct {
	ID            int       `json:"id"`
	Task          string    `json:"task,omitempty"`
	State         SlotState `json:"state"`
	Kind          TaskKind  `json:"kind"`
	IntervalTicks uint32    `json:"interval_ticks"`
	ElapsedTicks  uint32    `json:"elapsed_ticks"`
	PredelayTicks uint32    `json:"predelay_ticks,omitempty"`
}

// StatsView is the API representation of the scheduler counters.
type StatsView struct {
	RunID         string `json:"run_id,omitempty"`
	TickPeriodMs  int    `json:"tick_period_ms"`
	Ticks         uint64 `json:"ticks"`
	Fires         uint64 `json:"fires"`
	Overruns      uint64 `json:"overruns"`
	Capacity      int    `json:"capacity"`
	Active        int    `json:"active"`
	PendingAdd    int    `json:"pending_add"`
	PendingRemove int    `json:"pending_remove"`
	Paused        int    `json:"paused"`
	PendingTicks  uint32 `json:"pending_ticks"`
	MaxTickMicros int64  `json:"max_tick_us"`
}

// Snapshot is a consistent copy of the task table and its counters taken
// between two processed ticks.
type Snapshot struct {
	Stats StatsView  `json:"stats"`
	Slots []SlotView `json:"slots"`
}

// AddTaskResult is returned after a task has been registered.
type AddTaskResult struct {
	Name string `json:"name"`
	Slot int    `json:"slot"`
}
