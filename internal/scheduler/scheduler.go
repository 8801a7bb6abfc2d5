package scheduler

import (
	"context"
	"errors"

	"github.com/me/ticksched/internal/script"
	"github.com/me/ticksched/pkg/model"
)

var (
	// ErrTaskNotFound is returned for names that are not currently registered.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskExists is returned when adding a name whose task is still registered.
	ErrTaskExists = errors.New("task already registered")
	// ErrStopped is returned by requests sent after the loop has exited.
	ErrStopped = errors.New("scheduler stopped")
)

// Engine is the goroutine-safe view of a running scheduler used by the HTTP
// API. Control calls are applied on the loop goroutine between two drains.
type Engine interface {
	Snapshot() model.Snapshot
	Tasks() []model.TaskSpec
	RunID() string

	AddTask(ctx context.Context, spec model.TaskSpec) (model.AddTaskResult, error)
	PauseTask(ctx context.Context, name string) error
	ContinueTask(ctx context.Context, name string) error
	DisableTask(ctx context.Context, name string) error
}

// Controller drives tasks by name. It is only valid on the loop goroutine:
// inside task actions, or inside a function passed to Loop.Do.
type Controller interface {
	script.Control
	AddSpec(spec model.TaskSpec) (int, error)
}
