// Package action maps task action specs to the code that runs when a task fires.
package action

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/me/ticksched/internal/script"
	"github.com/me/ticksched/pkg/model"
)

// ErrInvalidAction wraps every error from Build.
var ErrInvalidAction = errors.New("invalid action")

// FireContext describes one fire of a task.
type FireContext struct {
	Task    string
	Slot    int
	Tick    uint64
	Control script.Control
	Logger  *slog.Logger
}

// Action runs when a task fires. Fire is called on the scheduler goroutine
// and must not block.
type Action interface {
	Fire(fc FireContext) error
}

// Factory builds the Action for one task spec.
type Factory interface {
	Type() model.ActionType
	Build(task string, spec model.ActionSpec) (Action, error)
}

// Registry maps ActionType values to their Factory implementations.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	factories map[model.ActionType]Factory
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[model.ActionType]Factory),
		logger:    logger.With("component", "action-registry"),
	}
}

// NewDefaultRegistry creates a Registry with the log and script actions.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(LogFactory{})
	r.Register(ScriptFactory{})
	return r
}

// Register adds a Factory to the registry, keyed by its Type().
func (r *Registry) Register(f Factory) {
	t := f.Type()
	r.factories[t] = f
	r.logger.Debug("action registered", "type", t)
}

// Build returns the Action for spec. An empty type builds a log action.
func (r *Registry) Build(task string, spec model.ActionSpec) (Action, error) {
	t := spec.Type
	if t == "" {
		t = model.ActionTypeLog
	}
	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("%w: no action registered for type %q", ErrInvalidAction, t)
	}
	a, err := f.Build(task, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s action for %s: %w", ErrInvalidAction, t, task, err)
	}
	return a, nil
}
