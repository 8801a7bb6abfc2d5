package plan

import (
	"fmt"
	"strings"

	"github.com/me/ticksched/pkg/model"
)

// Validate checks plan correctness.
// It performs declarative validation only and does not mutate the plan.
// All problems are reported together in a *model.APIError.
func Validate(p *model.Plan) error {
	var errs []model.FieldError

	if p.Name == "" {
		errs = append(errs, model.FieldError{Field: "name", Message: "required"})
	}
	if p.TickPeriodMs <= 0 {
		errs = append(errs, model.FieldError{Field: "tick_period_ms", Message: "must be > 0"})
	}
	if p.Capacity <= 0 {
		errs = append(errs, model.FieldError{Field: "capacity", Message: "must be > 0"})
	} else if len(p.Tasks) > p.Capacity {
		errs = append(errs, model.FieldError{
			Field:   "tasks",
			Message: fmt.Sprintf("%d tasks exceed capacity %d", len(p.Tasks), p.Capacity),
		})
	}

	seen := make(map[string]int, len(p.Tasks))
	for i, t := range p.Tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)
		errs = append(errs, taskErrors(prefix, t)...)
		if t.Name == "" {
			continue
		}
		if prev, dup := seen[t.Name]; dup {
			errs = append(errs, model.FieldError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("duplicate of tasks[%d]", prev),
			})
			continue
		}
		seen[t.Name] = i
	}

	if len(errs) > 0 {
		return model.NewValidationError("invalid plan", errs...)
	}
	return nil
}

// ValidateTask checks a single task spec, e.g. one submitted over the API.
func ValidateTask(t model.TaskSpec) error {
	if errs := taskErrors("", t); len(errs) > 0 {
		return model.NewValidationError("invalid task", errs...)
	}
	return nil
}

func taskErrors(prefix string, t model.TaskSpec) []model.FieldError {
	field := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	var errs []model.FieldError
	if t.Name == "" {
		errs = append(errs, model.FieldError{Field: field("name"), Message: "required"})
	} else if strings.HasPrefix(t.Name, "_") {
		errs = append(errs, model.FieldError{Field: field("name"), Message: "names starting with '_' are reserved"})
	}

	kind := model.TaskKind(strings.ToLower(string(t.Kind)))
	switch kind {
	case model.TaskKindSingle, model.TaskKindPeriodic:
	case "":
		errs = append(errs, model.FieldError{Field: field("kind"), Message: "required (single or periodic)"})
	default:
		errs = append(errs, model.FieldError{Field: field("kind"), Message: fmt.Sprintf("unknown kind %q", t.Kind)})
	}

	if t.IntervalMs < 0 {
		errs = append(errs, model.FieldError{Field: field("interval_ms"), Message: "must be >= 0"})
	}
	if t.PredelayMs < 0 {
		errs = append(errs, model.FieldError{Field: field("predelay_ms"), Message: "must be >= 0"})
	}
	if t.PredelayMs > 0 && kind == model.TaskKindSingle {
		errs = append(errs, model.FieldError{Field: field("predelay_ms"), Message: "only periodic tasks take a predelay"})
	}

	switch model.ActionType(strings.ToLower(string(t.Action.Type))) {
	case "", model.ActionTypeLog:
	case model.ActionTypeScript:
		if strings.TrimSpace(t.Action.Script) == "" {
			errs = append(errs, model.FieldError{Field: field("action.script"), Message: "required for script actions"})
		}
	default:
		errs = append(errs, model.FieldError{Field: field("action.type"), Message: fmt.Sprintf("unknown action type %q", t.Action.Type)})
	}
	return errs
}
