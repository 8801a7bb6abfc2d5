package plan

import (
	"strings"

	"github.com/me/ticksched/pkg/model"
)

// Normalize applies post-validation normalization.
// It mutates the plan and must be called only after Validate.
func Normalize(p *model.Plan) {
	if p == nil {
		return
	}
	for i := range p.Tasks {
		NormalizeTask(&p.Tasks[i])
	}
}

// NormalizeTask lower-cases the kind and action type and defaults the action to log.
func NormalizeTask(t *model.TaskSpec) {
	t.Kind = model.TaskKind(strings.ToLower(string(t.Kind)))
	t.Action.Type = model.ActionType(strings.ToLower(string(t.Action.Type)))
	if t.Action.Type == "" {
		t.Action.Type = model.ActionTypeLog
	}
}
