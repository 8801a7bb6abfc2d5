package action

import (
	"github.com/me/ticksched/internal/script"
	"github.com/me/ticksched/pkg/model"
)

// LogFactory builds actions that log each fire.
type LogFactory struct{}

func (LogFactory) Type() model.ActionType { return model.ActionTypeLog }

func (LogFactory) Build(task string, spec model.ActionSpec) (Action, error) {
	msg := spec.Message
	if msg == "" {
		msg = "task fired"
	}
	return logAction{msg: msg}, nil
}

type logAction struct {
	msg string
}

func (a logAction) Fire(fc FireContext) error {
	if fc.Logger != nil {
		fc.Logger.Info(a.msg, "task", fc.Task, "slot", fc.Slot, "tick", fc.Tick)
	}
	return nil
}

// ScriptFactory compiles JavaScript actions.
type ScriptFactory struct{}

func (ScriptFactory) Type() model.ActionType { return model.ActionTypeScript }

func (ScriptFactory) Build(task string, spec model.ActionSpec) (Action, error) {
	prog, err := script.Compile(task, spec.Script)
	if err != nil {
		return nil, err
	}
	return scriptAction{prog: prog}, nil
}

type scriptAction struct {
	prog *script.Program
}

func (a scriptAction) Fire(fc FireContext) error {
	return a.prog.Run(script.Env{
		Task:    fc.Task,
		Slot:    fc.Slot,
		Tick:    fc.Tick,
		Control: fc.Control,
		Logger:  fc.Logger,
	})
}
