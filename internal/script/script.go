// Package script runs task actions written in JavaScript (goja).
//
// A script sees three globals describing the fire (task, slot, tick), a
// log(msg) function, and a sched object whose methods control other tasks
// by name:
//
//	sched.add(name)      re-registers a plan task that is not currently registered
//	sched.pause(name)
//	sched.resume(name)
//	sched.disable(name)
//
// Scripts run on the scheduler goroutine and must return quickly; a run that
// exceeds its timeout is interrupted.
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds one script run.
const DefaultTimeout = 50 * time.Millisecond

// Control is the subset of the scheduler a script may drive.
type Control interface {
	AddTask(name string) error
	PauseTask(name string) error
	ContinueTask(name string) error
	DisableTask(name string) error
}

// Env describes one fire.
type Env struct {
	Task    string
	Slot    int
	Tick    uint64
	Control Control
	Logger  *slog.Logger
}

// Program is a compiled script with its own runtime. A Program is not safe
// for concurrent use; the scheduler only runs it from its own goroutine.
type Program struct {
	name    string
	prog    *goja.Program
	vm      *goja.Runtime
	timeout time.Duration
}

// Compile parses src once so each fire only executes it.
func Compile(name, src string) (*Program, error) {
	prog, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, fmt.Errorf("compile script %s: %w", name, err)
	}
	return &Program{name: name, prog: prog, timeout: DefaultTimeout}, nil
}

// SetTimeout changes the per-run timeout. Zero disables it.
func (p *Program) SetTimeout(d time.Duration) {
	p.timeout = d
}

// Run executes the program with env bound to its globals.
func (p *Program) Run(env Env) (err error) {
	if p.vm == nil {
		p.vm = goja.New()
	}
	vm := p.vm

	if err := p.bind(vm, env); err != nil {
		return err
	}

	if p.timeout > 0 {
		timer := time.AfterFunc(p.timeout, func() {
			vm.Interrupt(fmt.Sprintf("script %s exceeded %v", p.name, p.timeout))
		})
		defer func() {
			timer.Stop()
			vm.ClearInterrupt()
		}()
	}

	if _, err := vm.RunProgram(p.prog); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return fmt.Errorf("script %s interrupted: %v", p.name, interrupted.Value())
		}
		return fmt.Errorf("script %s: %w", p.name, err)
	}
	return nil
}

func (p *Program) bind(vm *goja.Runtime, env Env) error {
	if err := vm.Set("task", env.Task); err != nil {
		return fmt.Errorf("set task: %w", err)
	}
	if err := vm.Set("slot", env.Slot); err != nil {
		return fmt.Errorf("set slot: %w", err)
	}
	if err := vm.Set("tick", env.Tick); err != nil {
		return fmt.Errorf("set tick: %w", err)
	}

	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := vm.Set("log", func(msg string) {
		logger.Info(msg, "task", env.Task, "slot", env.Slot, "tick", env.Tick)
	}); err != nil {
		return fmt.Errorf("set log: %w", err)
	}

	sched := vm.NewObject()
	for name, fn := range controlFuncs(env.Control) {
		if err := sched.Set(name, func(target string) {
			if err := fn(target); err != nil {
				panic(vm.NewGoError(err))
			}
		}); err != nil {
			return fmt.Errorf("set sched.%s: %w", name, err)
		}
	}
	if err := vm.Set("sched", sched); err != nil {
		return fmt.Errorf("set sched: %w", err)
	}
	return nil
}

func controlFuncs(c Control) map[string]func(string) error {
	if c == nil {
		unavailable := func(string) error { return errors.New("scheduler control unavailable") }
		return map[string]func(string) error{
			"add": unavailable, "pause": unavailable, "resume": unavailable, "disable": unavailable,
		}
	}
	return map[string]func(string) error{
		"add":     c.AddTask,
		"pause":   c.PauseTask,
		"resume":  c.ContinueTask,
		"disable": c.DisableTask,
	}
}
