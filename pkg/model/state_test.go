package model

import "testing"

func TestSlotState_IsOccupied(t *testing.T) {
	tests := []struct {
		state    SlotState
		occupied bool
	}{
		{SlotStateOff, false},
		{"", false},
		{SlotStateOn, true},
		{SlotStatePendingAdd, true},
		{SlotStatePaused, true},
		{SlotStatePendingRemove, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsOccupied(); got != tt.occupied {
			t.Errorf("SlotState(%q).IsOccupied() = %v, want %v", tt.state, got, tt.occupied)
		}
	}
}

func TestRunState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    RunState
		terminal bool
	}{
		{RunStateRunning, false},
		{RunStateCompleted, true},
		{RunStateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("RunState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestRunState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  RunState
		to    RunState
		valid bool
	}{
		{RunStateRunning, RunStateCompleted, true},
		{RunStateRunning, RunStateFailed, true},
		{RunStateCompleted, RunStateRunning, false},
		{RunStateFailed, RunStateCompleted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("RunState(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}
