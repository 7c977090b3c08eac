package worker

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateStarted, "Started"},
		{StateWaitingForInit, "WaitingForInit"},
		{StateRunning, "Running"},
		{StateTerminated, "Terminated"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	all := []State{StateIdle, StateStarted, StateWaitingForInit, StateRunning, StateTerminated}
	valid := map[[2]State]bool{
		{StateIdle, StateStarted}:           true,
		{StateStarted, StateWaitingForInit}: true,
		{StateWaitingForInit, StateRunning}: true,
		{StateRunning, StateTerminated}:     true,
	}

	for _, from := range all {
		for _, to := range all {
			want := valid[[2]State{from, to}]
			if got := canTransition(from, to); got != want {
				t.Errorf("canTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestPriority(t *testing.T) {
	tests := []struct {
		p     Priority
		valid bool
		nice  int
		name  string
	}{
		{Priority(0), false, 0, "priority(0)"},
		{MinPriority, true, 4, "min"},
		{NormPriority, true, 0, "norm"},
		{Priority(7), true, -2, "priority(7)"},
		{NearMaxPriority, true, -4, "near-max"},
		{MaxPriority, true, -5, "max"},
		{CriticalPriority, true, -5, "critical"},
		{Priority(12), false, 0, "priority(12)"},
	}

	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.valid {
			t.Errorf("Priority(%d).Valid() = %v, want %v", tt.p, got, tt.valid)
		}
		if got := tt.p.Nice(); got != tt.nice {
			t.Errorf("Priority(%d).Nice() = %d, want %d", tt.p, got, tt.nice)
		}
		if got := tt.p.String(); got != tt.name {
			t.Errorf("Priority(%d).String() = %s, want %s", tt.p, got, tt.name)
		}
	}
}

func TestKind_String(t *testing.T) {
	if KindConcurrentGC.String() != "concurrent-gc" {
		t.Errorf("KindConcurrentGC = %s", KindConcurrentGC)
	}
	if Kind(42).String() != "unknown" {
		t.Errorf("Kind(42) = %s", Kind(42))
	}
}
