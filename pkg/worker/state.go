package worker

import "time"

// State is the observable phase of a ConcurrentThread.
type State int32

const (
	StateIdle State = iota
	StateStarted
	StateWaitingForInit
	StateRunning
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarted:
		return "Started"
	case StateWaitingForInit:
		return "WaitingForInit"
	case StateRunning:
		return "Running"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// EventEmitter is notified of thread lifecycle events.
// Calls are made synchronously from the goroutine causing the event and never
// while the rendezvous monitor is held.
type EventEmitter interface {
	OnStateChange(thread string, previous, current State)
	OnStopCompleted(thread string, waited time.Duration)
}

// canTransition reports whether from -> to is an edge of the lifecycle.
// Terminated is absorbing.
func canTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateStarted
	case StateStarted:
		return to == StateWaitingForInit
	case StateWaitingForInit:
		return to == StateRunning
	case StateRunning:
		return to == StateTerminated
	default:
		return false
	}
}
