// Package initgate provides a one-shot initialization barrier.
//
// Threads call WaitInitCompleted before doing any work that depends on the
// process being fully set up; the owner calls Complete exactly when setup is
// finished. A Gate satisfies worker.InitBarrier.
package initgate

import (
	"context"
	"sync"
)

// Gate blocks waiters until Complete is called. The zero value is not usable;
// use New.
type Gate struct {
	done chan struct{}
	once sync.Once
}

// New returns an open (not yet completed) gate.
func New() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Completed returns a gate that has already been completed.
func Completed() *Gate {
	g := New()
	g.Complete()
	return g
}

// Complete releases all current and future waiters. Calls after the first
// have no effect.
func (g *Gate) Complete() {
	g.once.Do(func() { close(g.done) })
}

// IsCompleted reports whether Complete has been called.
func (g *Gate) IsCompleted() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// WaitInitCompleted blocks until Complete has been called.
func (g *Gate) WaitInitCompleted() {
	<-g.done
}

// WaitContext blocks until Complete has been called or ctx is done.
func (g *Gate) WaitContext(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed on completion.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}
