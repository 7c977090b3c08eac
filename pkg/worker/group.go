package worker

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group manages a set of threads that share one rendezvous monitor.
type Group struct {
	mu      sync.Mutex
	monitor *Monitor
	opts    []Option
	threads []*ConcurrentThread
}

// NewGroup creates an empty group. opts are applied to every thread spawned by
// the group; a WithMonitor option among them replaces the group's own monitor.
func NewGroup(opts ...Option) *Group {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	m := o.monitor
	if m == nil {
		m = NewMonitor()
	}
	return &Group{
		monitor: m,
		opts:    append([]Option{WithMonitor(m)}, opts...),
	}
}

// Monitor returns the monitor shared by the group's threads.
func (g *Group) Monitor() *Monitor { return g.monitor }

// Spawn creates a thread for svc and adds it to the group. The thread is not
// started.
func (g *Group) Spawn(name string, svc Service, extra ...Option) *ConcurrentThread {
	opts := append(append([]Option{}, g.opts...), extra...)
	opts = append(opts, WithMonitor(g.monitor))
	t := NewConcurrentThread(name, svc, opts...)

	g.mu.Lock()
	g.threads = append(g.threads, t)
	g.mu.Unlock()
	return t
}

// Threads returns a snapshot of the group's threads in spawn order.
func (g *Group) Threads() []*ConcurrentThread {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*ConcurrentThread(nil), g.threads...)
}

// StartAll starts every thread that is still Idle. It stops at the first
// failure; threads started before it keep running.
func (g *Group) StartAll(prio Priority) error {
	for _, t := range g.Threads() {
		if t.State() != StateIdle {
			continue
		}
		if err := t.CreateAndStart(prio); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every started thread concurrently and waits for all of them.
// Threads whose service already returned are waited for instead of stopped,
// and threads already being stopped elsewhere are skipped. A contract
// violation raised by a member is returned as an error rather than a panic.
func (g *Group) StopAll() error {
	var eg errgroup.Group
	for _, t := range g.Threads() {
		if t.State() == StateIdle || t.stopping.Load() {
			continue
		}
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if e, ok := r.(error); ok {
						err = e
						return
					}
					err = fmt.Errorf("%w: thread %q: %v", ErrInvalidState, t.name, r)
				}
			}()
			if t.beginStop() {
				t.awaitStop()
				return nil
			}
			t.Wait()
			return nil
		})
	}
	return eg.Wait()
}
