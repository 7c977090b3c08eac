package worker

import "sync"

// Monitor is a mutex paired with a condition variable. A single Monitor may
// be shared by many threads; every NotifyAll wakes all waiters, so each waiter
// must re-check its own predicate.
type Monitor struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewMonitor returns a ready-to-use Monitor.
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *Monitor) Lock()   { m.mu.Lock() }
func (m *Monitor) Unlock() { m.mu.Unlock() }

// Wait atomically unlocks the monitor and suspends the caller. The monitor is
// locked again before Wait returns. Wakeups can be spurious.
func (m *Monitor) Wait() { m.cond.Wait() }

// NotifyAll wakes every goroutine waiting on the monitor. The caller should
// hold the lock.
func (m *Monitor) NotifyAll() { m.cond.Broadcast() }

// WaitUntil blocks until cond returns true. cond is evaluated with the
// monitor held.
func (m *Monitor) WaitUntil(cond func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !cond() {
		m.cond.Wait()
	}
}
