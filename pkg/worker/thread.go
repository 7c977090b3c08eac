package worker

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bft-labs/conthread/pkg/log"
)

// ConcurrentThread runs a Service on a dedicated thread and provides a stop
// operation that returns only after the service has exited.
type ConcurrentThread struct {
	name     string
	kind     Kind
	service  Service
	facility Facility
	barrier  InitBarrier
	monitor  *Monitor
	logger   log.Logger
	emitter  EventEmitter

	shouldTerminate atomic.Bool
	hasTerminated   atomic.Bool

	starting atomic.Bool
	stopping atomic.Bool
	state    atomic.Int32
	thread   Thread
}

var _ Control = (*ConcurrentThread)(nil)

// NewConcurrentThread creates a thread in StateIdle. Nothing runs until
// CreateAndStart is called.
func NewConcurrentThread(name string, svc Service, opts ...Option) *ConcurrentThread {
	if svc == nil {
		panic("worker: nil service for thread " + name)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.facility == nil {
		o.facility = NewGoroutineFacility(WithFacilityLogger(o.logger))
	}
	if o.monitor == nil {
		o.monitor = NewMonitor()
	}
	if o.barrier == nil {
		o.barrier = noBarrier{}
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}

	return &ConcurrentThread{
		name:     name,
		kind:     o.kind,
		service:  svc,
		facility: o.facility,
		barrier:  o.barrier,
		monitor:  o.monitor,
		logger:   o.logger.With(log.String("thread", name)),
		emitter:  o.emitter,
	}
}

// Name returns the thread name.
func (t *ConcurrentThread) Name() string { return t.name }

// State returns the current lifecycle state.
func (t *ConcurrentThread) State() State { return State(t.state.Load()) }

// ShouldTerminate reports whether termination has been requested.
func (t *ConcurrentThread) ShouldTerminate() bool { return t.shouldTerminate.Load() }

// HasTerminated reports whether the service has returned and the thread has
// published its termination.
func (t *ConcurrentThread) HasTerminated() bool { return t.hasTerminated.Load() }

// CreateAndStart creates the backing thread, applies prio and releases it to
// run. If the facility cannot create a thread the error wraps ErrThreadCreate
// and the instance stays Idle, so the call may be retried.
func (t *ConcurrentThread) CreateAndStart(prio Priority) error {
	if !prio.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, prio)
	}
	if !t.starting.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	th, err := t.facility.Create(t.name, t.kind, t.run)
	if err != nil {
		t.starting.Store(false)
		t.logger.Error("thread creation failed", log.Err(err))
		return fmt.Errorf("%w: %s: %w", ErrThreadCreate, t.name, err)
	}

	if err := th.SetPriority(prio); err != nil {
		t.logger.Warn("set priority failed", log.Stringer("priority", prio), log.Err(err))
	}

	t.thread = th
	t.transitionTo(StateStarted)
	t.logger.Debug("thread created",
		log.Stringer("kind", t.kind),
		log.Stringer("priority", prio),
	)
	th.Start()
	return nil
}

// Stop requests termination, wakes the service if it implements Stopper and
// blocks until the thread has terminated. There is no timeout.
//
// Stop may be called once, by one goroutine, after a successful
// CreateAndStart, and only while termination has not already been requested.
// Any other use panics with an error wrapping ErrInvalidState.
func (t *ConcurrentThread) Stop() {
	if !t.beginStop() {
		if t.HasTerminated() {
			contractViolation(t.name, "stop after the thread terminated")
		}
		contractViolation(t.name, "stop after termination was already requested")
	}
	t.awaitStop()
}

// Wait blocks until the thread has terminated without requesting it. Any
// number of goroutines may wait.
func (t *ConcurrentThread) Wait() {
	if t.State() == StateIdle {
		contractViolation(t.name, "wait on a thread that was never started")
	}
	t.monitor.WaitUntil(t.hasTerminated.Load)
}

// beginStop checks the stop preconditions and publishes the termination
// request. It returns false if termination had already been requested, which
// only happens when the service returned on its own.
func (t *ConcurrentThread) beginStop() bool {
	if t.State() == StateIdle {
		contractViolation(t.name, "stop before the thread was started")
	}
	if !t.stopping.CompareAndSwap(false, true) {
		contractViolation(t.name, "stop already in progress or completed")
	}
	return t.shouldTerminate.CompareAndSwap(false, true)
}

func (t *ConcurrentThread) awaitStop() {
	began := time.Now()
	t.logger.Debug("stop requested")

	if s, ok := t.service.(Stopper); ok {
		s.RequestStop()
	}

	t.monitor.Lock()
	for !t.hasTerminated.Load() {
		t.monitor.Wait()
	}
	t.monitor.Unlock()

	waited := time.Since(began)
	t.logger.Info("thread stopped", log.Duration("waited", waited))
	if t.emitter != nil {
		t.emitter.OnStopCompleted(t.name, waited)
	}
}

// run is the thread entry point.
func (t *ConcurrentThread) run() {
	t.transitionTo(StateWaitingForInit)
	t.barrier.WaitInitCompleted()

	t.transitionTo(StateRunning)
	t.service.Run(t)

	if t.shouldTerminate.CompareAndSwap(false, true) {
		t.logger.Debug("service returned without a stop request")
	}
	t.transitionTo(StateTerminated)

	// Publish under the monitor; a waiter checks the flag with the lock held,
	// so it either sees true or is already waiting when NotifyAll runs.
	t.monitor.Lock()
	t.hasTerminated.Store(true)
	t.monitor.NotifyAll()
	t.monitor.Unlock()
}

func (t *ConcurrentThread) transitionTo(next State) {
	prev := t.State()
	if !canTransition(prev, next) || !t.state.CompareAndSwap(int32(prev), int32(next)) {
		contractViolation(t.name, fmt.Sprintf("transition %s -> %s", prev, next))
	}

	if t.emitter != nil {
		t.emitter.OnStateChange(t.name, prev, next)
	}

	t.logger.Debug("state transition",
		log.Stringer("from", prev),
		log.Stringer("to", next),
	)
}
