package worker

import "github.com/bft-labs/conthread/pkg/log"

// Option configures optional behavior of a ConcurrentThread.
type Option func(*options)

type options struct {
	facility Facility
	barrier  InitBarrier
	monitor  *Monitor
	logger   log.Logger
	emitter  EventEmitter
	kind     Kind
}

func defaultOptions() options {
	return options{
		barrier: noBarrier{},
		logger:  log.NewNoopLogger(),
		kind:    KindWorker,
	}
}

// WithFacility sets the facility used to create the backing thread.
// Defaults to a GoroutineFacility without limits.
func WithFacility(f Facility) Option {
	return func(o *options) {
		o.facility = f
	}
}

// WithInitBarrier sets the barrier the thread waits on before running its
// service. Without one the service starts immediately.
func WithInitBarrier(b InitBarrier) Option {
	return func(o *options) {
		o.barrier = b
	}
}

// WithMonitor sets a shared rendezvous monitor. Without one each thread gets
// a private Monitor.
func WithMonitor(m *Monitor) Option {
	return func(o *options) {
		o.monitor = m
	}
}

// WithLogger sets a custom logger. A no-op logger is used by default.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventEmitter sets a handler for lifecycle events.
func WithEventEmitter(e EventEmitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// WithKind sets the thread kind passed to the facility.
func WithKind(k Kind) Option {
	return func(o *options) {
		o.kind = k
	}
}
