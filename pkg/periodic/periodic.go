// Package periodic provides a worker.Service that runs a task at a fixed
// interval until its thread is asked to terminate.
//
// A stop request cancels the context handed to the running task and wakes the
// inter-run sleep, so Stop on the hosting thread returns as soon as the task
// honours its context. Failed runs are retried with exponential backoff.
//
// A Service is single-use: once stopped it cannot be hosted again.
package periodic

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bft-labs/conthread/pkg/log"
	"github.com/bft-labs/conthread/pkg/worker"
)

// Task is one unit of periodic work. It should return promptly when ctx is
// canceled.
type Task func(ctx context.Context) error

// Config holds timing for a periodic Service.
type Config struct {
	// Interval between the end of one run and the start of the next.
	// Default: 1 second
	Interval time.Duration

	// InitialBackoff is the first delay after a failed run.
	// Default: Interval
	InitialBackoff time.Duration

	// MaxBackoff caps the delay after repeated failures.
	// Default: 30 seconds
	MaxBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Service runs a Task periodically on a worker thread.
type Service struct {
	name     string
	task     Task
	logger   log.Logger
	backoff  *Backoff
	interval atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}

	runs     atomic.Uint64
	failures atomic.Uint64
}

var (
	_ worker.Service = (*Service)(nil)
	_ worker.Stopper = (*Service)(nil)
)

// New creates a periodic service. logger may be nil.
func New(name string, task Task, cfg Config, logger log.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = cfg.Interval
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		name:    name,
		task:    task,
		logger:  logger.With(log.String("service", name)),
		backoff: NewBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
	}
	s.interval.Store(int64(cfg.Interval))
	return s
}

// Run executes the task until ctl reports termination.
func (s *Service) Run(ctl worker.Control) {
	defer s.cancel()

	for !ctl.ShouldTerminate() {
		err := s.task(s.ctx)
		s.runs.Add(1)

		delay := s.Interval()
		switch {
		case err == nil:
			s.backoff.Reset()
		case ctl.ShouldTerminate():
			// interrupted by the stop request
		default:
			s.failures.Add(1)
			delay = s.backoff.Next()
			s.logger.Warn("task failed",
				log.Err(err),
				log.Duration("retry_in", delay),
				log.Uint64("failures", s.failures.Load()),
			)
		}

		s.sleep(delay)
	}
}

// RequestStop cancels the running task and wakes the sleep between runs.
func (s *Service) RequestStop() {
	s.cancel()
}

// SetInterval changes the period. The sleep in progress is cut short so the
// new value applies immediately. Non-positive values are ignored.
func (s *Service) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	if time.Duration(s.interval.Swap(int64(d))) == d {
		return
	}
	s.logger.Info("interval changed", log.Duration("interval", d))
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Interval returns the current period.
func (s *Service) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// Runs returns the number of completed task runs.
func (s *Service) Runs() uint64 { return s.runs.Load() }

// Failures returns the number of runs that returned an error.
func (s *Service) Failures() uint64 { return s.failures.Load() }

func (s *Service) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.wake:
	case <-s.ctx.Done():
	}
}
