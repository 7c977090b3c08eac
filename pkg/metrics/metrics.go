// Package metrics exports worker lifecycle events as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/conthread/pkg/worker"
)

// Options controls collector configuration.
type Options struct {
	// StopWaitBuckets are the histogram buckets for stop_wait_seconds.
	// Default: prometheus.DefBuckets
	StopWaitBuckets []float64
}

// Collector implements worker.EventEmitter on top of Prometheus collectors.
type Collector struct {
	transitions *prom.CounterVec
	running     *prom.GaugeVec
	stopWait    *prom.HistogramVec
}

var _ worker.EventEmitter = (*Collector)(nil)

// NewCollector creates and registers the collectors. Registering twice with
// the same registry reuses the existing collectors.
func NewCollector(namespace string, reg prom.Registerer, opts Options) (*Collector, error) {
	if namespace == "" {
		namespace = "conthread"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.StopWaitBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	transitions := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Total number of thread lifecycle transitions by target state.",
	}, []string{"thread", "state"})
	running := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "running_threads",
		Help:      "Threads currently running their service.",
	}, []string{"thread"})
	stopWait := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stop_wait_seconds",
		Help:      "Time Stop spent waiting for the thread to terminate.",
		Buckets:   buckets,
	}, []string{"thread"})

	var err error
	if transitions, err = registerCollector(reg, transitions); err != nil {
		return nil, err
	}
	if running, err = registerCollector(reg, running); err != nil {
		return nil, err
	}
	if stopWait, err = registerCollector(reg, stopWait); err != nil {
		return nil, err
	}

	return &Collector{
		transitions: transitions,
		running:     running,
		stopWait:    stopWait,
	}, nil
}

// OnStateChange counts the transition and tracks running threads.
func (c *Collector) OnStateChange(thread string, previous, current worker.State) {
	if c == nil {
		return
	}
	name := normalizeLabel(thread, "unknown")
	c.transitions.WithLabelValues(name, stateLabel(current)).Inc()

	switch {
	case current == worker.StateRunning:
		c.running.WithLabelValues(name).Inc()
	case previous == worker.StateRunning:
		c.running.WithLabelValues(name).Dec()
	}
}

// OnStopCompleted records how long Stop waited.
func (c *Collector) OnStopCompleted(thread string, waited time.Duration) {
	if c == nil {
		return
	}
	c.stopWait.WithLabelValues(normalizeLabel(thread, "unknown")).Observe(waited.Seconds())
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func stateLabel(s worker.State) string {
	switch s {
	case worker.StateStarted:
		return "started"
	case worker.StateWaitingForInit:
		return "waiting_for_init"
	case worker.StateRunning:
		return "running"
	case worker.StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prom.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
