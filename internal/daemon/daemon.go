// Package daemon wires the conthread demo: a group of periodic sweeper
// threads that start after a simulated initialization phase, plus optional
// HTTP and config-reload service threads.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/conthread/internal/cliconfig"
	"github.com/bft-labs/conthread/internal/configwatch"
	"github.com/bft-labs/conthread/internal/server"
	"github.com/bft-labs/conthread/pkg/initgate"
	"github.com/bft-labs/conthread/pkg/log"
	"github.com/bft-labs/conthread/pkg/metrics"
	"github.com/bft-labs/conthread/pkg/periodic"
	"github.com/bft-labs/conthread/pkg/worker"
)

// Options holds what the daemon needs beyond the validated Config.
type Options struct {
	Config     cliconfig.Config
	ConfigPath string
	Logger     log.Logger
	Registry   *prom.Registry

	// OnReady, if set, is called after initialization completes.
	OnReady func(*Daemon)
}

// Daemon is a running demo instance.
type Daemon struct {
	cfg       cliconfig.Config
	logger    log.Logger
	gate      *initgate.Gate
	sweepers  *worker.Group
	services  *worker.Group
	periodics []*periodic.Service
	server    *server.Server
	stopping  atomic.Bool
	sweeps    atomic.Uint64
}

// Run starts the daemon and blocks until ctx is done or the configured run
// time elapses, then stops every thread.
func Run(ctx context.Context, opts Options) error {
	d, err := newDaemon(opts)
	if err != nil {
		return err
	}
	return d.run(ctx, opts.OnReady)
}

func newDaemon(opts Options) (*Daemon, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prom.NewRegistry()
	}

	collector, err := metrics.NewCollector("conthread", reg, metrics.Options{})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		gate:   initgate.New(),
	}

	facility := worker.NewGoroutineFacility(
		worker.WithMaxThreads(cfg.MaxThreads),
		worker.WithNativePriorities(cfg.NativePriorities),
		worker.WithFacilityLogger(logger),
	)
	d.sweepers = worker.NewGroup(
		worker.WithFacility(facility),
		worker.WithInitBarrier(d.gate),
		worker.WithLogger(logger),
		worker.WithEventEmitter(collector),
		worker.WithKind(worker.KindConcurrentGC),
	)
	for i := 0; i < cfg.Workers; i++ {
		name := fmt.Sprintf("sweeper-%d", i)
		svc := periodic.New(name, d.sweep(name), periodic.Config{
			Interval:   cfg.Interval,
			MaxBackoff: 10 * cfg.Interval,
		}, logger)
		d.periodics = append(d.periodics, svc)
		d.sweepers.Spawn(name, svc)
	}

	d.services = worker.NewGroup(
		worker.WithLogger(logger),
		worker.WithEventEmitter(collector),
		worker.WithKind(worker.KindService),
	)

	if cfg.MetricsAddr != "" {
		d.server = server.New(cfg.MetricsAddr, reg, logger)
		d.server.AddReadinessCheck("init", func() error {
			if !d.gate.IsCompleted() {
				return errors.New("initialization in progress")
			}
			return nil
		})
		d.server.AddLivenessCheck("sweepers", d.checkSweepers)
		if err := d.server.Listen(); err != nil {
			return nil, err
		}
		d.services.Spawn("http", d.server)
	}

	if cfg.WatchConfig && opts.ConfigPath != "" && cliconfig.FileExists(opts.ConfigPath) {
		w, err := configwatch.New(opts.ConfigPath, configwatch.DefaultDebounce, d.applyReload, logger)
		if err != nil {
			return nil, err
		}
		d.services.Spawn("configwatch", w)
	}

	return d, nil
}

func (d *Daemon) run(ctx context.Context, onReady func(*Daemon)) error {
	if err := d.services.StartAll(worker.NormPriority); err != nil {
		_ = d.services.StopAll()
		return fmt.Errorf("start services: %w", err)
	}
	if err := d.sweepers.StartAll(worker.Priority(d.cfg.Priority)); err != nil {
		d.shutdown()
		return fmt.Errorf("start sweepers: %w", err)
	}
	d.logger.Info("threads started, initializing",
		log.Int("sweepers", d.cfg.Workers),
		log.Duration("init_delay", d.cfg.InitDelay),
	)

	if !sleepCtx(ctx, d.cfg.InitDelay) {
		d.shutdown()
		return nil
	}
	d.gate.Complete()
	d.logger.Info("initialization completed")
	if onReady != nil {
		onReady(d)
	}

	var deadline <-chan time.Time
	if d.cfg.RunFor > 0 {
		timer := time.NewTimer(d.cfg.RunFor)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-ctx.Done():
		d.logger.Info("shutdown requested")
	case <-deadline:
		d.logger.Info("run time elapsed", log.Duration("run_for", d.cfg.RunFor))
	}

	d.shutdown()
	return nil
}

func (d *Daemon) shutdown() {
	d.stopping.Store(true)
	began := time.Now()

	// Sweepers still parked on the gate cannot observe a stop request.
	d.gate.Complete()

	if err := d.sweepers.StopAll(); err != nil {
		d.logger.Error("stop sweepers", log.Err(err))
	}
	if err := d.services.StopAll(); err != nil {
		d.logger.Error("stop services", log.Err(err))
	}

	d.logger.Info("all threads stopped",
		log.Uint64("sweeps", d.sweeps.Load()),
		log.Duration("took", time.Since(began)),
	)
}

// Sweeps returns the number of sweeps performed across all sweepers.
func (d *Daemon) Sweeps() uint64 { return d.sweeps.Load() }

// Sweepers returns the sweeper threads.
func (d *Daemon) Sweepers() []*worker.ConcurrentThread { return d.sweepers.Threads() }

// Interval returns the current sweep interval.
func (d *Daemon) Interval() time.Duration {
	if len(d.periodics) == 0 {
		return d.cfg.Interval
	}
	return d.periodics[0].Interval()
}

// ServerAddr returns the bound HTTP address, or "" when disabled.
func (d *Daemon) ServerAddr() string {
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// sweep is the demo workload: it samples the runtime the way a concurrent
// maintenance thread would poll heap state between cycles.
func (d *Daemon) sweep(name string) periodic.Task {
	var ms runtime.MemStats
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.ReadMemStats(&ms)
		n := d.sweeps.Add(1)
		d.logger.Debug("sweep",
			log.String("thread", name),
			log.Uint64("sweep", n),
			log.Uint64("heap_alloc", ms.HeapAlloc),
			log.Int("goroutines", runtime.NumGoroutine()),
		)
		return nil
	}
}

func (d *Daemon) checkSweepers() error {
	if d.stopping.Load() {
		return nil
	}
	for _, th := range d.sweepers.Threads() {
		if th.HasTerminated() {
			return fmt.Errorf("%s terminated unexpectedly", th.Name())
		}
	}
	return nil
}

func (d *Daemon) applyReload(fc cliconfig.FileConfig) {
	if fc.Interval == "" {
		return
	}
	iv, err := time.ParseDuration(fc.Interval)
	if err != nil || iv <= 0 {
		d.logger.Warn("ignoring reloaded interval", log.String("interval", fc.Interval))
		return
	}
	for _, p := range d.periodics {
		p.SetInterval(iv)
	}
}

// sleepCtx sleeps for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
