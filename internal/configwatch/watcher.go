// Package configwatch reloads the daemon's config file when it changes.
//
// The Watcher is a worker.Service: it runs on its own thread, watches the
// directory holding the config file with fsnotify, debounces bursts of writes
// and hands each reloaded file to a callback.
package configwatch

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/conthread/internal/cliconfig"
	"github.com/bft-labs/conthread/pkg/log"
	"github.com/bft-labs/conthread/pkg/worker"
)

// DefaultDebounce is the delay between the last change event and the reload.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives each successfully parsed config file.
type ReloadFunc func(cliconfig.FileConfig)

// Watcher watches a single config file.
type Watcher struct {
	path     string
	base     string
	debounce time.Duration
	onReload ReloadFunc
	logger   log.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
	reloads  atomic.Uint64
}

var (
	_ worker.Service = (*Watcher)(nil)
	_ worker.Stopper = (*Watcher)(nil)
)

// New starts watching the directory that holds path. Events are only
// delivered once the Watcher is hosted on a thread.
func New(path string, debounce time.Duration, onReload ReloadFunc, logger log.Logger) (*Watcher, error) {
	if onReload == nil {
		return nil, fmt.Errorf("configwatch: nil reload callback")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		path:     path,
		base:     filepath.Base(path),
		debounce: debounce,
		onReload: onReload,
		logger:   logger.With(log.String("config", path)),
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Run delivers reloads until a stop is requested or the watcher fails.
func (w *Watcher) Run(ctl worker.Control) {
	defer w.shutdown()

	w.logger.Info("watching config file")
	for !ctl.ShouldTerminate() {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", log.Err(err))
		}
	}
}

// RequestStop wakes Run.
func (w *Watcher) RequestStop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Reloads returns the number of reloads delivered.
func (w *Watcher) Reloads() uint64 { return w.reloads.Load() }

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	// Held for the whole callback so shutdown cannot return while a reload
	// is still being delivered.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", log.Err(err))
		return
	}
	w.reloads.Add(1)
	w.logger.Info("config reloaded")
	w.onReload(fc)
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("close watcher", log.Err(err))
	}
}
