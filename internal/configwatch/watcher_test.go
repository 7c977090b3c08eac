package configwatch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/conthread/internal/cliconfig"
	"github.com/bft-labs/conthread/pkg/worker"
)

type reloadRecorder struct {
	mu      sync.Mutex
	configs []cliconfig.FileConfig
}

func (r *reloadRecorder) record(fc cliconfig.FileConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, fc)
}

func (r *reloadRecorder) last() (cliconfig.FileConfig, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.configs) == 0 {
		return cliconfig.FileConfig{}, 0
	}
	return r.configs[len(r.configs)-1], len(r.configs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startWatcher(t *testing.T, path string, rec *reloadRecorder) (*Watcher, *worker.ConcurrentThread) {
	t.Helper()
	w, err := New(path, 10*time.Millisecond, rec.record, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	th := worker.NewConcurrentThread("configwatch", w, worker.WithKind(worker.KindService))
	if err := th.CreateAndStart(worker.NormPriority); err != nil {
		t.Fatalf("CreateAndStart() error = %v", err)
	}
	waitFor(t, func() bool { return th.State() == worker.StateRunning })
	return w, th
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("interval = \"1s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &reloadRecorder{}
	w, th := startWatcher(t, path, rec)

	if err := os.WriteFile(path, []byte("interval = \"250ms\"\nworkers = 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		fc, n := rec.last()
		return n > 0 && fc.Interval == "250ms"
	})
	fc, _ := rec.last()
	if fc.Workers != 4 {
		t.Errorf("Workers = %d, want 4", fc.Workers)
	}
	if w.Reloads() == 0 {
		t.Error("Reloads() = 0 after reload")
	}

	th.Stop()
	if !th.HasTerminated() {
		t.Error("watcher thread did not terminate")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("workers = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &reloadRecorder{}
	_, th := startWatcher(t, path, rec)
	defer th.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("workers = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if _, n := rec.last(); n != 0 {
		t.Errorf("got %d reloads for an unrelated file", n)
	}
}

func TestWatcher_InvalidFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("workers = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &reloadRecorder{}
	w, th := startWatcher(t, path, rec)
	defer th.Stop()

	if err := os.WriteFile(path, []byte("workers = = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if w.Reloads() != 0 {
		t.Errorf("Reloads() = %d for an unparsable file", w.Reloads())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "c.toml"), 0, nil, nil); err == nil {
		t.Error("expected error for nil callback")
	}
	missing := filepath.Join(t.TempDir(), "nope", "c.toml")
	if _, err := New(missing, 0, func(cliconfig.FileConfig) {}, nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWatcher_StopBeforeInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	w, err := New(path, 0, func(cliconfig.FileConfig) {}, nil)
	if err != nil {
		t.Fatal(err)
	}
	th := worker.NewConcurrentThread("configwatch", w)
	if err := th.CreateAndStart(worker.NormPriority); err != nil {
		t.Fatal(err)
	}
	th.Stop()
	if !th.HasTerminated() {
		t.Error("watcher thread did not terminate")
	}
}
