package worker

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/conthread/pkg/log"
)

// Thread is a created but not yet running thread.
type Thread interface {
	// SetPriority records the scheduling priority to use once started.
	SetPriority(p Priority) error

	// Start releases the thread to run its entry function. Calls after the
	// first are ignored.
	Start()
}

// Facility creates threads. A failed Create must leave nothing behind.
type Facility interface {
	Create(name string, kind Kind, entry func()) (Thread, error)
}

// GoroutineFacility runs each thread on its own goroutine, pinned to an OS
// thread for its whole life.
type GoroutineFacility struct {
	maxThreads int
	native     bool
	logger     log.Logger
	live       atomic.Int64
}

// FacilityOption configures a GoroutineFacility.
type FacilityOption func(*GoroutineFacility)

// WithMaxThreads caps the number of live threads. Create fails with
// ErrThreadLimit once the cap is reached. Zero means unlimited.
func WithMaxThreads(n int) FacilityOption {
	return func(f *GoroutineFacility) {
		f.maxThreads = n
	}
}

// WithNativePriorities makes started threads apply their priority to the
// underlying OS thread. Only Linux honours it; raising priority above normal
// usually needs CAP_SYS_NICE.
func WithNativePriorities(enabled bool) FacilityOption {
	return func(f *GoroutineFacility) {
		f.native = enabled
	}
}

// WithFacilityLogger sets the logger used for priority failures.
func WithFacilityLogger(logger log.Logger) FacilityOption {
	return func(f *GoroutineFacility) {
		f.logger = logger
	}
}

// NewGoroutineFacility creates a facility with the given options.
func NewGoroutineFacility(opts ...FacilityOption) *GoroutineFacility {
	f := &GoroutineFacility{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create reserves a thread slot. The goroutine is spawned by Start.
func (f *GoroutineFacility) Create(name string, kind Kind, entry func()) (Thread, error) {
	if entry == nil {
		return nil, fmt.Errorf("create %s: nil entry", name)
	}
	if !f.reserve() {
		return nil, fmt.Errorf("create %s: %w (%d)", name, ErrThreadLimit, f.maxThreads)
	}
	th := &goroutineThread{
		name:     name,
		kind:     kind,
		entry:    entry,
		facility: f,
	}
	th.priority.Store(int32(NormPriority))
	return th, nil
}

// Live returns the number of threads created and not yet exited.
func (f *GoroutineFacility) Live() int {
	return int(f.live.Load())
}

func (f *GoroutineFacility) reserve() bool {
	if f.maxThreads <= 0 {
		f.live.Add(1)
		return true
	}
	for {
		n := f.live.Load()
		if n >= int64(f.maxThreads) {
			return false
		}
		if f.live.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

type goroutineThread struct {
	name     string
	kind     Kind
	entry    func()
	facility *GoroutineFacility
	priority atomic.Int32
	once     sync.Once
}

func (g *goroutineThread) SetPriority(p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, p)
	}
	g.priority.Store(int32(p))
	return nil
}

func (g *goroutineThread) Start() {
	g.once.Do(func() {
		go g.main()
	})
}

func (g *goroutineThread) main() {
	defer g.facility.live.Add(-1)

	// Never unlocked: the OS thread exits with the goroutine, taking any
	// native priority change with it.
	runtime.LockOSThread()

	if g.facility.native {
		p := Priority(g.priority.Load())
		if err := applyNativePriority(p); err != nil {
			g.facility.logger.Warn("set native priority failed",
				log.String("thread", g.name),
				log.Stringer("kind", g.kind),
				log.Int("nice", p.Nice()),
				log.Err(err),
			)
		}
	}

	g.entry()
}
