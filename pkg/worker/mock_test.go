package worker

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// eventLog records an ordered sequence of named events.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// mockFacility records facility calls and runs threads on plain goroutines.
type mockFacility struct {
	mu         sync.Mutex
	failCreate error
	names      []string
	kinds      []Kind
	priorities []Priority
	starts     int
}

var errNoThreads = errors.New("no threads left")

func (f *mockFacility) Create(name string, kind Kind, entry func()) (Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.names = append(f.names, name)
	f.kinds = append(f.kinds, kind)
	return &mockThread{facility: f, entry: entry}, nil
}

func (f *mockFacility) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCreate = err
}

func (f *mockFacility) recordedPriorities() []Priority {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Priority(nil), f.priorities...)
}

func (f *mockFacility) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type mockThread struct {
	facility *mockFacility
	entry    func()
}

func (m *mockThread) SetPriority(p Priority) error {
	m.facility.mu.Lock()
	defer m.facility.mu.Unlock()
	m.facility.priorities = append(m.facility.priorities, p)
	return nil
}

func (m *mockThread) Start() {
	m.facility.mu.Lock()
	m.facility.starts++
	m.facility.mu.Unlock()
	go m.entry()
}

// mockBarrier blocks until release is closed and then records the release.
type mockBarrier struct {
	release chan struct{}
	log     *eventLog
}

func newMockBarrier(log *eventLog) *mockBarrier {
	return &mockBarrier{release: make(chan struct{}), log: log}
}

func (b *mockBarrier) WaitInitCompleted() {
	<-b.release
	b.log.add("barrier_released")
}

// blockingService blocks in Run until RequestStop is called.
type blockingService struct {
	wake     chan struct{}
	once     sync.Once
	stopHook int
	mu       sync.Mutex
}

func newBlockingService() *blockingService {
	return &blockingService{wake: make(chan struct{})}
}

func (s *blockingService) Run(ctl Control) {
	for !ctl.ShouldTerminate() {
		<-s.wake
	}
}

func (s *blockingService) RequestStop() {
	s.mu.Lock()
	s.stopHook++
	s.mu.Unlock()
	s.once.Do(func() { close(s.wake) })
}

func (s *blockingService) stopHookCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopHook
}

// spinService polls ShouldTerminate without blocking.
func spinService(counter *atomic.Int64) ServiceFunc {
	return func(ctl Control) {
		for !ctl.ShouldTerminate() {
			counter.Add(1)
		}
	}
}

// recordingEmitter captures lifecycle events.
type recordingEmitter struct {
	mu          sync.Mutex
	transitions []stateChange
	stops       []time.Duration
}

type stateChange struct {
	thread   string
	previous State
	current  State
}

func (r *recordingEmitter) OnStateChange(thread string, previous, current State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, stateChange{thread, previous, current})
}

func (r *recordingEmitter) OnStopCompleted(thread string, waited time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, waited)
}

func (r *recordingEmitter) snapshot() ([]stateChange, []time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stateChange(nil), r.transitions...), append([]time.Duration(nil), r.stops...)
}
