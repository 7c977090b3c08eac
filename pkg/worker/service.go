package worker

// Control is the view of its hosting thread that a Service receives.
type Control interface {
	// Name returns the thread name.
	Name() string

	// ShouldTerminate reports whether the service has been asked to stop.
	// It never blocks and is cheap enough to poll in a loop.
	ShouldTerminate() bool
}

// Service is the workload hosted by a ConcurrentThread.
//
// Run should return promptly once ctl.ShouldTerminate() is true. It may also
// return earlier when its work is done; the thread is then terminated without
// a stop request.
type Service interface {
	Run(ctl Control)
}

// Stopper is implemented by services that block inside Run and need to be
// woken when a stop is requested. RequestStop is called from the stopping
// goroutine after ShouldTerminate has become true.
type Stopper interface {
	RequestStop()
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctl Control)

// Run calls f(ctl).
func (f ServiceFunc) Run(ctl Control) { f(ctl) }

// InitBarrier blocks threads until process-wide initialization is done.
type InitBarrier interface {
	WaitInitCompleted()
}

// noBarrier is used when no InitBarrier is configured.
type noBarrier struct{}

func (noBarrier) WaitInitCompleted() {}
