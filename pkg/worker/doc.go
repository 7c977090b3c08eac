// Package worker hosts long-running background services on dedicated threads
// with a start/stop protocol that guarantees a rendezvous on shutdown.
//
// A ConcurrentThread starts its service only after an initialization barrier
// releases, lets the service poll ShouldTerminate cooperatively, and blocks
// the caller of Stop until the service has returned and the termination has
// been published.
//
// # Usage
//
//	gate := initgate.New()
//	t := worker.NewConcurrentThread("sweeper", svc,
//	    worker.WithInitBarrier(gate),
//	    worker.WithLogger(logger),
//	)
//	if err := t.CreateAndStart(worker.NormPriority); err != nil {
//	    return err
//	}
//	gate.Complete()
//	// ...
//	t.Stop() // returns only after the service has exited
//
// # Protocol
//
// Two one-shot flags carry all state between the controller and the worker:
//   - ShouldTerminate flips when Stop is called, or when the service returns
//     on its own.
//   - HasTerminated flips after the service has returned. It is published
//     while holding the Monitor so that a waiter in Stop cannot miss it.
//
// Both flags are atomics, so services may poll ShouldTerminate in a tight
// loop without taking a lock. Cancellation is cooperative: Stop has no
// timeout and blocks for as long as the service takes to notice.
//
// # Lifecycle
//
//   - Idle -> Started (CreateAndStart succeeded)
//   - Started -> WaitingForInit (thread entered the run loop)
//   - WaitingForInit -> Running (initialization barrier released)
//   - Running -> Terminated (service returned)
//
// Calling Stop twice, concurrently, or before a successful CreateAndStart is a
// programming error and panics with an error wrapping ErrInvalidState.
package worker
