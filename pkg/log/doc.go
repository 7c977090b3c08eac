// Package log provides the structured logging abstraction used by conthread.
//
// Controllers, workloads and the daemon log through the Logger interface so
// that embedding applications can route worker lifecycle events into their
// own logging stack. A zerolog adapter and a no-op logger are provided.
//
// # Usage
//
//	logger := log.NewZerologAdapter(os.Stderr, zerolog.InfoLevel)
//	workerLog := logger.With(log.String("thread", "sweeper"))
//
// Tests that do not care about output use the no-op logger:
//
//	logger := log.NewNoopLogger()
package log
