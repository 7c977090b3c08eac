// Package server exposes metrics and health endpoints over HTTP.
//
// The Server is a worker.Service so that it shares the start/stop protocol
// of the workers it reports on: Stop on its thread shuts the listener down
// and returns once Serve has exited.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/conthread/pkg/log"
	"github.com/bft-labs/conthread/pkg/worker"
)

// ShutdownTimeout bounds how long RequestStop waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Server serves /metrics, /live and /ready.
type Server struct {
	addr   string
	srv    *http.Server
	health healthcheck.Handler
	logger log.Logger
	ln     net.Listener
}

var (
	_ worker.Service = (*Server)(nil)
	_ worker.Stopper = (*Server)(nil)
)

// New builds a server for addr. reg supplies /metrics and receives the
// health check status gauges.
func New(addr string, reg *prom.Registry, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	health := healthcheck.NewMetricsHandler(reg, "conthread")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)

	return &Server{
		addr:   addr,
		health: health,
		logger: logger.With(log.String("addr", addr)),
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// AddLivenessCheck registers a check reported on /live.
func (s *Server) AddLivenessCheck(name string, check func() error) {
	s.health.AddLivenessCheck(name, check)
}

// AddReadinessCheck registers a check reported on /ready.
func (s *Server) AddReadinessCheck(name string, check func() error) {
	s.health.AddReadinessCheck(name, check)
}

// Listen binds the listening socket so that address errors surface before the
// server thread is started.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Run serves until RequestStop shuts the server down.
func (s *Server) Run(ctl worker.Control) {
	if ctl.ShouldTerminate() {
		return
	}
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			s.logger.Error("http server failed", log.Err(err))
			return
		}
	}

	s.logger.Info("http server listening", log.String("bound", s.Addr()))
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("http server failed", log.Err(err))
	}
}

// RequestStop gracefully shuts the server down.
func (s *Server) RequestStop() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown", log.Err(err))
	}
	// Shutdown does not close a listener Serve never took over.
	if s.ln != nil {
		_ = s.ln.Close()
	}
}
