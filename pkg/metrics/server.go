package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the process-wide registry over /metrics, the Go analogue
// of dittofs's AuxiliaryServer (pkg/controlplane/runtime.AuxiliaryServer)
// scoped down to the one responsibility this module needs from it.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics server bound to addr. Call Start/Stop around
// the daemon's own lifecycle; addr is typically ":<port>" from
// config.MetricsConfig.Port.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the metrics server until Stop is called or ListenAndServe
// fails for a reason other than a clean shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// Stop shuts the metrics server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
