package metrics

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /metrics (Prometheus exposition) and /health (a bare
// liveness probe) on its own port, separate from any future transport
// surface.
type Server struct {
	server *http.Server
	log    logr.Logger
}

// NewServer builds a Server bound to port (no leading colon required).
func NewServer(port string, log logr.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{Addr: ":" + port, Handler: mux},
		log:    log,
	}
}

// StartAsync starts the server in a background goroutine. Bind or listen
// errors are logged, not returned, since callers treat the metrics server
// as best-effort observability infrastructure rather than a hard
// dependency of the processing pipeline.
func (s *Server) StartAsync() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error(err, "metrics server stopped unexpectedly")
		}
	}()
}

// Stop gracefully shuts the server down, honoring ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
