// Package ops serves the operational HTTP endpoints of the server:
// liveness with a database check, and Prometheus metrics.
package ops

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address string
	db      Pinger
	metrics *metrics.Collector
	logger  logging.Logger
}

func NewServer(address string, db Pinger, m *metrics.Collector, l logging.Logger) *Server {
	return &Server{address: address, db: db, metrics: m, logger: l.With("module", "ops")}
}

// Router wires the endpoints.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", s.healthCheck)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler())
	}
	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn(ctx, "health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve handles requests on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
