// Package apiserver wires the HTTP handlers into a server that implements
// lifecycle.Component.
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/faultlens/internal/api"
	"github.com/moolen/faultlens/internal/api/handlers"
	"github.com/moolen/faultlens/internal/logging"
)

// TracerProvider hands out named tracers.
type TracerProvider interface {
	Tracer(name string) trace.Tracer
}

// Config configures the listener.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server handles HTTP API requests.
type Server struct {
	cfg      Config
	server   *http.Server
	listener net.Listener
	router   *http.ServeMux
	logger   *logging.Logger
	tracers  TracerProvider
	deps     handlers.Deps
	gatherer prometheus.Gatherer
	done     chan struct{}
}

// New creates a server. gatherer backs /metrics.
func New(cfg Config, deps handlers.Deps, tracers TracerProvider, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:      cfg,
		router:   http.NewServeMux(),
		logger:   logging.GetLogger("api"),
		tracers:  tracers,
		deps:     deps,
		gatherer: gatherer,
	}
	s.registerHandlers()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.router)
}

// Start binds the port and serves in the background. Bind errors are
// returned.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server listening on %s", ln.Addr())
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	s.logger.Info("Stopping API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error: %v", err)
		return err
	}
	<-s.done
	s.logger.Info("API server stopped")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Name implements lifecycle.Component.
func (s *Server) Name() string {
	return "API Server"
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = api.WriteJSON(w, map[string]interface{}{
		"status":   "healthy",
		"sessions": s.deps.Sessions.Len(),
	})
}
