package apiserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moolen/faultlens/internal/api/handlers"
)

func (s *Server) registerHandlers() {
	handlers.RegisterHandlers(s.router, s.deps, s.logger, s.tracers.Tracer("faultlens.api"), s.withMethod)

	s.router.HandleFunc("/health", s.withMethod(http.MethodGet, s.handleHealth))
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}
