package handlers

import (
	"net/http"

	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/faulttree"
	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/metrics"
	"github.com/moolen/faultlens/internal/session"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the services the handlers run on.
type Deps struct {
	Engine   *dga.Engine
	Catalog  *faulttree.Catalog
	Sessions *session.Store
	Metrics  *metrics.Metrics
}

// RegisterHandlers registers all /v1 API handlers on router.
func RegisterHandlers(
	router *http.ServeMux,
	deps Deps,
	logger *logging.Logger,
	tracer trace.Tracer,
	withMethod func(string, http.HandlerFunc) http.HandlerFunc,
) {
	diagnose := NewDiagnoseHandler(deps.Engine, deps.Metrics, logger, tracer)
	router.HandleFunc("/v1/diagnose", withMethod(http.MethodPost, diagnose.Handle))
	router.HandleFunc("/v1/diagnose/batch", withMethod(http.MethodPost, diagnose.HandleBatch))
	router.HandleFunc("/v1/diagnose/consistency", withMethod(http.MethodPost, diagnose.HandleConsistency))
	logger.Debug("Registered /v1/diagnose handlers")

	models := NewModelHandler(deps.Engine, deps.Catalog, deps.Metrics, logger, tracer)
	router.HandleFunc("/v1/models", withMethod(http.MethodGet, models.HandleList))
	router.HandleFunc("/v1/models/{id}/diagnose", withMethod(http.MethodPost, models.HandleDiagnose))
	router.HandleFunc("/v1/models/{id}/tree", withMethod(http.MethodGet, models.HandleTree))
	logger.Debug("Registered /v1/models handlers")

	workflows := NewWorkflowHandler(deps.Sessions, deps.Metrics, logger, tracer)
	router.HandleFunc("/v1/workflows", withMethod(http.MethodPost, workflows.HandleCreate))
	router.HandleFunc("/v1/workflows/{id}", workflows.HandleSession)
	router.HandleFunc("/v1/workflows/{id}/evaluate", withMethod(http.MethodPost, workflows.HandleEvaluate))
	router.HandleFunc("/v1/workflows/{id}/path", withMethod(http.MethodGet, workflows.HandlePath))
	logger.Debug("Registered /v1/workflows handlers")

	parse := NewParseHandler(logger, tracer)
	router.HandleFunc("/v1/reports/parse", withMethod(http.MethodPost, parse.HandleReport))
	router.HandleFunc("/v1/faulttree/parse", withMethod(http.MethodPost, parse.HandleFaultTree))
	logger.Debug("Registered parse handlers")
}
