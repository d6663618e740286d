package handlers

import (
	"errors"
	"net/http"

	"github.com/moolen/faultlens/internal/api"
	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/faulttree"
	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ModelInfo is one entry of GET /v1/models.
type ModelInfo struct {
	dga.Model
	HasTree bool `json:"has_tree"`
}

// ModelHandler serves the rule models and their preset fault trees.
type ModelHandler struct {
	engine  *dga.Engine
	catalog *faulttree.Catalog
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewModelHandler creates a model handler.
func NewModelHandler(engine *dga.Engine, catalog *faulttree.Catalog, m *metrics.Metrics, logger *logging.Logger, tracer trace.Tracer) *ModelHandler {
	return &ModelHandler{engine: engine, catalog: catalog, metrics: m, logger: logger, tracer: tracer}
}

// HandleList serves GET /v1/models.
func (h *ModelHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "models.HandleList", r, "/v1/models")
	defer span.End()

	list := dga.Models()
	out := make([]ModelInfo, 0, len(list))
	for _, m := range list {
		_, err := h.catalog.TreeByModel(m.ID)
		out = append(out, ModelInfo{Model: m, HasTree: err == nil})
	}
	succeed(w, span, h.logger, http.StatusOK, map[string]interface{}{"models": out})
}

// HandleDiagnose serves POST /v1/models/{id}/diagnose.
func (h *ModelHandler) HandleDiagnose(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "models.HandleDiagnose", r, "/v1/models/{id}/diagnose")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("model.id", id))

	p, e := readParams(w, r)
	if e != nil {
		fail(w, span, h.logger, e)
		return
	}

	f, err := dga.DiagnoseModel(id, p, h.engine.Config().Thresholds)
	switch {
	case errors.Is(err, dga.ErrUnknownModel):
		fail(w, span, h.logger, api.NewNotFoundError("%v", err))
		return
	case errors.Is(err, dga.ErrModelDisabled):
		fail(w, span, h.logger, api.NewConflictError("%v", err))
		return
	case err != nil:
		fail(w, span, h.logger, api.NewInternalServerError("%v", err))
		return
	}

	h.metrics.DiagnosesTotal.WithLabelValues(string(f.Method)).Inc()
	h.metrics.DiagnosisConfidence.Observe(f.Confidence)
	span.SetAttributes(attribute.String("diagnosis.category", f.Category))
	succeed(w, span, h.logger, http.StatusOK, f)
}

// HandleTree serves GET /v1/models/{id}/tree.
func (h *ModelHandler) HandleTree(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "models.HandleTree", r, "/v1/models/{id}/tree")
	defer span.End()

	preset, err := h.catalog.TreeByModel(r.PathValue("id"))
	if err != nil {
		fail(w, span, h.logger, api.NewNotFoundError("%v", err))
		return
	}
	succeed(w, span, h.logger, http.StatusOK, preset)
}
