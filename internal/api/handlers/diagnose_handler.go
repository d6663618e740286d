package handlers

import (
	"fmt"
	"net/http"

	"github.com/moolen/faultlens/internal/api"
	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxBatchSize bounds the samples accepted by one batch request.
const MaxBatchSize = 1000

// BatchRequest is the body of POST /v1/diagnose/batch.
type BatchRequest struct {
	Params []dga.Params `json:"params"`
}

// BatchResponse is returned by POST /v1/diagnose/batch.
type BatchResponse struct {
	Results []dga.Result `json:"results"`
	Count   int          `json:"count"`
}

// ConsistencyResponse is returned by POST /v1/diagnose/consistency.
type ConsistencyResponse struct {
	ThreeRatio  dga.Finding     `json:"three_ratio"`
	DPM         dga.Finding     `json:"dpm"`
	PRPD        dga.Finding     `json:"prpd"`
	Consistency dga.Consistency `json:"consistency"`
}

// DiagnoseHandler serves fused diagnoses.
type DiagnoseHandler struct {
	engine  *dga.Engine
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewDiagnoseHandler creates a diagnose handler.
func NewDiagnoseHandler(engine *dga.Engine, m *metrics.Metrics, logger *logging.Logger, tracer trace.Tracer) *DiagnoseHandler {
	return &DiagnoseHandler{engine: engine, metrics: m, logger: logger, tracer: tracer}
}

// Handle serves POST /v1/diagnose.
func (h *DiagnoseHandler) Handle(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "diagnose.Handle", r, "/v1/diagnose")
	defer span.End()

	p, e := readParams(w, r)
	if e != nil {
		fail(w, span, h.logger, e)
		return
	}

	res := h.engine.Diagnose(p)
	h.metrics.ObserveDiagnosis(res)
	span.SetAttributes(
		attribute.String("diagnosis.primary_method", string(res.PrimaryMethod)),
		attribute.String("diagnosis.three_ratio_code", res.ThreeRatioCode),
		attribute.Float64("diagnosis.confidence", res.Confidence),
	)
	succeed(w, span, h.logger, http.StatusOK, res)
}

// HandleBatch serves POST /v1/diagnose/batch.
func (h *DiagnoseHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), h.tracer, "diagnose.HandleBatch", r, "/v1/diagnose/batch")
	defer span.End()

	var req BatchRequest
	if e := api.ReadJSON(w, r, &req); e != nil {
		fail(w, span, h.logger, e)
		return
	}
	if len(req.Params) == 0 {
		fail(w, span, h.logger, api.NewInvalidRequestError("params must not be empty"))
		return
	}
	if len(req.Params) > MaxBatchSize {
		fail(w, span, h.logger, api.NewInvalidRequestError("at most %d samples per batch", MaxBatchSize))
		return
	}
	for i, p := range req.Params {
		if err := dga.CheckLimits(p); err != nil {
			fail(w, span, h.logger, api.NewLimitError(fmt.Errorf("params[%d]: %w", i, err)))
			return
		}
	}
	span.SetAttributes(attribute.Int("batch.size", len(req.Params)))

	results, err := h.engine.DiagnoseBatch(ctx, req.Params)
	if err != nil {
		// only a cancelled request context ends up here
		fail(w, span, h.logger, api.NewAPIError(api.ErrorCodeUnavailable, http.StatusServiceUnavailable, err.Error()))
		return
	}
	for _, res := range results {
		h.metrics.ObserveDiagnosis(res)
	}
	succeed(w, span, h.logger, http.StatusOK, BatchResponse{Results: results, Count: len(results)})
}

// HandleConsistency serves POST /v1/diagnose/consistency. The sample must
// carry both a DPM region and a PRPD feature.
func (h *DiagnoseHandler) HandleConsistency(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "diagnose.HandleConsistency", r, "/v1/diagnose/consistency")
	defer span.End()

	p, e := readParams(w, r)
	if e != nil {
		fail(w, span, h.logger, e)
		return
	}
	if p.DPMResult == "" || p.PRPDFeature == "" {
		fail(w, span, h.logger, api.NewInvalidRequestError("dpm_result and prpd_feature are required"))
		return
	}

	resp := ConsistencyResponse{
		ThreeRatio: dga.NewThreeRatioAnalyzer(h.engine.Config().Thresholds).Analyze(p),
		DPM:        dga.AnalyzeDPM(p.DPMResult),
		PRPD:       dga.AnalyzePRPD(p.PRPDFeature),
	}
	resp.Consistency = dga.ValidateConsistency(resp.ThreeRatio, resp.DPM, resp.PRPD)
	span.SetAttributes(attribute.Bool("diagnosis.consistent", resp.Consistency.Consistent))
	succeed(w, span, h.logger, http.StatusOK, resp)
}
