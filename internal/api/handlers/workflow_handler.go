package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/moolen/faultlens/internal/api"
	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/metrics"
	"github.com/moolen/faultlens/internal/session"
	"github.com/moolen/faultlens/internal/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateWorkflowResponse is returned by POST /v1/workflows.
type CreateWorkflowResponse struct {
	SessionID string                   `json:"session_id"`
	Workflow  *workflow.ParsedWorkflow `json:"workflow"`
}

// PathResponse is returned by GET /v1/workflows/{id}/path.
type PathResponse struct {
	Conclusion string   `json:"conclusion"`
	Path       []string `json:"path"`
}

// WorkflowHandler serves workflow sessions.
type WorkflowHandler struct {
	store   *session.Store
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewWorkflowHandler creates a workflow handler.
func NewWorkflowHandler(store *session.Store, m *metrics.Metrics, logger *logging.Logger, tracer trace.Tracer) *WorkflowHandler {
	return &WorkflowHandler{store: store, metrics: m, logger: logger, tracer: tracer}
}

// HandleCreate serves POST /v1/workflows. The body is an n8n export.
func (h *WorkflowHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "workflows.HandleCreate", r, "/v1/workflows")
	defer span.End()

	data, e := api.ReadBody(w, r)
	if e != nil {
		fail(w, span, h.logger, e)
		return
	}

	snap, parsed, err := h.store.Create(data)
	h.metrics.ObserveParse(err)
	if err != nil {
		if errors.Is(err, workflow.ErrNoRootNode) || errors.Is(err, workflow.ErrTreeTooLarge) {
			fail(w, span, h.logger, api.NewAPIError(api.ErrorCodeInvalidRequest, http.StatusUnprocessableEntity, err.Error()))
			return
		}
		fail(w, span, h.logger, api.NewInvalidRequestError("%v", err))
		return
	}

	span.SetAttributes(
		attribute.String("session.id", snap.ID),
		attribute.Int("workflow.nodes", len(parsed.Nodes)),
		attribute.Int("workflow.gates", len(parsed.LogicGates)),
	)
	succeed(w, span, h.logger, http.StatusCreated, CreateWorkflowResponse{SessionID: snap.ID, Workflow: parsed})
}

// HandleSession serves GET and DELETE /v1/workflows/{id}.
func (h *WorkflowHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "workflows.HandleSession", r, "/v1/workflows/{id}")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("session.id", id))

	switch r.Method {
	case http.MethodGet:
		snap, err := h.store.Get(id)
		if err != nil {
			fail(w, span, h.logger, sessionError(err))
			return
		}
		succeed(w, span, h.logger, http.StatusOK, snap)
	case http.MethodDelete:
		if !h.store.Delete(id) {
			fail(w, span, h.logger, api.NewNotFoundError("%v: %s", session.ErrNotFound, id))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		fail(w, span, h.logger, api.NewAPIError(api.ErrorCodeMethodNotAllowed, http.StatusMethodNotAllowed, "Allowed: GET, DELETE"))
	}
}

// HandleEvaluate serves POST /v1/workflows/{id}/evaluate. The body maps
// parameter names to numbers; non-numeric values are ignored so that a
// full diagnosis sample can be posted as is.
func (h *WorkflowHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "workflows.HandleEvaluate", r, "/v1/workflows/{id}/evaluate")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("session.id", id))

	var raw map[string]json.RawMessage
	if e := api.ReadJSON(w, r, &raw); e != nil {
		fail(w, span, h.logger, e)
		return
	}
	params := numericValues(raw)

	snap, err := h.store.Evaluate(id, params)
	if err != nil {
		fail(w, span, h.logger, sessionError(err))
		return
	}
	h.metrics.ObserveGates(snap.LogicGates)
	span.SetAttributes(attribute.Int("workflow.gates", len(snap.LogicGates)))
	succeed(w, span, h.logger, http.StatusOK, snap)
}

// HandlePath serves GET /v1/workflows/{id}/path?conclusion=.
func (h *WorkflowHandler) HandlePath(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "workflows.HandlePath", r, "/v1/workflows/{id}/path")
	defer span.End()

	conclusion := r.URL.Query().Get("conclusion")
	if conclusion == "" {
		fail(w, span, h.logger, api.NewInvalidRequestError("conclusion query parameter is required"))
		return
	}

	path, err := h.store.Path(r.PathValue("id"), conclusion)
	if err != nil {
		fail(w, span, h.logger, sessionError(err))
		return
	}
	span.SetAttributes(attribute.Int("path.length", len(path)))
	succeed(w, span, h.logger, http.StatusOK, PathResponse{Conclusion: conclusion, Path: path})
}

func sessionError(err error) *api.APIError {
	if errors.Is(err, session.ErrNotFound) {
		return api.NewNotFoundError("%v", err)
	}
	return api.NewInternalServerError("%v", err)
}

// numericValues keeps JSON numbers and numeric strings.
func numericValues(raw map[string]json.RawMessage) workflow.Values {
	out := workflow.Values{}
	for k, v := range raw {
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			out[k] = f
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				out[k] = f
			}
		}
	}
	return out
}
