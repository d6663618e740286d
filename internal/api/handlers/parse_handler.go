package handlers

import (
	"net/http"

	"github.com/moolen/faultlens/internal/api"
	"github.com/moolen/faultlens/internal/faulttree"
	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/report"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReportResponse is returned by POST /v1/reports/parse.
type ReportResponse struct {
	report.Parsed
	Summary string `json:"summary"`
}

// FaultTreeResponse is returned by POST /v1/faulttree/parse.
type FaultTreeResponse struct {
	Tree      *faulttree.Tree   `json:"tree"`
	Matches   []*faulttree.Node `json:"matches,omitempty"`
	Highlight []string          `json:"highlight,omitempty"`
}

// ParseHandler serves the stateless text parsers.
type ParseHandler struct {
	logger *logging.Logger
	tracer trace.Tracer
}

// NewParseHandler creates a parse handler.
func NewParseHandler(logger *logging.Logger, tracer trace.Tracer) *ParseHandler {
	return &ParseHandler{logger: logger, tracer: tracer}
}

// HandleReport serves POST /v1/reports/parse. The body is the plain-text
// report.
func (h *ParseHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "reports.HandleParse", r, "/v1/reports/parse")
	defer span.End()

	data, e := api.ReadBody(w, r)
	if e != nil {
		fail(w, span, h.logger, e)
		return
	}

	parsed := report.Parse(string(data))
	span.SetAttributes(attribute.Bool("report.parsed", parsed.ParsedSuccess))
	succeed(w, span, h.logger, http.StatusOK, ReportResponse{Parsed: parsed, Summary: report.Summary(parsed)})
}

// HandleFaultTree serves POST /v1/faulttree/parse. The body is a
// tab-separated table; the optional q and conclusion query parameters run
// a search and a path highlight on the result.
func (h *ParseHandler) HandleFaultTree(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), h.tracer, "faulttree.HandleParse", r, "/v1/faulttree/parse")
	defer span.End()

	data, e := api.ReadBody(w, r)
	if e != nil {
		fail(w, span, h.logger, e)
		return
	}

	tree := faulttree.ParseFlat(string(data))
	resp := FaultTreeResponse{Tree: tree}
	q := r.URL.Query()
	if kw := q.Get("q"); kw != "" {
		resp.Matches = faulttree.Search(tree.Nodes, kw)
	}
	if c := q.Get("conclusion"); c != "" {
		resp.Highlight = faulttree.HighlightPath(tree.Nodes, c)
	}
	span.SetAttributes(attribute.Int("faulttree.nodes", len(tree.Nodes)))
	succeed(w, span, h.logger, http.StatusOK, resp)
}
