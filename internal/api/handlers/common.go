package handlers

import (
	"context"
	"net/http"

	"github.com/moolen/faultlens/internal/api"
	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func startSpan(ctx context.Context, tracer trace.Tracer, name string, r *http.Request, route string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		),
	)
}

// spanLogger tags log lines with the ids of a recording span.
func spanLogger(logger *logging.Logger, span trace.Span) *logging.Logger {
	sc := span.SpanContext()
	if !sc.IsValid() {
		return logger
	}
	return logger.WithContext(logging.ContextWithTrace(context.Background(), sc.TraceID().String(), sc.SpanID().String()))
}

// fail records e on span, logs it and writes the error response.
func fail(w http.ResponseWriter, span trace.Span, logger *logging.Logger, e *api.APIError) {
	logger = spanLogger(logger, span)
	span.RecordError(e)
	span.SetStatus(codes.Error, string(e.Code))
	if e.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed: %s", e.Message)
	} else {
		logger.Debug("Rejected request: %s", e.Message)
	}
	api.WriteAPIError(w, e)
}

func succeed(w http.ResponseWriter, span trace.Span, logger *logging.Logger, status int, data interface{}) {
	span.SetStatus(codes.Ok, "")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := api.WriteJSON(w, data); err != nil {
		spanLogger(logger, span).Warn("Failed to write response: %v", err)
	}
}

// readParams decodes one sample and checks its gas values.
func readParams(w http.ResponseWriter, r *http.Request) (dga.Params, *api.APIError) {
	var p dga.Params
	if e := api.ReadJSON(w, r, &p); e != nil {
		return p, e
	}
	if err := dga.CheckLimits(p); err != nil {
		return p, api.NewLimitError(err)
	}
	return p, nil
}
