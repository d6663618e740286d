package logging

import "context"

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDKey is the context key read by WithContext for trace_id.
func TraceIDKey() interface{} { return traceIDKey }

// SpanIDKey is the context key read by WithContext for span_id.
func SpanIDKey() interface{} { return spanIDKey }

// ContextWithTrace stores trace and span ids for later log lines.
func ContextWithTrace(ctx context.Context, traceID, spanID string) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

func extractContextFields(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	var fields map[string]interface{}
	for _, key := range []contextKey{traceIDKey, spanIDKey} {
		if v := ctx.Value(key); v != nil {
			if fields == nil {
				fields = map[string]interface{}{}
			}
			fields[string(key)] = v
		}
	}
	return fields
}
