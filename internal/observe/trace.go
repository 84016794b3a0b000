package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for all voxkit spans.
const tracerName = "github.com/voxkit-ai/voxkit"

// StartSpan opens a span on the voxkit tracer. Spans come from the globally
// registered provider, so code running before InitProvider (or in tests that
// never call it) gets no-op spans with zero trace IDs. The caller must call
// span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// TraceID returns the active trace ID in ctx, or the empty string when no
// span is recording one. It doubles as the request correlation identifier
// surfaced to API clients.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns slog.Default() enriched with the active span's trace_id and
// span_id, for log lines that must join up with traces. Without an active
// span it is the default logger unchanged.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
