// Package observe provides application-wide observability primitives for
// Voxkit: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Voxkit metrics.
const meterName = "github.com/voxkit-ai/voxkit"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Histograms ---

	// SessionDuration tracks how long a voice session lived, from Start to
	// teardown.
	SessionDuration metric.Float64Histogram

	// ConnectDuration tracks how long establishing the remote channel took.
	ConnectDuration metric.Float64Histogram

	// KnowledgeSearchDuration tracks semantic search latency against a
	// knowledge base.
	KnowledgeSearchDuration metric.Float64Histogram

	// AssistantDuration tracks text-assistant answer latency.
	AssistantDuration metric.Float64Histogram

	// --- Counters ---

	// StateTransitions counts session state changes. Use with attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	StateTransitions metric.Int64Counter

	// FramesForwarded counts microphone frames sent to the remote service.
	FramesForwarded metric.Int64Counter

	// SegmentsScheduled counts agent audio segments handed to playback.
	SegmentsScheduled metric.Int64Counter

	// BargeIns counts user interruptions of agent speech.
	BargeIns metric.Int64Counter

	// TurnsCompleted counts finalised conversation turns.
	TurnsCompleted metric.Int64Counter

	// --- Error counters ---

	// SessionErrors counts fatal session errors. Use with attribute:
	//   attribute.String("stage", ...)
	SessionErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// sessionBuckets covers whole-session lifetimes rather than request latencies.
var sessionBuckets = []float64{
	1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SessionDuration, err = m.Float64Histogram("voxkit.session.duration",
		metric.WithDescription("Lifetime of a voice session from start to teardown."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConnectDuration, err = m.Float64Histogram("voxkit.session.connect.duration",
		metric.WithDescription("Latency of establishing the remote channel."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.KnowledgeSearchDuration, err = m.Float64Histogram("voxkit.knowledge.search.duration",
		metric.WithDescription("Latency of semantic knowledge-base search."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssistantDuration, err = m.Float64Histogram("voxkit.assistant.duration",
		metric.WithDescription("Latency of text-assistant answers."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.StateTransitions, err = m.Int64Counter("voxkit.session.state_transitions",
		metric.WithDescription("Total session state transitions by from and to state."),
	); err != nil {
		return nil, err
	}
	if met.FramesForwarded, err = m.Int64Counter("voxkit.session.frames_forwarded",
		metric.WithDescription("Total microphone frames forwarded to the remote service."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsScheduled, err = m.Int64Counter("voxkit.session.segments_scheduled",
		metric.WithDescription("Total agent audio segments handed to the playback scheduler."),
	); err != nil {
		return nil, err
	}
	if met.BargeIns, err = m.Int64Counter("voxkit.session.barge_ins",
		metric.WithDescription("Total user interruptions of agent speech."),
	); err != nil {
		return nil, err
	}
	if met.TurnsCompleted, err = m.Int64Counter("voxkit.session.turns_completed",
		metric.WithDescription("Total finalised conversation turns."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.SessionErrors, err = m.Int64Counter("voxkit.session.errors",
		metric.WithDescription("Total fatal session errors by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxkit.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxkit.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStateTransition records one session state change.
func (m *Metrics) RecordStateTransition(ctx context.Context, from, to string) {
	m.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordSessionError records a fatal session error for the given stage.
func (m *Metrics) RecordSessionError(ctx context.Context, stage string) {
	m.SessionErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordSessionEnd records the lifetime of a finished session.
func (m *Metrics) RecordSessionEnd(ctx context.Context, lifetime time.Duration) {
	m.SessionDuration.Record(ctx, lifetime.Seconds())
}
