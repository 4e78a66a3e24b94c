// Package observe provides application-wide observability primitives for
// Orthophone: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware for the optional metrics listener.
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Orthophone metrics.
const meterName = "github.com/brumelabs/orthophone"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscriptionDuration tracks speech-to-text transcription latency.
	TranscriptionDuration metric.Float64Histogram

	// ScoringDuration tracks the in-process scoring pass latency.
	ScoringDuration metric.Float64Histogram

	// --- Quality histograms ---

	// GlobalScore tracks the distribution of global pronunciation scores.
	GlobalScore metric.Float64Histogram

	// LispSeverity tracks the distribution of aggregate lisp severities.
	LispSeverity metric.Float64Histogram

	// --- Counters ---

	// Evaluations counts completed evaluations. Use with attribute:
	//   attribute.String("status", ...)
	Evaluations metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts transcription provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// transcription round-trips to a local or hosted speech-to-text backend.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// computeBuckets defines finer bucket boundaries (in seconds) for the local
// scoring pass, which completes well below typical network latencies.
var computeBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// scoreBuckets clusters around the production-gate thresholds so the score
// distribution near the pass boundaries is visible.
var scoreBuckets = []float64{
	50, 60, 70, 75, 80, 85, 90, 95, 100,
}

// severityBuckets spans the 0–5 lisp severity scale in half-point steps.
var severityBuckets = []float64{
	0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Latency histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("orthophone.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScoringDuration, err = m.Float64Histogram("orthophone.scoring.duration",
		metric.WithDescription("Latency of the in-process scoring pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(computeBuckets...),
	); err != nil {
		return nil, err
	}

	// Quality histograms.
	if met.GlobalScore, err = m.Float64Histogram("orthophone.score.global",
		metric.WithDescription("Distribution of global pronunciation scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LispSeverity, err = m.Float64Histogram("orthophone.lisp.severity",
		metric.WithDescription("Distribution of aggregate lisp severities."),
		metric.WithExplicitBucketBoundaries(severityBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Evaluations, err = m.Int64Counter("orthophone.evaluations",
		metric.WithDescription("Total completed evaluations by readiness status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("orthophone.provider.errors",
		metric.WithDescription("Total transcription provider errors by provider."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("orthophone.http.request.duration",
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

// RecordEvaluation records a completed evaluation with its readiness status
// ("READY", "MINOR_ISSUES", or "NOT_READY").
func (m *Metrics) RecordEvaluation(ctx context.Context, status string) {
	m.Evaluations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordProviderError records a transcription provider failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
