// Package app wires the Orthophone subsystems into a running application.
//
// The App struct owns the evaluation pipeline: New wires the scorer and
// metrics from config, Evaluate runs one recording through transcription and
// scoring, ServeMetrics exposes the optional Prometheus listener, and
// Shutdown tears registered resources down in order.
//
// For testing, inject doubles via functional options (WithScorer,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brumelabs/orthophone/internal/config"
	"github.com/brumelabs/orthophone/internal/observe"
	"github.com/brumelabs/orthophone/internal/scoring"
	"github.com/brumelabs/orthophone/pkg/provider/stt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrNoAudioPath means Evaluate was called without a recording path.
var ErrNoAudioPath = errors.New("app: audio path is required")

// metricsShutdownTimeout bounds how long the metrics listener may take to
// drain once the application context is cancelled.
const metricsShutdownTimeout = 5 * time.Second

// App owns the Orthophone evaluation pipeline: one transcription provider,
// one scorer, and the optional metrics listener.
type App struct {
	cfg      *config.Config
	provider stt.Provider

	scorer  *scoring.Scorer
	metrics *observe.Metrics

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithScorer injects a scorer instead of building one from config.
func WithScorer(s *scoring.Scorer) Option {
	return func(a *App) { a.scorer = s }
}

// WithMetrics injects a metrics instance instead of using the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App from the config and transcription provider. The provider
// comes from main (created via the config registry). Use Option functions to
// inject test doubles for the scorer or metrics.
func New(ctx context.Context, cfg *config.Config, provider stt.Provider, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("app: transcription provider is required")
	}

	a := &App{
		cfg:      cfg,
		provider: provider,
	}
	for _, o := range opts {
		o(a)
	}

	if a.scorer == nil {
		a.scorer = scoring.New(scorerOptions(cfg.Evaluation)...)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	observe.Logger(ctx).Debug("app initialised",
		"provider", cfg.Provider.Name,
		"language", cfg.Evaluation.Language,
	)
	return a, nil
}

// ─── Evaluate ────────────────────────────────────────────────────────────────

// Evaluate transcribes the recording at audioPath and scores it against
// referenceText, returning the full report.
//
// The reference is checked before the provider round-trip so blank input
// fails fast with [scoring.ErrNoReferenceText]. Both pipeline stages run
// under tracing spans and record their latency; the outcome is counted by
// readiness status.
func (a *App) Evaluate(ctx context.Context, audioPath, referenceText string) (*scoring.Report, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, ErrNoAudioPath
	}
	if strings.TrimSpace(referenceText) == "" {
		return nil, scoring.ErrNoReferenceText
	}

	ctx, span := observe.StartSpan(ctx, "evaluate")
	defer span.End()

	// ── Stage 1: transcription ───────────────────────────────────────────
	tctx, tspan := observe.StartSpan(ctx, "transcribe",
		trace.WithAttributes(observe.Attr("provider", a.cfg.Provider.Name)),
	)
	tstart := time.Now()
	result, err := a.provider.Transcribe(tctx, stt.Request{
		AudioPath: audioPath,
		Language:  a.cfg.Evaluation.Language,
	})
	a.metrics.TranscriptionDuration.Record(ctx, time.Since(tstart).Seconds())
	tspan.End()
	if err != nil {
		a.metrics.RecordProviderError(ctx, a.cfg.Provider.Name)
		return nil, fmt.Errorf("app: transcribe %q: %w", audioPath, err)
	}

	// ── Stage 2: scoring ─────────────────────────────────────────────────
	_, sspan := observe.StartSpan(ctx, "score")
	sstart := time.Now()
	report, err := a.scorer.Evaluate(referenceText, result)
	a.metrics.ScoringDuration.Record(ctx, time.Since(sstart).Seconds())
	sspan.End()
	if err != nil {
		return nil, fmt.Errorf("app: score %q: %w", audioPath, err)
	}

	a.metrics.RecordEvaluation(ctx, string(report.Production.Status))
	a.metrics.GlobalScore.Record(ctx, report.Scores.Global)
	a.metrics.LispSeverity.Record(ctx, report.Lisp.Severity)

	observe.Logger(ctx).Info("evaluation complete",
		"status", report.Production.Status,
		"global", report.Scores.Global,
		"severity", report.Lisp.Severity,
		"language", report.Language,
	)
	return report, nil
}

// ─── Metrics listener ────────────────────────────────────────────────────────

// ServeMetrics runs the Prometheus /metrics listener until ctx is cancelled.
// It returns immediately with no error when server.metrics_addr is not
// configured.
func (a *App) ServeMetrics(ctx context.Context) error {
	addr := a.cfg.Server.MetricsAddr
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: observe.Middleware(a.metrics)(mux),
	}

	eg, egCtx := errgroup.WithContext(ctx)

	// ── goroutine 1: serve ───────────────────────────────────────────────────
	eg.Go(func() error {
		slog.Info("metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: metrics listener: %w", err)
		}
		return nil
	})

	// ── goroutine 2: drain on cancellation ────────────────────────────────────
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// OnShutdown registers fn to run during Shutdown, after previously registered
// closers.
func (a *App) OnShutdown(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Shutdown runs the registered closers in order. It respects the context
// deadline: if ctx expires before all closers finish, the remaining closers
// are skipped and the context error is returned. Subsequent calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// scorerOptions converts the evaluation config into scoring options. Zero
// threshold fields keep their defaults; an empty sibilant list keeps the
// built-in catalogue.
func scorerOptions(ec config.EvaluationConfig) []scoring.Option {
	var opts []scoring.Option

	if ec.Thresholds != (config.ThresholdsConfig{}) {
		opts = append(opts, scoring.WithThresholds(configThresholds(ec.Thresholds)))
	}
	if len(ec.Sibilants) > 0 {
		catalogue := make([]scoring.Sibilant, len(ec.Sibilants))
		for i, sc := range ec.Sibilants {
			catalogue[i] = scoring.Sibilant{
				Pattern: sc.Pattern,
				Weight:  sc.Weight,
				Type:    sc.Type,
			}
		}
		opts = append(opts, scoring.WithSibilants(catalogue))
	}

	return opts
}

// configThresholds merges configured thresholds over the defaults: zero
// fields keep the default value so partial configs only move the criteria
// they name.
func configThresholds(tc config.ThresholdsConfig) scoring.Thresholds {
	t := scoring.DefaultThresholds()
	if tc.Global != 0 {
		t.Global = tc.Global
	}
	if tc.Levenshtein != 0 {
		t.Levenshtein = tc.Levenshtein
	}
	if tc.Jaccard != 0 {
		t.Jaccard = tc.Jaccard
	}
	if tc.Jaro != 0 {
		t.Jaro = tc.Jaro
	}
	if tc.LispSeverity != 0 {
		t.LispSeverity = tc.LispSeverity
	}
	return t
}
