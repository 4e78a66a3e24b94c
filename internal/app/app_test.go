package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brumelabs/orthophone/internal/app"
	"github.com/brumelabs/orthophone/internal/config"
	"github.com/brumelabs/orthophone/internal/observe"
	"github.com/brumelabs/orthophone/internal/scoring"
	"github.com/brumelabs/orthophone/pkg/provider/stt"
	sttmock "github.com/brumelabs/orthophone/pkg/provider/stt/mock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// testConfig returns a minimal config for a whisper-backed evaluation.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			LogLevel: config.LogInfo,
		},
		Provider: config.ProviderEntry{
			Name: "whisper",
		},
		Evaluation: config.EvaluationConfig{
			Language: "fr",
		},
	}
}

// transcription builds a one-segment result whose words all carry full
// confidence.
func transcription(text string) *stt.Result {
	fields := strings.Fields(text)
	words := make([]stt.WordDetail, len(fields))
	for i, f := range fields {
		words[i] = stt.WordDetail{Word: f, Confidence: 1.0}
	}
	return &stt.Result{
		Text:     text,
		Language: "fr",
		Segments: []stt.Segment{{Text: text, Words: words}},
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), nil, &sttmock.Provider{})
	if err == nil {
		t.Fatal("New() with nil config should fail")
	}
}

func TestNew_RequiresProvider(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), testConfig(), nil)
	if err == nil {
		t.Fatal("New() with nil provider should fail")
	}
}

func TestEvaluate_HappyPath(t *testing.T) {
	t.Parallel()

	prov := &sttmock.Provider{Result: transcription("le chat est noir")}
	application, err := app.New(context.Background(), testConfig(), prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	report, err := application.Evaluate(context.Background(), "/tmp/take.wav", "le chat est noir")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if report.Production.Status != scoring.StatusReady {
		t.Errorf("status = %q, want %q", report.Production.Status, scoring.StatusReady)
	}
	if report.Scores.Global != 100.0 {
		t.Errorf("global score = %v, want 100", report.Scores.Global)
	}

	// The provider should have been asked exactly once, with the configured
	// language hint and the caller's recording path.
	if got := prov.CallCount(); got != 1 {
		t.Fatalf("provider call count = %d, want 1", got)
	}
	req := prov.TranscribeCalls[0].Req
	if req.AudioPath != "/tmp/take.wav" {
		t.Errorf("request audio path = %q, want %q", req.AudioPath, "/tmp/take.wav")
	}
	if req.Language != "fr" {
		t.Errorf("request language = %q, want %q", req.Language, "fr")
	}
}

func TestEvaluate_MissingAudioPath(t *testing.T) {
	t.Parallel()

	prov := &sttmock.Provider{}
	application, err := app.New(context.Background(), testConfig(), prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = application.Evaluate(context.Background(), "   ", "le chat")
	if !errors.Is(err, app.ErrNoAudioPath) {
		t.Errorf("error = %v, want ErrNoAudioPath", err)
	}
	if got := prov.CallCount(); got != 0 {
		t.Errorf("provider call count = %d, want 0", got)
	}
}

func TestEvaluate_BlankReference(t *testing.T) {
	t.Parallel()

	prov := &sttmock.Provider{}
	application, err := app.New(context.Background(), testConfig(), prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = application.Evaluate(context.Background(), "/tmp/take.wav", "\t\n")
	if !errors.Is(err, scoring.ErrNoReferenceText) {
		t.Errorf("error = %v, want ErrNoReferenceText", err)
	}

	// The reference check must run before the provider round-trip.
	if got := prov.CallCount(); got != 0 {
		t.Errorf("provider call count = %d, want 0", got)
	}
}

func TestEvaluate_ProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	prov := &sttmock.Provider{TranscribeErr: boom}
	application, err := app.New(context.Background(), testConfig(), prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = application.Evaluate(context.Background(), "/tmp/take.wav", "le chat")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), "/tmp/take.wav") {
		t.Errorf("error %q should name the recording path", err)
	}
}

func TestEvaluate_AppliesConfigThresholds(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Evaluation.Thresholds = config.ThresholdsConfig{
		Global:       1.0,
		Levenshtein:  1.0,
		Jaccard:      1.0,
		Jaro:         1.0,
		LispSeverity: 5.0,
	}

	// An imperfect take fails the default gate but passes the relaxed one.
	prov := &sttmock.Provider{Result: transcription("le chien")}
	application, err := app.New(context.Background(), cfg, prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	report, err := application.Evaluate(context.Background(), "/tmp/take.wav", "le chat")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if report.Production.Status != scoring.StatusReady {
		t.Errorf("status = %q, want %q under relaxed thresholds", report.Production.Status, scoring.StatusReady)
	}
	if report.Production.Passed != report.Production.Total {
		t.Errorf("passed = %d/%d, want all", report.Production.Passed, report.Production.Total)
	}
}

func TestEvaluate_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	prov := &sttmock.Provider{Result: transcription("le chat")}
	application, err := app.New(context.Background(), testConfig(), prov, app.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := application.Evaluate(context.Background(), "/tmp/take.wav", "le chat"); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	// One completed evaluation with status READY.
	var sum metricdata.Sum[int64]
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name == "orthophone.evaluations" {
				sum, found = met.Data.(metricdata.Sum[int64]), true
			}
		}
	}
	if !found {
		t.Fatal("orthophone.evaluations metric not found")
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(sum.DataPoints))
	}
	dp := sum.DataPoints[0]
	if dp.Value != 1 {
		t.Errorf("evaluations = %d, want 1", dp.Value)
	}
	statusOK := false
	for _, kv := range dp.Attributes.ToSlice() {
		if string(kv.Key) == "status" && kv.Value.AsString() == "READY" {
			statusOK = true
		}
	}
	if !statusOK {
		t.Error("evaluations data point missing status=READY attribute")
	}
}

func TestServeMetrics_DisabledWithoutAddr(t *testing.T) {
	t.Parallel()

	prov := &sttmock.Provider{}
	application, err := app.New(context.Background(), testConfig(), prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := application.ServeMetrics(context.Background()); err != nil {
		t.Errorf("ServeMetrics() with no addr = %v, want nil", err)
	}
}

func TestServeMetrics_StopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.MetricsAddr = "127.0.0.1:0"

	prov := &sttmock.Provider{}
	application, err := app.New(context.Background(), cfg, prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- application.ServeMetrics(ctx)
	}()

	// Give the listener a moment to bind, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("ServeMetrics() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ServeMetrics() did not return within 5s after cancellation")
	}
}

func TestShutdown_RunsClosersInOrderOnce(t *testing.T) {
	t.Parallel()

	prov := &sttmock.Provider{}
	application, err := app.New(context.Background(), testConfig(), prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	var order []int
	application.OnShutdown(func() error {
		order = append(order, 1)
		return nil
	})
	application.OnShutdown(func() error {
		order = append(order, 2)
		return errors.New("ignored")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("closer order = %v, want [1 2]", order)
	}

	// A second Shutdown must not rerun the closers.
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("closers ran again: %v", order)
	}
}

func TestShutdown_RespectsDeadline(t *testing.T) {
	t.Parallel()

	prov := &sttmock.Provider{}
	application, err := app.New(context.Background(), testConfig(), prov)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ran := false
	application.OnShutdown(func() error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := application.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Shutdown() error = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("closer ran despite expired context")
	}
}
