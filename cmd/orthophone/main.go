// Command orthophone scores the pronunciation of a recorded sentence against
// its reference text and reports whether the take is production ready.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brumelabs/orthophone/internal/app"
	"github.com/brumelabs/orthophone/internal/config"
	"github.com/brumelabs/orthophone/internal/observe"
	"github.com/brumelabs/orthophone/internal/report"
	"github.com/brumelabs/orthophone/internal/scoring"
	"github.com/brumelabs/orthophone/pkg/provider/stt"
	"github.com/brumelabs/orthophone/pkg/provider/stt/deepgram"
	oaistt "github.com/brumelabs/orthophone/pkg/provider/stt/openai"
	"github.com/brumelabs/orthophone/pkg/provider/stt/whisper"
)

// Exit codes. 2 follows the flag package's convention for usage errors;
// -strict uses a distinct code so CI can tell a failed gate from an
// operational error.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
	exitGate  = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	audioPath := flag.String("audio", "", "path to the recorded audio file to evaluate")
	text := flag.String("text", "", "reference sentence the recording should match")
	textFile := flag.String("text-file", "", "file containing the reference sentence (alternative to -text)")
	lang := flag.String("lang", "", "override the configured language hint (ISO 639-1, e.g. \"fr\")")
	jsonPath := flag.String("json", "", "write the JSON document to this path (\"-\" writes it to stdout instead of the markdown summary)")
	strict := flag.Bool("strict", false, "exit non-zero unless the assessment is READY")
	flag.Parse()

	if *audioPath == "" {
		return usage("-audio is required")
	}
	if *text == "" && *textFile == "" {
		return usage("a reference sentence is required (-text or -text-file)")
	}
	if *text != "" && *textFile != "" {
		return usage("-text and -text-file are mutually exclusive")
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "orthophone: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "orthophone: %v\n", err)
		}
		return exitError
	}
	if *lang != "" {
		cfg.Evaluation.Language = *lang
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("orthophone starting",
		"config", *configPath,
		"provider", cfg.Provider.Name,
		"language", cfg.Evaluation.Language,
	)

	// ── Reference text ────────────────────────────────────────────────────────
	referenceText := *text
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			slog.Error("failed to read reference text", "path", *textFile, "err", err)
			return exitError
		}
		referenceText = strings.TrimSpace(string(data))
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObs, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise observability", "err", err)
		return exitError
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObs(flushCtx); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	provider, err := reg.CreateSTT(cfg.Provider)
	if err != nil {
		slog.Error("failed to create stt provider", "name", cfg.Provider.Name, "err", err)
		return exitError
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Provider.Name)

	application, err := app.New(ctx, cfg, provider)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return exitError
	}

	// Optional Prometheus listener. It lives only as long as this run, which is
	// mainly useful when the tool is invoked in a batch loop and scraped there.
	if cfg.Server.MetricsAddr != "" {
		go func() {
			if err := application.ServeMetrics(ctx); err != nil {
				slog.Error("metrics listener error", "err", err)
			}
		}()
	}

	// ── Evaluate ──────────────────────────────────────────────────────────────
	rep, err := application.Evaluate(ctx, *audioPath, referenceText)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("evaluation interrupted")
		} else {
			slog.Error("evaluation failed", "err", err)
		}
		return exitError
	}

	// ── Output ────────────────────────────────────────────────────────────────
	if *jsonPath != "-" {
		fmt.Print(report.Markdown(rep))
	}
	if *jsonPath != "" {
		if err := emitJSON(rep, *jsonPath); err != nil {
			slog.Error("failed to write JSON document", "err", err)
			return exitError
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return exitError
	}

	if *strict && rep.Production.Status != scoring.StatusReady {
		slog.Warn("strict gate: assessment is not production ready",
			"status", string(rep.Production.Status),
		)
		return exitGate
	}
	return exitOK
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders lists the STT implementations that ship with orthophone.
// Used for startup logging.
var builtinProviders = []string{"whisper", "openai", "deepgram"}

// registerBuiltinProviders wires all built-in STT provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, oaistt.WithLanguage(lang))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	for _, name := range builtinProviders {
		slog.Debug("registered provider", "kind", "stt", "name", name)
	}
}

// ── Output ──────────────────────────────────────────────────────────────────

// emitJSON renders the report's JSON document to path, or to stdout when path
// is "-".
func emitJSON(rep *scoring.Report, path string) error {
	data, err := report.JSON(rep)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	slog.Info("json document written", "path", path)
	return nil
}

// ── Logger ──────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ─────────────────────────────────────────────────────────────────

// usage prints msg and the flag summary to stderr.
func usage(msg string) int {
	fmt.Fprintf(os.Stderr, "orthophone: %s\n", msg)
	flag.Usage()
	return exitUsage
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
