package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "openai", "deepgram"},
}

// keyedProviders lists providers that cannot work without an API key.
var keyedProviders = []string{"openai", "deepgram"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider
	if cfg.Provider.Name == "" {
		errs = append(errs, errors.New("provider.name is required"))
	}
	validateProviderName("stt", cfg.Provider.Name)
	if cfg.Provider.APIKey == "" && slices.Contains(keyedProviders, cfg.Provider.Name) {
		slog.Warn("provider usually requires an api_key; requests will likely be rejected",
			"provider", cfg.Provider.Name,
		)
	}

	// Thresholds
	t := cfg.Evaluation.Thresholds
	for _, th := range []struct {
		name  string
		value float64
	}{
		{"global", t.Global},
		{"levenshtein", t.Levenshtein},
		{"jaccard", t.Jaccard},
		{"jaro", t.Jaro},
	} {
		if th.value < 0 || th.value > 100 {
			errs = append(errs, fmt.Errorf("evaluation.thresholds.%s %.1f is out of range [0, 100]", th.name, th.value))
		}
	}
	if t.LispSeverity < 0 || t.LispSeverity > 5 {
		errs = append(errs, fmt.Errorf("evaluation.thresholds.lisp_severity %.1f is out of range [0, 5]", t.LispSeverity))
	}

	// Sibilant catalogue overrides
	patternsSeen := make(map[string]int, len(cfg.Evaluation.Sibilants))
	for i, s := range cfg.Evaluation.Sibilants {
		prefix := fmt.Sprintf("evaluation.sibilants[%d]", i)
		if s.Pattern == "" {
			errs = append(errs, fmt.Errorf("%s.pattern is required", prefix))
		} else {
			if prev, ok := patternsSeen[s.Pattern]; ok {
				errs = append(errs, fmt.Errorf("%s.pattern %q is a duplicate of evaluation.sibilants[%d]", prefix, s.Pattern, prev))
			}
			patternsSeen[s.Pattern] = i
		}
		if s.Weight < 0 {
			errs = append(errs, fmt.Errorf("%s.weight %.2f must not be negative", prefix, s.Weight))
		}
		if s.Weight == 0 {
			slog.Warn("sibilant catalogue entry has zero weight and will never produce findings",
				"pattern", s.Pattern,
			)
		}
		if s.Type != "" && !s.Type.IsValid() {
			errs = append(errs, fmt.Errorf("%s.type %q is invalid; valid values: voiceless_alveolar, voiced_alveolar, voiceless_postalveolar, voiced_postalveolar", prefix, s.Type))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
