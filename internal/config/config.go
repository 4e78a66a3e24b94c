// Package config provides the configuration schema, loader, and provider
// registry for the orthophone pronunciation assessment tool.
package config

import "github.com/brumelabs/orthophone/internal/scoring"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for orthophone.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Provider   ProviderEntry    `yaml:"provider"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// ServerConfig holds observability and logging settings.
type ServerConfig struct {
	// MetricsAddr is the TCP address the Prometheus metrics endpoint listens
	// on (e.g., ":9090"). Leave empty to disable the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProviderEntry selects and configures the STT backend used for
// transcription. The Name field is used to look up the constructor in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper",
	// "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1",
	// "nova-3").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// EvaluationConfig tunes the pronunciation scoring pipeline.
type EvaluationConfig struct {
	// Language is the ISO 639-1 hint forwarded to the STT provider when no
	// per-invocation language is given (e.g., "fr").
	Language string `yaml:"language"`

	// Thresholds overrides the production readiness gate. Zero-valued fields
	// keep the built-in defaults.
	Thresholds ThresholdsConfig `yaml:"thresholds"`

	// Sibilants replaces the built-in sibilant catalogue when non-empty.
	// Entries are evaluated in the order they are listed.
	Sibilants []SibilantConfig `yaml:"sibilants"`
}

// ThresholdsConfig holds the production readiness criteria. Score thresholds
// are percentages in [0, 100]; the lisp severity threshold lives on the 0–5
// severity scale.
type ThresholdsConfig struct {
	Global       float64 `yaml:"global"`
	Levenshtein  float64 `yaml:"levenshtein"`
	Jaccard      float64 `yaml:"jaccard"`
	Jaro         float64 `yaml:"jaro"`
	LispSeverity float64 `yaml:"lisp_severity"`
}

// SibilantConfig describes one entry of the sibilant catalogue used by the
// lisp detection heuristic.
type SibilantConfig struct {
	// Pattern is the substring matched against lowercased transcribed words
	// (e.g., "ch").
	Pattern string `yaml:"pattern"`

	// Weight scales the severity of every finding for this pattern.
	Weight float64 `yaml:"weight"`

	// Type is the phonetic classification reported with findings.
	Type scoring.SibilantType `yaml:"type"`
}
