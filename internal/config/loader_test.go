package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brumelabs/orthophone/internal/config"
)

func TestValidate_DuplicateSibilantPatterns(t *testing.T) {
	t.Parallel()
	yaml := `
provider:
  name: whisper
evaluation:
  sibilants:
    - pattern: s
      weight: 1.0
    - pattern: s
      weight: 1.1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate sibilant patterns, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_NegativeSibilantWeight(t *testing.T) {
	t.Parallel()
	yaml := `
provider:
  name: whisper
evaluation:
  sibilants:
    - pattern: s
      weight: -1.0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative sibilant weight, got nil")
	}
	if !strings.Contains(err.Error(), "weight") {
		t.Errorf("error should mention weight, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
evaluation:
  thresholds:
    jaccard: -3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	// All failures should be reported at once.
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "jaccard") {
		t.Errorf("error should mention jaccard, got: %v", err)
	}
	if !strings.Contains(errStr, "provider.name") {
		t.Errorf("error should mention provider.name, got: %v", err)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
provider:
  name: whisper
  concurrency: 4
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider:
  name: whisper
  base_url: http://localhost:8080
evaluation:
  language: fr
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.Name != "whisper" {
		t.Errorf("provider.name: got %q, want whisper", cfg.Provider.Name)
	}
	if cfg.Evaluation.Language != "fr" {
		t.Errorf("evaluation.language: got %q, want fr", cfg.Evaluation.Language)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	sttNames := config.ValidProviderNames["stt"]
	if len(sttNames) == 0 {
		t.Fatal("ValidProviderNames[\"stt\"] should not be empty")
	}
	// Check that "whisper" is in the STT list.
	found := false
	for _, n := range sttNames {
		if n == "whisper" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"stt\"] should contain \"whisper\"")
	}
}
