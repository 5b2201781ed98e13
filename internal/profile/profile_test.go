package profile

import (
	"errors"
	"strings"
	"testing"

	"github.com/hrygo/automl/ai/core/errclass"
)

var profileEnvVars = []string{
	"AUTOML_LOG_FORMAT", "AUTOML_LOG_LEVEL", "AUTOML_CONFIG_DIR",
	"AUTOML_LLM_BACKENDS", "AUTOML_LLM_PROVIDER", "AUTOML_LLM_MODEL", "AUTOML_LLM_API_KEY",
	"AUTOML_LLM_BASE_URL", "AUTOML_LLM_TIMEOUT_SECONDS", "AUTOML_MODEL_ORDER",
	"AUTOML_MAX_RETRIES_PER_MODEL", "AUTOML_BASE_DELAY_MS", "AUTOML_TEMPERATURE",
	"AUTOML_MAX_TOKENS", "AUTOML_REQUEST_TIMEOUT_SECONDS", "AUTOML_MAX_CONCURRENT_RUNS",
	"AUTOML_FALLBACK_FILE", "AUTOML_CATALOG_BASE_URL", "AUTOML_CATALOG_USERNAME",
	"AUTOML_CATALOG_KEY", "AUTOML_CATALOG_RPS", "AUTOML_LIVE_DOWNLOAD", "AUTOML_MAX_DATASET_ROWS",
	"AUTOML_RERANK_MODEL", "AUTOML_RERANK_API_KEY", "AUTOML_RERANK_BASE_URL",
	"AUTOML_SYNTH_ROWS", "AUTOML_SYNTH_SEED", "KAGGLE_USERNAME", "KAGGLE_KEY",
}

// clearEnv blanks every variable the profile reads for the duration of the test; an
// empty value counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range profileEnvVars {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{Port: 28090}
	if err := p.FromEnv(); err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	tests := []struct {
		name     string
		expected any
		actual   any
	}{
		{"no backends", 0, len(p.Backends)},
		{"retries", 3, p.MaxRetriesPerModel},
		{"base delay", 1000, p.BaseDelayMs},
		{"live download off without credentials", false, p.EnableLiveDownload},
		{"catalog url", "https://www.kaggle.com/api/v1", p.CatalogBaseURL},
		{"rerank disabled", false, p.IsRerankEnabled()},
		{"log format", "text", p.LogFormat},
		{"no seed", true, p.SynthSeed == nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, tt.actual)
			}
		})
	}

	if err := p.Validate(); err != nil {
		t.Fatalf("offline defaults should validate: %v", err)
	}
	if p.Mode != "dev" {
		t.Errorf("mode should normalize to dev, got %q", p.Mode)
	}
}

func TestProfileBackendList(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOML_LLM_BACKENDS", "primary=deepseek:deepseek-chat, backup=anthropic, ollama:qwen2.5")
	t.Setenv("AUTOML_LLM_PRIMARY_API_KEY", "k1")
	t.Setenv("AUTOML_LLM_BACKUP_API_KEY", "k2")
	t.Setenv("AUTOML_LLM_PRIMARY_BASE_URL", "http://proxy")
	t.Setenv("AUTOML_MODEL_ORDER", "backup,primary")

	p := &Profile{Port: 28090}
	if err := p.FromEnv(); err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	want := []Backend{
		{ID: "primary", Provider: "deepseek", Model: "deepseek-chat", APIKey: "k1", BaseURL: "http://proxy", Timeout: 120},
		{ID: "backup", Provider: "anthropic", Model: llmProviderDefaults["anthropic"], APIKey: "k2", Timeout: 120},
		{ID: "ollama", Provider: "ollama", Model: "qwen2.5", Timeout: 120},
	}
	if len(p.Backends) != len(want) {
		t.Fatalf("expected %d backends, got %d", len(want), len(p.Backends))
	}
	for i := range want {
		if p.Backends[i] != want[i] {
			t.Errorf("backend %d: expected %+v, got %+v", i, want[i], p.Backends[i])
		}
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(p.String(), "backup(anthropic/") {
		t.Errorf("unexpected String(): %s", p.String())
	}
}

func TestProfileSingleBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOML_LLM_PROVIDER", "openai")
	t.Setenv("AUTOML_LLM_API_KEY", "sk-test")

	p := &Profile{}
	if err := p.FromEnv(); err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(p.Backends) != 1 || p.Backends[0].ID != "openai" || p.Backends[0].Model != "gpt-4o-mini" {
		t.Fatalf("unexpected backends: %+v", p.Backends)
	}
}

func TestParseBackendsErrors(t *testing.T) {
	for _, spec := range []string{"a=nosuch:model", "a=openai,a=deepseek"} {
		_, err := ParseBackends(spec)
		if !errors.Is(err, errclass.ErrConfiguration) {
			t.Errorf("%q: expected configuration error, got %v", spec, err)
		}
	}
}

func TestProfileValidateErrors(t *testing.T) {
	base := func() *Profile {
		return &Profile{Port: 28090, MaxRetriesPerModel: 3, MaxConcurrentRuns: 2}
	}

	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"bad port", func(p *Profile) { p.Port = 0 }},
		{"zero retries", func(p *Profile) { p.MaxRetriesPerModel = 0 }},
		{"too many retries", func(p *Profile) { p.MaxRetriesPerModel = MaxRetriesPerModel + 1 }},
		{"negative delay", func(p *Profile) { p.BaseDelayMs = -1 }},
		{"missing api key", func(p *Profile) {
			p.Backends = []Backend{{ID: "primary", Provider: "deepseek", Model: "deepseek-chat"}}
		}},
		{"unknown order id", func(p *Profile) { p.ModelOrder = []string{"ghost"} }},
		{"live download without credentials", func(p *Profile) { p.EnableLiveDownload = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			err := p.Validate()
			if !errors.Is(err, errclass.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestProfileValidateDefaultsTimeout(t *testing.T) {
	p := &Profile{Port: 28090, MaxRetriesPerModel: 3}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.RequestTimeoutSeconds != 120 {
		t.Errorf("expected default timeout 120s, got %d", p.RequestTimeoutSeconds)
	}
	if p.MaxConcurrentRuns != 1 {
		t.Errorf("expected at least one concurrent run, got %d", p.MaxConcurrentRuns)
	}
}

func TestProfileSeed(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOML_SYNTH_SEED", "42")

	p := &Profile{}
	if err := p.FromEnv(); err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if p.SynthSeed == nil || *p.SynthSeed != 42 {
		t.Fatalf("expected seed 42, got %v", p.SynthSeed)
	}

	t.Setenv("AUTOML_SYNTH_SEED", "-1")
	if err := (&Profile{}).FromEnv(); !errors.Is(err, errclass.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
