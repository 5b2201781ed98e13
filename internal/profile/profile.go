package profile

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/automl/ai/core/errclass"
)

// Backend is one generative backend entry.
type Backend struct {
	ID       string
	Provider string // openai, deepseek, siliconflow, openrouter, ollama, zai, dashscope, anthropic
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  int // seconds
}

// Profile is the process configuration. It is built once at start and passed down
// explicitly; nothing below cmd/ reads the environment.
type Profile struct {
	Mode    string
	Addr    string
	Port    int
	Version string

	LogFormat string
	LogLevel  string
	ConfigDir string

	// Generation
	Backends              []Backend
	ModelOrder            []string
	MaxRetriesPerModel    int
	BaseDelayMs           int
	Temperature           float32
	MaxTokens             int
	RequestTimeoutSeconds int
	MaxConcurrentRuns     int
	FallbackFile          string

	// Dataset catalog
	CatalogBaseURL     string
	CatalogUsername    string
	CatalogKey         string
	CatalogRPS         float64
	EnableLiveDownload bool
	MaxDatasetRows     int

	// Search hit reranking
	RerankModel   string
	RerankAPIKey  string
	RerankBaseURL string

	// Synthetic fallback
	SynthRows int
	SynthSeed *uint64
}

// Provider default models, used when a backend entry names no model.
var llmProviderDefaults = map[string]string{
	"zai":         "glm-4.7",
	"deepseek":    "deepseek-chat",
	"openai":      "gpt-4o-mini",
	"siliconflow": "Qwen/Qwen2.5-72B-Instruct",
	"dashscope":   "qwen-max-latest",
	"openrouter":  "deepseek/deepseek-chat",
	"ollama":      "llama3.1",
	"anthropic":   "claude-sonnet-4-20250514",
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsCatalogConfigured reports whether both catalog credentials are present.
func (p *Profile) IsCatalogConfigured() bool {
	return p.CatalogUsername != "" && p.CatalogKey != ""
}

// IsRerankEnabled reports whether search hits should be reranked.
func (p *Profile) IsRerankEnabled() bool {
	return p.RerankAPIKey != "" && p.RerankBaseURL != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("Ignoring non-integer environment value", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("Ignoring non-numeric environment value", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("Ignoring non-boolean environment value", "key", key, "value", value)
	}
	return defaultValue
}

// FromEnv loads configuration from AUTOML_* environment variables. Fields already set
// by flags are kept unless the environment overrides them.
func (p *Profile) FromEnv() error {
	p.LogFormat = getEnvOrDefault("AUTOML_LOG_FORMAT", orDefault(p.LogFormat, "text"))
	p.LogLevel = getEnvOrDefault("AUTOML_LOG_LEVEL", orDefault(p.LogLevel, "info"))
	p.ConfigDir = getEnvOrDefault("AUTOML_CONFIG_DIR", p.ConfigDir)

	backends, err := backendsFromEnv()
	if err != nil {
		return err
	}
	p.Backends = backends
	p.ModelOrder = splitList(os.Getenv("AUTOML_MODEL_ORDER"))
	p.MaxRetriesPerModel = getEnvOrDefaultInt("AUTOML_MAX_RETRIES_PER_MODEL", 3)
	p.BaseDelayMs = getEnvOrDefaultInt("AUTOML_BASE_DELAY_MS", 1000)
	p.Temperature = float32(getEnvOrDefaultFloat("AUTOML_TEMPERATURE", 0.2))
	p.MaxTokens = getEnvOrDefaultInt("AUTOML_MAX_TOKENS", 2048)
	p.RequestTimeoutSeconds = getEnvOrDefaultInt("AUTOML_REQUEST_TIMEOUT_SECONDS", defaultRequestTimeoutSeconds)
	p.MaxConcurrentRuns = getEnvOrDefaultInt("AUTOML_MAX_CONCURRENT_RUNS", 4)
	p.FallbackFile = getEnvOrDefault("AUTOML_FALLBACK_FILE", "")

	p.CatalogBaseURL = getEnvOrDefault("AUTOML_CATALOG_BASE_URL", "https://www.kaggle.com/api/v1")
	p.CatalogUsername = getEnvOrDefault("AUTOML_CATALOG_USERNAME", os.Getenv("KAGGLE_USERNAME"))
	p.CatalogKey = getEnvOrDefault("AUTOML_CATALOG_KEY", os.Getenv("KAGGLE_KEY"))
	p.CatalogRPS = getEnvOrDefaultFloat("AUTOML_CATALOG_RPS", 2)
	// Live download is on by default only when credentials exist; asking for it without
	// them is caught by Validate.
	p.EnableLiveDownload = getEnvOrDefaultBool("AUTOML_LIVE_DOWNLOAD", p.IsCatalogConfigured())
	p.MaxDatasetRows = getEnvOrDefaultInt("AUTOML_MAX_DATASET_ROWS", 50000)

	p.RerankModel = getEnvOrDefault("AUTOML_RERANK_MODEL", "BAAI/bge-reranker-v2-m3")
	p.RerankAPIKey = getEnvOrDefault("AUTOML_RERANK_API_KEY", "")
	p.RerankBaseURL = getEnvOrDefault("AUTOML_RERANK_BASE_URL", "https://api.siliconflow.cn")

	p.SynthRows = getEnvOrDefaultInt("AUTOML_SYNTH_ROWS", 0)
	if raw := os.Getenv("AUTOML_SYNTH_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return errors.Wrapf(errclass.ErrConfiguration, "AUTOML_SYNTH_SEED %q is not an unsigned integer", raw)
		}
		p.SynthSeed = &seed
	}
	return nil
}

// backendsFromEnv reads AUTOML_LLM_BACKENDS ("id=provider:model,..."), or a single backend
// from AUTOML_LLM_PROVIDER/MODEL/API_KEY when the list is unset.
func backendsFromEnv() ([]Backend, error) {
	timeout := getEnvOrDefaultInt("AUTOML_LLM_TIMEOUT_SECONDS", 120)

	if spec := os.Getenv("AUTOML_LLM_BACKENDS"); spec != "" {
		backends, err := ParseBackends(spec)
		if err != nil {
			return nil, err
		}
		for i := range backends {
			prefix := "AUTOML_LLM_" + envKey(backends[i].ID) + "_"
			backends[i].APIKey = os.Getenv(prefix + "API_KEY")
			backends[i].BaseURL = os.Getenv(prefix + "BASE_URL")
			backends[i].Timeout = timeout
		}
		return backends, nil
	}

	apiKey := os.Getenv("AUTOML_LLM_API_KEY")
	provider := getEnvOrDefault("AUTOML_LLM_PROVIDER", "deepseek")
	if apiKey == "" && provider != "ollama" {
		return nil, nil
	}
	model := getEnvOrDefault("AUTOML_LLM_MODEL", llmProviderDefaults[provider])
	return []Backend{{
		ID:       provider,
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
		BaseURL:  os.Getenv("AUTOML_LLM_BASE_URL"),
		Timeout:  timeout,
	}}, nil
}

// ParseBackends parses "id=provider:model" entries separated by commas. The model may be
// omitted ("id=provider") to use the provider default, and the id may be omitted
// ("provider:model") to use the provider name.
func ParseBackends(spec string) ([]Backend, error) {
	var out []Backend
	seen := map[string]bool{}
	for _, entry := range splitList(spec) {
		id, rest, hasID := strings.Cut(entry, "=")
		if !hasID {
			rest = entry
		}
		provider, model, _ := strings.Cut(rest, ":")
		provider = strings.ToLower(strings.TrimSpace(provider))
		if _, ok := llmProviderDefaults[provider]; !ok {
			return nil, errors.Wrapf(errclass.ErrConfiguration, "backend %q: unknown provider %q", entry, provider)
		}
		id = strings.TrimSpace(id)
		if !hasID || id == "" {
			id = provider
		}
		if seen[id] {
			return nil, errors.Wrapf(errclass.ErrConfiguration, "backend id %q listed twice", id)
		}
		seen[id] = true

		model = strings.TrimSpace(model)
		if model == "" {
			model = llmProviderDefaults[provider]
		}
		out = append(out, Backend{ID: id, Provider: provider, Model: model})
	}
	return out, nil
}

// Validate normalizes the profile and reports configuration errors. Every error wraps
// errclass.ErrConfiguration.
// MaxRetriesPerModel bounds attempts per backend within one generation call.
const MaxRetriesPerModel = 10

const defaultRequestTimeoutSeconds = 120

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Wrapf(errclass.ErrConfiguration, "port %d out of range", p.Port)
	}
	if p.MaxRetriesPerModel < 1 || p.MaxRetriesPerModel > MaxRetriesPerModel {
		return errors.Wrapf(errclass.ErrConfiguration,
			"max retries per model must be between 1 and %d, got %d", MaxRetriesPerModel, p.MaxRetriesPerModel)
	}
	if p.BaseDelayMs < 0 || p.RequestTimeoutSeconds < 0 || p.SynthRows < 0 {
		return errors.Wrap(errclass.ErrConfiguration, "delays, timeouts and row counts must not be negative")
	}
	if p.MaxConcurrentRuns < 1 {
		p.MaxConcurrentRuns = 1
	}
	// Every run carries a deadline.
	if p.RequestTimeoutSeconds == 0 {
		p.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}

	ids := make(map[string]bool, len(p.Backends))
	for _, b := range p.Backends {
		if b.APIKey == "" && b.Provider != "ollama" {
			return errors.Wrapf(errclass.ErrConfiguration,
				"backend %q has no API key (set AUTOML_LLM_%s_API_KEY)", b.ID, envKey(b.ID))
		}
		ids[b.ID] = true
	}
	for _, id := range p.ModelOrder {
		if !ids[id] {
			return errors.Wrapf(errclass.ErrConfiguration, "model order names unknown backend %q", id)
		}
	}

	if p.EnableLiveDownload && !p.IsCatalogConfigured() {
		return errors.Wrap(errclass.ErrConfiguration,
			"live download enabled but catalog credentials are missing (AUTOML_CATALOG_USERNAME, AUTOML_CATALOG_KEY)")
	}

	if len(p.Backends) == 0 {
		slog.Warn("No generative backends configured, every generation will use the local fallback")
	}
	return nil
}

func (p *Profile) String() string {
	ids := make([]string, len(p.Backends))
	for i, b := range p.Backends {
		ids[i] = fmt.Sprintf("%s(%s/%s)", b.ID, b.Provider, b.Model)
	}
	return fmt.Sprintf("mode=%s addr=%s:%d backends=[%s] live_download=%t",
		p.Mode, p.Addr, p.Port, strings.Join(ids, " "), p.EnableLiveDownload)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envKey turns a backend id into an environment variable fragment.
func envKey(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, id)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
