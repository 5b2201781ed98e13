// Package llm provides the generative backends consumed by the generation client.
// Every backend is addressed by a stable identifier so callers can express an ordered
// cascade of equivalent-capability alternatives.
package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hrygo/automl/ai/core/errclass"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats represents statistics for a single backend call.
type CallStats struct {
	// PromptTokens is the number of tokens in the input prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the generated response.
	CompletionTokens int `json:"completion_tokens"`

	// TotalDurationMs is the total wall-clock time for the request.
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// Options tunes a single call. Zero values select the backend's configured defaults.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Backend is a single generative model endpoint.
type Backend interface {
	// ID returns the identifier used in model orders.
	ID() string

	// Chat performs synchronous chat. Returns content, statistics, and error.
	Chat(ctx context.Context, messages []Message, opts Options) (string, *CallStats, error)
}

// Config represents backend configuration.
type Config struct {
	ID          string // identifier referenced by model orders; defaults to Model
	Provider    string // openai, deepseek, siliconflow, openrouter, ollama, zai, dashscope, anthropic
	Model       string // gpt-4o-mini, deepseek-chat, claude-sonnet-4-20250514
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // Request timeout in seconds (default: 120)
}

// Provider default base URLs for OpenAI-compatible endpoints.
var providerBaseURLs = map[string]string{
	"deepseek":    "https://api.deepseek.com",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"zai":         "https://open.bigmodel.cn/api/paas/v4",
	"dashscope":   "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"openrouter":  "https://openrouter.ai/api/v1",
	"ollama":      "http://localhost:11434/v1",
	"openai":      "",
}

// NewBackend creates a backend for the configured provider.
func NewBackend(cfg *Config) (Backend, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("backend %q: model is required: %w", cfg.ID, errclass.ErrConfiguration)
	}
	if cfg.Provider != "ollama" && cfg.APIKey == "" {
		return nil, fmt.Errorf("backend %q (%s): API key is required: %w", cfg.ID, cfg.Provider, errclass.ErrConfiguration)
	}

	normalized := *cfg
	if normalized.ID == "" {
		normalized.ID = normalized.Model
	}
	if normalized.MaxTokens <= 0 {
		normalized.MaxTokens = 2048
	}
	if normalized.Temperature <= 0 {
		normalized.Temperature = 0.7
	}
	if normalized.Timeout <= 0 {
		normalized.Timeout = 120
	}

	switch normalized.Provider {
	case "anthropic":
		return newAnthropicBackend(&normalized), nil
	case "":
		return nil, fmt.Errorf("backend %q: provider is required: %w", normalized.ID, errclass.ErrConfiguration)
	default:
		if normalized.BaseURL == "" {
			normalized.BaseURL = providerBaseURLs[normalized.Provider]
		}
		return newOpenAIBackend(&normalized), nil
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// FormatMessages builds the message list for a single-turn request.
func FormatMessages(systemPrompt string, userContent string) []Message {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	return append(messages, UserMessage(userContent))
}
