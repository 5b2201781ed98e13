package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/automl/ai/core/errclass"
)

// openaiBackend talks to any OpenAI-compatible chat completion endpoint.
type openaiBackend struct {
	client      *openai.Client
	id          string
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int // Request timeout in seconds
}

func newOpenAIBackend(cfg *Config) *openaiBackend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(time.Duration(cfg.Timeout) * time.Second)

	if _, known := providerBaseURLs[cfg.Provider]; !known {
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider, "backend", cfg.ID)
	}

	return &openaiBackend{
		client:      openai.NewClientWithConfig(clientConfig),
		id:          cfg.ID,
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

func (b *openaiBackend) ID() string {
	return b.id
}

func (b *openaiBackend) Chat(ctx context.Context, messages []Message, opts Options) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(b.timeout)*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
		Messages:    convertMessages(messages),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}

	slog.Debug("LLM: chat request",
		"backend", b.id,
		"provider", b.provider,
		"model", b.model,
		"messages_count", len(messages),
	)

	startTime := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("backend %s chat failed: %w", b.id, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", nil, fmt.Errorf("backend %s: %w", b.id, errclass.ErrEmptyResult)
	}

	stats := &CallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalDurationMs:  time.Since(startTime).Milliseconds(),
	}

	return resp.Choices[0].Message.Content, stats, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return llmMessages
}
