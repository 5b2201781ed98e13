package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hrygo/automl/ai/core/errclass"
)

// anthropicBackend calls the Anthropic Messages API.
type anthropicBackend struct {
	client      anthropic.Client
	id          string
	model       anthropic.Model
	maxTokens   int
	temperature float32
	timeout     int
}

func newAnthropicBackend(cfg *Config) *anthropicBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(newHTTPClient(time.Duration(cfg.Timeout) * time.Second)),
		// Retries are owned by the generation cascade.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicBackend{
		client:      anthropic.NewClient(opts...),
		id:          cfg.ID,
		model:       anthropic.Model(cfg.Model),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

func (b *anthropicBackend) ID() string {
	return b.id
}

func (b *anthropicBackend) Chat(ctx context.Context, messages []Message, opts Options) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(b.timeout)*time.Second)
	defer cancel()

	maxTokens := b.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := b.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       b.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(temperature)),
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	slog.Debug("LLM: chat request", "backend", b.id, "provider", "anthropic", "model", b.model)

	startTime := time.Now()
	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("backend %s chat failed: %w", b.id, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", nil, fmt.Errorf("backend %s: %w", b.id, errclass.ErrEmptyResult)
	}

	return sb.String(), &CallStats{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalDurationMs:  time.Since(startTime).Milliseconds(),
	}, nil
}
