package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/automl/ai/core/errclass"
	"github.com/hrygo/automl/ai/core/llm"
	"github.com/hrygo/automl/ai/observability/logging"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client is the resilient generation client. It holds only read-only state and is safe
// for concurrent use.
type Client struct {
	registry *llm.Registry
	table    *FallbackTable
	sleep    SleepFunc
	recorder Recorder
}

// Option configures the client.
type Option func(*Client)

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithFallbackTable replaces the built-in keyed fallback table.
func WithFallbackTable(t *FallbackTable) Option {
	return func(c *Client) {
		if t != nil {
			c.table = t
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// NewClient creates a client over the given registry. A nil registry is allowed and
// makes every call degrade to fallback.
func NewClient(registry *llm.Registry, opts ...Option) *Client {
	c := &Client{
		registry: registry,
		table:    DefaultFallbackTable(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate never fails. Backends are tried strictly in req.ModelOrder (or registry order
// when empty), each up to req.MaxRetriesPerModel times. When every attempt fails, or ctx
// ends at a suspension point, the keyed table and then the generic template answer.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	log := logging.FromContext(ctx)

	order := req.ModelOrder
	if len(order) == 0 {
		order = c.registry.IDs()
	}
	retries := max(req.MaxRetriesPerModel, 1)
	messages := llm.FormatMessages(req.System, req.Prompt)
	opts := llm.Options{Temperature: req.Temperature, MaxTokens: req.MaxTokens}

	attempts := 0

cascade:
	for _, id := range order {
		backend, ok := c.registry.Get(id)
		if !ok {
			log.Warn("generation: unknown backend skipped", "backend", id)
			continue
		}

		for attempt := 1; attempt <= retries; attempt++ {
			if err := ctx.Err(); err != nil {
				log.Warn("generation: context done, abandoning live backends", "backend", id, "error", err)
				break cascade
			}

			attempts++
			start := time.Now()
			text, err := c.invoke(ctx, backend, messages, opts)
			if err == nil {
				c.recordAttempt(id, true)
				log.Debug("generation: backend succeeded",
					"backend", id,
					"attempt", attempt,
					"duration_ms", time.Since(start).Milliseconds())
				return c.finish(Result{
					Text:       text,
					SourceTier: TierLive,
					ModelUsed:  id,
					Attempts:   attempts,
				})
			}

			c.recordAttempt(id, false)
			log.Warn("generation: backend attempt failed",
				"backend", id,
				"attempt", attempt,
				"class", errclass.Classify(err).Class.String(),
				"error", err)

			if attempt == retries {
				break
			}
			if err := c.sleep(ctx, DelayFor(req.BaseDelay, attempt)); err != nil {
				log.Warn("generation: backoff interrupted", "backend", id, "error", err)
				break cascade
			}
		}
	}

	key := req.FallbackPrompt
	if strings.TrimSpace(key) == "" {
		key = req.Prompt
	}
	return c.finish(c.fallback(ctx, key, attempts))
}

// invoke calls one backend and converts blank text and panics into errors.
func (c *Client) invoke(ctx context.Context, b llm.Backend, messages []llm.Message, opts llm.Options) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend %s panicked: %v", b.ID(), r)
		}
	}()

	text, stats, err := b.Chat(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("backend %s: %w", b.ID(), errclass.ErrEmptyResult)
	}
	if stats != nil {
		logging.FromContext(ctx).Debug("generation: usage",
			"backend", b.ID(),
			"prompt_tokens", stats.PromptTokens,
			"completion_tokens", stats.CompletionTokens)
	}
	return text, nil
}

// fallback answers from the keyed table, then the generic template. key is the text
// both inspect.
func (c *Client) fallback(ctx context.Context, key string, attempts int) Result {
	res := Result{Attempts: attempts}
	if text, ok := c.table.Match(key); ok {
		res.Text = text
		res.SourceTier = TierFallbackKeyed
	} else {
		res.Text = GenericResponse(key)
		res.SourceTier = TierFallbackGeneric
	}

	logging.FromContext(ctx).Warn("generation: live backends exhausted, using fallback",
		"tier", string(res.SourceTier),
		"attempts", attempts,
		"error", errclass.ErrExhausted)
	return res
}

func (c *Client) finish(res Result) Result {
	if c.recorder != nil {
		c.recorder.RecordGenerationResult(string(res.SourceTier))
	}
	return res
}

func (c *Client) recordAttempt(backend string, success bool) {
	if c.recorder != nil {
		c.recorder.RecordGenerationAttempt(backend, success)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
