// Package generation implements the resilient text generation client.
// It walks an ordered list of backends with per-backend retry and exponential backoff,
// and degrades to canned or templated responses once every live attempt is exhausted.
package generation

import (
	"time"
)

// SourceTier identifies which tier produced a Result.
type SourceTier string

const (
	TierLive            SourceTier = "live"
	TierFallbackKeyed   SourceTier = "fallback-keyed"
	TierFallbackGeneric SourceTier = "fallback-generic"
)

// IsFallback reports whether the text came from a local fallback.
func (t SourceTier) IsFallback() bool {
	return t != TierLive
}

// Request is read-only for the duration of a Generate call.
type Request struct {
	Prompt string
	// FallbackPrompt, when set, replaces Prompt as the text the keyed table and the
	// generic template inspect once live backends are exhausted.
	FallbackPrompt string
	// System is an optional system prompt passed to every backend.
	System string
	// ModelOrder lists backend ids in the order they are tried.
	ModelOrder         []string
	MaxRetriesPerModel int
	// BaseDelay is the wait before the second attempt; each further attempt doubles it.
	BaseDelay   time.Duration
	Temperature float32
	MaxTokens   int
}

// Result is returned exactly once per Generate call. Text is never empty.
type Result struct {
	Text       string     `json:"text"`
	SourceTier SourceTier `json:"source_tier"`
	// ModelUsed is empty for fallback results.
	ModelUsed string `json:"model_used,omitempty"`
	// Attempts counts every backend invocation made during the call.
	Attempts int `json:"attempts"`
}

// Recorder receives generation outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordGenerationAttempt(backend string, success bool)
	RecordGenerationResult(tier string)
}

// MaxDelay caps a single backoff wait.
const MaxDelay = 5 * time.Minute

// DelayFor returns the backoff before attempt+1 on the same backend (attempt is 1-based).
// The doubling saturates at MaxDelay.
func DelayFor(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	if base >= MaxDelay {
		return MaxDelay
	}
	d := base
	for i := 1; i < attempt; i++ {
		d <<= 1
		if d >= MaxDelay {
			return MaxDelay
		}
	}
	return d
}
