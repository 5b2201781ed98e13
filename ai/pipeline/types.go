// Package pipeline combines intent classification, dataset acquisition and generation
// into one artifact bundle per request. Every stage degrades to its own fallback; the only
// error a caller sees is invalid input.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/automl/ai/dataset"
	"github.com/hrygo/automl/ai/generation"
	"github.com/hrygo/automl/ai/intent"
)

// MaxRows bounds the synthetic row count a caller may request.
const MaxRows = 100_000

// MaxRetriesPerModel bounds the per-backend attempts a caller may request.
const MaxRetriesPerModel = 10

// Generator produces text for one prompt. It must never fail.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) generation.Result
}

// Acquirer resolves a dataset query. It must never fail.
type Acquirer interface {
	Acquire(ctx context.Context, q dataset.Query) *dataset.Record
}

// Recorder receives run outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordPipelineRun(status string)
	RecordStage(stage string, latency time.Duration)
}

// Config holds the process-wide defaults a request may override. It is read-only after
// construction.
type Config struct {
	ModelOrder         []string
	MaxRetriesPerModel int
	BaseDelay          time.Duration
	Temperature        float32
	MaxTokens          int
	// RequestTimeout bounds a whole run; zero leaves the caller's deadline alone.
	RequestTimeout time.Duration
	SynthRows      int
	Seed           *uint64
}

// DefaultConfig returns the defaults used by the CLI and server.
func DefaultConfig() Config {
	return Config{
		MaxRetriesPerModel: 3,
		BaseDelay:          time.Second,
		Temperature:        0.2,
		MaxTokens:          2048,
		RequestTimeout:     2 * time.Minute,
	}
}

// Request is the caller's explicit configuration. Zero values fall back to Config.
type Request struct {
	Prompt             string   `json:"prompt"`
	TaskType           string   `json:"task_type,omitempty"`
	DatasetID          string   `json:"dataset_id,omitempty"`
	SearchTerms        []string `json:"search_terms,omitempty"`
	DomainHint         string   `json:"domain_hint,omitempty"`
	ModelOrder         []string `json:"model_order,omitempty"`
	MaxRetriesPerModel int      `json:"max_retries_per_model,omitempty"`
	BaseDelayMs        int64    `json:"base_delay_ms,omitempty"`
	Rows               int      `json:"rows,omitempty"`
	Seed               *uint64  `json:"seed,omitempty"`
	TimeoutMs          int64    `json:"timeout_ms,omitempty"`
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// validate checks the request and returns the parsed explicit task type.
func (r *Request) validate() (intent.TaskType, error) {
	if strings.TrimSpace(r.Prompt) == "" {
		return "", &ValidationError{Field: "prompt", Reason: "is required"}
	}
	task, err := intent.ParseTaskType(r.TaskType)
	if err != nil {
		return "", &ValidationError{Field: "task_type", Reason: err.Error()}
	}

	switch {
	case r.MaxRetriesPerModel < 0:
		return "", &ValidationError{Field: "max_retries_per_model", Reason: "must not be negative"}
	case r.MaxRetriesPerModel > MaxRetriesPerModel:
		return "", &ValidationError{Field: "max_retries_per_model", Reason: fmt.Sprintf("must not exceed %d", MaxRetriesPerModel)}
	case r.BaseDelayMs < 0:
		return "", &ValidationError{Field: "base_delay_ms", Reason: "must not be negative"}
	case r.TimeoutMs < 0:
		return "", &ValidationError{Field: "timeout_ms", Reason: "must not be negative"}
	case r.Rows < 0:
		return "", &ValidationError{Field: "rows", Reason: "must not be negative"}
	case r.Rows > MaxRows:
		return "", &ValidationError{Field: "rows", Reason: fmt.Sprintf("must not exceed %d", MaxRows)}
	}
	return task, nil
}

// PlanSource records whether an execution plan came from a backend or was built locally.
type PlanSource string

const (
	PlanGenerated PlanSource = "generated"
	PlanLocal     PlanSource = "local"
)

// PlanStep is one step of an execution plan.
type PlanStep struct {
	Name    string   `json:"name"`
	Detail  string   `json:"detail"`
	Outputs []string `json:"outputs,omitempty"`
}

// ExecutionPlan is the ordered list of steps a downstream runner would execute.
type ExecutionPlan struct {
	Steps  []PlanStep `json:"steps"`
	Source PlanSource `json:"source"`
}

// Bundle is the artifact set produced by one run.
type Bundle struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Prompt    string          `json:"prompt"`
	TaskSpec  intent.TaskSpec `json:"task_spec"`
	Dataset   *dataset.Record `json:"dataset"`

	// Script is the code extracted from Code.Text.
	Script          string            `json:"script"`
	Code            generation.Result `json:"code"`
	Explanation     generation.Result `json:"explanation"`
	ExplanationHTML string            `json:"explanation_html,omitempty"`
	Plan            ExecutionPlan     `json:"plan"`
	PlanGeneration  generation.Result `json:"plan_generation"`

	// Degraded is set when any artifact came from a fallback.
	Degraded bool `json:"degraded"`
}
