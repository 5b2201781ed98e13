package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hrygo/automl/ai/core/errclass"
	"github.com/hrygo/automl/ai/dataset"
	"github.com/hrygo/automl/ai/dataset/synth"
	"github.com/hrygo/automl/ai/generation"
	"github.com/hrygo/automl/ai/intent"
	"github.com/hrygo/automl/ai/observability/logging"
)

// Run statuses reported to the recorder.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusInvalid  = "invalid"
)

// Orchestrator runs the stages of one request. It holds only read-only state, so one
// instance serves concurrent runs.
type Orchestrator struct {
	classifier *intent.Classifier
	generator  Generator
	acquirer   Acquirer
	recorder   Recorder
	markdown   goldmark.Markdown
	cfg        Config
	now        func() time.Time
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c *intent.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// New creates an orchestrator over a generator and an acquirer.
func New(gen Generator, acq Acquirer, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: intent.NewClassifier(),
		generator:  gen,
		acquirer:   acq,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run produces a bundle. The only error it returns is a *ValidationError.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Bundle, error) {
	explicit, err := req.validate()
	if err != nil {
		o.recordRun(StatusInvalid)
		return nil, err
	}

	if timeout := o.timeout(req); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	b := &Bundle{
		ID:        uuid.NewString(),
		CreatedAt: o.now().UTC(),
		Prompt:    strings.TrimSpace(req.Prompt),
	}
	log := logging.FromContext(ctx).WithField("run_id", b.ID)
	ctx = logging.ToContext(ctx, log)
	start := time.Now()
	log.Info("pipeline: run started", "prompt_len", len(b.Prompt), "explicit_task", string(explicit))

	b.TaskSpec = runStage(ctx, o, "classify",
		func(context.Context) (intent.TaskSpec, error) {
			return o.classifier.Classify(b.Prompt, explicit), nil
		},
		func() intent.TaskSpec { return defaultSpec(explicit) })

	query := o.datasetQuery(req, b.Prompt, b.TaskSpec)
	b.Dataset = runStage(ctx, o, "acquire",
		func(ctx context.Context) (*dataset.Record, error) {
			rec := o.acquirer.Acquire(ctx, query)
			if err := rec.Validate(); err != nil {
				return nil, fmt.Errorf("acquirer returned an unusable record: %w", err)
			}
			return rec, nil
		},
		func() *dataset.Record { return synthesizeFallback(query) })

	target := targetColumn(b.TaskSpec, b.Dataset)
	genReq := o.generationRequest(req)

	b.Code = o.generate(ctx, "code", genReq, codeSystemPrompt,
		codePrompt(b.Prompt, b.TaskSpec, b.Dataset, target), fallbackKey("code", b.TaskSpec, target))
	b.Script = generation.ExtractCode(b.Code.Text)

	b.Explanation = o.generate(ctx, "explanation", genReq, explanationSystemPrompt,
		explanationPrompt(b.Prompt, b.TaskSpec, b.Dataset, target), fallbackKey("explanation", b.TaskSpec, target))
	b.ExplanationHTML = o.renderMarkdown(ctx, b.Explanation.Text)

	b.PlanGeneration = o.generate(ctx, "plan", genReq, planSystemPrompt,
		planPrompt(b.Prompt, b.TaskSpec, b.Dataset, target), fallbackKey("plan", b.TaskSpec, target))
	b.Plan = o.plan(ctx, b.PlanGeneration, b.TaskSpec, b.Dataset, target)

	b.Degraded = b.Dataset.SourceTier == dataset.TierSynthetic ||
		b.Code.SourceTier.IsFallback() ||
		b.Explanation.SourceTier.IsFallback() ||
		b.PlanGeneration.SourceTier.IsFallback() ||
		b.Plan.Source == PlanLocal

	status := StatusOK
	if b.Degraded {
		status = StatusDegraded
	}
	o.recordRun(status)
	log.Info("pipeline: run finished",
		"status", status,
		"task_type", string(b.TaskSpec.TaskType),
		"dataset_tier", string(b.Dataset.SourceTier),
		"code_tier", string(b.Code.SourceTier),
		"plan_source", string(b.Plan.Source),
		"duration_ms", time.Since(start).Milliseconds())
	return b, nil
}

// runStage isolates one stage: a panic or error is logged and replaced by the stage's
// own fallback.
func runStage[T any](ctx context.Context, o *Orchestrator, stage string, fn func(context.Context) (T, error), fallback func() T) (out T) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("pipeline: stage panicked, using fallback", "stage", stage, "panic", r)
			out = fallback()
		}
		o.recordStage(stage, time.Since(start))
	}()

	out, err := fn(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("pipeline: stage failed, using fallback",
			"stage", stage,
			"class", errclass.Classify(err).Class.String(),
			"error", err)
		return fallback()
	}
	return out
}

func (o *Orchestrator) generate(ctx context.Context, stage string, base generation.Request, system, prompt, key string) generation.Result {
	req := base
	req.System = system
	req.Prompt = prompt
	req.FallbackPrompt = key
	return runStage(ctx, o, stage,
		func(ctx context.Context) (generation.Result, error) {
			res := o.generator.Generate(ctx, req)
			if strings.TrimSpace(res.Text) == "" {
				return res, fmt.Errorf("generator: %w", errclass.ErrEmptyResult)
			}
			return res, nil
		},
		func() generation.Result {
			return generation.Result{Text: generation.GenericResponse(key), SourceTier: generation.TierFallbackGeneric}
		})
}

func (o *Orchestrator) plan(ctx context.Context, res generation.Result, spec intent.TaskSpec, rec *dataset.Record, target string) ExecutionPlan {
	plan, err := parsePlan(res.Text)
	if err == nil {
		return plan
	}
	if !res.SourceTier.IsFallback() {
		logging.FromContext(ctx).Warn("pipeline: generated plan unusable, building local plan", "error", err)
	}
	return localPlan(spec, rec, target)
}

func (o *Orchestrator) renderMarkdown(ctx context.Context, text string) string {
	var buf bytes.Buffer
	if err := o.markdown.Convert([]byte(text), &buf); err != nil {
		logging.FromContext(ctx).Warn("pipeline: markdown rendering failed", "error", err)
		return ""
	}
	return buf.String()
}

func (o *Orchestrator) datasetQuery(req Request, prompt string, spec intent.TaskSpec) dataset.Query {
	q := dataset.Query{
		Identifier:  strings.TrimSpace(req.DatasetID),
		SearchTerms: req.SearchTerms,
		DomainHint:  strings.TrimSpace(req.DomainHint),
		TaskType:    spec.TaskType,
		SynthRows:   o.cfg.SynthRows,
		SynthSeed:   o.cfg.Seed,
	}
	if len(q.SearchTerms) == 0 {
		q.SearchTerms = salientTerms(prompt)
	}
	if q.DomainHint == "" {
		q.DomainHint = strings.TrimSpace(prompt + " " + spec.TargetHint)
	}
	if req.Rows > 0 {
		q.SynthRows = req.Rows
	}
	if req.Seed != nil {
		q.SynthSeed = req.Seed
	}
	return q
}

func (o *Orchestrator) generationRequest(req Request) generation.Request {
	out := generation.Request{
		ModelOrder:         o.cfg.ModelOrder,
		MaxRetriesPerModel: o.cfg.MaxRetriesPerModel,
		BaseDelay:          o.cfg.BaseDelay,
		Temperature:        o.cfg.Temperature,
		MaxTokens:          o.cfg.MaxTokens,
	}
	if len(req.ModelOrder) > 0 {
		out.ModelOrder = req.ModelOrder
	}
	if req.MaxRetriesPerModel > 0 {
		out.MaxRetriesPerModel = req.MaxRetriesPerModel
	}
	if req.BaseDelayMs > 0 {
		out.BaseDelay = time.Duration(req.BaseDelayMs) * time.Millisecond
	}
	return out
}

func (o *Orchestrator) timeout(req Request) time.Duration {
	if req.TimeoutMs > 0 {
		return time.Duration(req.TimeoutMs) * time.Millisecond
	}
	return o.cfg.RequestTimeout
}

func (o *Orchestrator) recordRun(status string) {
	if o.recorder != nil {
		o.recorder.RecordPipelineRun(status)
	}
}

func (o *Orchestrator) recordStage(stage string, d time.Duration) {
	if o.recorder != nil {
		o.recorder.RecordStage(stage, d)
	}
}

func defaultSpec(explicit intent.TaskType) intent.TaskSpec {
	task := explicit
	if task == "" {
		task = intent.TaskClassification
	}
	return intent.TaskSpec{TaskType: task, Complexity: intent.ComplexityModerate}
}

func synthesizeFallback(q dataset.Query) *dataset.Record {
	return synth.Synthesize(q.DomainHint, synth.Options{Rows: q.SynthRows, Seed: q.SynthSeed, TaskType: q.TaskType})
}

// IsValidationError reports whether err is caller input rejected by Run.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
