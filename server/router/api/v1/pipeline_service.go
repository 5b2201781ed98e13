package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/automl/ai/intent"
	"github.com/hrygo/automl/ai/observability/logging"
	"github.com/hrygo/automl/ai/pipeline"
	"github.com/hrygo/automl/internal/version"
)

// RunPipeline handles POST /api/v1/pipelines/run.
func (s *APIV1Service) RunPipeline(c echo.Context) error {
	var req pipeline.Request
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be a JSON object")
	}

	ctx := c.Request().Context()
	if err := s.runSemaphore.Acquire(ctx, 1); err != nil {
		logging.FromContext(ctx).Warn("api: no pipeline slot before the request ended", "error", err)
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "too many pipeline runs in flight, retry later"})
	}
	defer s.runSemaphore.Release(1)

	if s.Tracker != nil {
		s.Tracker.RunStarted()
		defer s.Tracker.RunFinished()
	}

	bundle, err := s.Runner.Run(ctx, req)
	if err != nil {
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			return badRequest(c, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "pipeline run failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, bundle)
}

type classifyRequest struct {
	Prompt   string `json:"prompt"`
	TaskType string `json:"task_type,omitempty"`
}

// ClassifyIntent handles POST /api/v1/intent/classify.
func (s *APIV1Service) ClassifyIntent(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be a JSON object")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return badRequest(c, "prompt is required")
	}
	task, err := intent.ParseTaskType(req.TaskType)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, s.Classifier.Classify(req.Prompt, task))
}

type statusResponse struct {
	Version            version.Info `json:"version"`
	Mode               string       `json:"mode"`
	Backends           []string     `json:"backends"`
	ModelOrder         []string     `json:"model_order,omitempty"`
	LiveDownload       bool         `json:"live_download"`
	Rerank             bool         `json:"rerank"`
	MaxConcurrentRuns  int          `json:"max_concurrent_runs"`
	MaxRetriesPerModel int          `json:"max_retries_per_model"`
}

// GetStatus handles GET /api/v1/status.
func (s *APIV1Service) GetStatus(c echo.Context) error {
	p := s.Profile
	backends := make([]string, len(p.Backends))
	for i, b := range p.Backends {
		backends[i] = b.ID
	}
	return c.JSON(http.StatusOK, statusResponse{
		Version:            version.Get(),
		Mode:               p.Mode,
		Backends:           backends,
		ModelOrder:         p.ModelOrder,
		LiveDownload:       p.EnableLiveDownload,
		Rerank:             p.IsRerankEnabled(),
		MaxConcurrentRuns:  p.MaxConcurrentRuns,
		MaxRetriesPerModel: p.MaxRetriesPerModel,
	})
}
