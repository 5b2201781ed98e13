package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/automl/ai/intent"
	"github.com/hrygo/automl/ai/pipeline"
	"github.com/hrygo/automl/internal/profile"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Bundle, error)
}

// RunTracker observes in-flight runs; the Prometheus exporter implements it.
type RunTracker interface {
	RunStarted()
	RunFinished()
}

type APIV1Service struct {
	Profile    *profile.Profile
	Runner     Runner
	Classifier *intent.Classifier
	Tracker    RunTracker

	// Bounds concurrent pipeline runs; each holds backend and catalog connections.
	runSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, runner Runner, tracker RunTracker) *APIV1Service {
	limit := int64(max(profile.MaxConcurrentRuns, 1))
	return &APIV1Service{
		Profile:      profile,
		Runner:       runner,
		Classifier:   intent.NewClassifier(),
		Tracker:      tracker,
		runSemaphore: semaphore.NewWeighted(limit),
	}
}

// RegisterRoutes registers the REST handlers with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	corsHandler := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	})

	apiGroup := echoServer.Group("/api/v1", corsHandler, middleware.BodyLimit("1M"))
	apiGroup.POST("/pipelines/run", s.RunPipeline)
	apiGroup.POST("/intent/classify", s.ClassifyIntent)
	apiGroup.GET("/datasets/synthetic", s.GetSyntheticDataset)
	apiGroup.GET("/status", s.GetStatus)
}

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
