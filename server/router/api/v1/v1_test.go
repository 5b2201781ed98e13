package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/dataset/acquire"
	"github.com/hrygo/automl/ai/generation"
	"github.com/hrygo/automl/ai/intent"
	"github.com/hrygo/automl/ai/pipeline"
	"github.com/hrygo/automl/internal/profile"
)

type countingTracker struct{ started, finished int }

func (t *countingTracker) RunStarted()  { t.started++ }
func (t *countingTracker) RunFinished() { t.finished++ }

func newTestService(t *testing.T, runner Runner, tracker RunTracker) (*APIV1Service, *echo.Echo) {
	t.Helper()
	p := &profile.Profile{
		Mode:               "dev",
		MaxConcurrentRuns:  1,
		MaxRetriesPerModel: 2,
		Backends:           []profile.Backend{{ID: "primary", Provider: "deepseek"}},
	}
	s := NewAPIV1Service(p, runner, tracker)
	e := echo.New()
	s.RegisterRoutes(e)
	return s, e
}

func offlineRunner(t *testing.T) Runner {
	t.Helper()
	gen := generation.NewClient(nil)
	return pipeline.New(gen, acquire.NewService(nil, acquire.Config{}), pipeline.DefaultConfig())
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestRunPipeline_Offline(t *testing.T) {
	tracker := &countingTracker{}
	_, e := newTestService(t, offlineRunner(t), tracker)

	rec := do(e, jsonRequest(http.MethodPost, "/api/v1/pipelines/run",
		`{"prompt":"Create a classification model for the Titanic dataset","rows":100,"seed":7}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var bundle pipeline.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, intent.TaskClassification, bundle.TaskSpec.TaskType)
	assert.Equal(t, 100, bundle.Dataset.RowCount)
	assert.Equal(t, generation.TierFallbackGeneric, bundle.Code.SourceTier)
	assert.True(t, bundle.Degraded)
	assert.Equal(t, 1, tracker.started)
	assert.Equal(t, 1, tracker.finished)
}

func TestRunPipeline_BadRequests(t *testing.T) {
	_, e := newTestService(t, offlineRunner(t), nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing prompt", `{"prompt":"  "}`, "prompt: is required"},
		{"unknown task", `{"prompt":"x","task_type":"ranking"}`, "task_type"},
		{"malformed body", `{"prompt":`, "JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, jsonRequest(http.MethodPost, "/api/v1/pipelines/run", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tt.want)
		})
	}
}

func TestRunPipeline_NoSlot(t *testing.T) {
	s, e := newTestService(t, offlineRunner(t), nil)
	require.NoError(t, s.runSemaphore.Acquire(context.Background(), 1))
	defer s.runSemaphore.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := jsonRequest(http.MethodPost, "/api/v1/pipelines/run", `{"prompt":"classify spam"}`).WithContext(ctx)

	rec := do(e, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClassifyIntent(t *testing.T) {
	_, e := newTestService(t, offlineRunner(t), nil)

	rec := do(e, jsonRequest(http.MethodPost, "/api/v1/intent/classify", `{"prompt":"Predict house prices"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var spec intent.TaskSpec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.Equal(t, intent.TaskRegression, spec.TaskType)
	assert.Equal(t, "price", spec.TargetHint)

	rec = do(e, jsonRequest(http.MethodPost, "/api/v1/intent/classify", `{"prompt":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSyntheticDataset(t *testing.T) {
	_, e := newTestService(t, offlineRunner(t), nil)

	get := func(query string) *httptest.ResponseRecorder {
		return do(e, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/synthetic?"+query, http.NoBody))
	}

	rec := get("domain=medical&rows=120&seed=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "synthetic", rec.Header().Get("X-Source-Tier"))
	assert.Equal(t, "120", rec.Header().Get("X-Row-Count"))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "insurance.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "age,sex,bmi,children,smoker,region,charges\n"))

	again := get("domain=medical&rows=120&seed=5")
	assert.Equal(t, rec.Body.String(), again.Body.String())

	clustering := get("task=clustering&rows=100")
	require.Equal(t, http.StatusOK, clustering.Code)
	assert.NotContains(t, strings.SplitN(clustering.Body.String(), "\n", 2)[0], "target")

	for _, bad := range []string{"rows=0", "rows=abc", "seed=-3", "task=ranking"} {
		assert.Equal(t, http.StatusBadRequest, get(bad).Code, bad)
	}
}

func TestGetStatus(t *testing.T) {
	_, e := newTestService(t, offlineRunner(t), nil)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"primary"}, body.Backends)
	assert.Equal(t, 1, body.MaxConcurrentRuns)
	assert.NotEmpty(t, body.Version.Version)
}
