package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/dataset/acquire"
	"github.com/hrygo/automl/ai/generation"
	"github.com/hrygo/automl/ai/metrics"
	"github.com/hrygo/automl/ai/pipeline"
	"github.com/hrygo/automl/internal/profile"
)

func newTestServer(t *testing.T) (*Server, *metrics.PrometheusExporter) {
	t.Helper()
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	orch := pipeline.New(
		generation.NewClient(nil, generation.WithRecorder(exporter)),
		acquire.NewService(nil, acquire.Config{}, acquire.WithRecorder(exporter)),
		pipeline.DefaultConfig(),
		pipeline.WithRecorder(exporter),
	)
	s, err := NewServer(context.Background(), &profile.Profile{Port: 28090, MaxConcurrentRuns: 2}, orch, exporter)
	require.NoError(t, err)
	return s, exporter
}

func TestNewServer_RequiresRunner(t *testing.T) {
	_, err := NewServer(context.Background(), &profile.Profile{}, nil, nil)
	assert.Error(t, err)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"prompt":"Group similar customers into segments","rows":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipelines/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	metricsBody := rec.Body.String()
	assert.Contains(t, metricsBody, `automl_pipeline_runs_total{status="degraded"} 1`)
	assert.Contains(t, metricsBody, `automl_dataset_acquisitions_total{tier="synthetic"} 1`)
	assert.Contains(t, metricsBody, `automl_generation_results_total{tier="fallback-generic"} 3`)
	assert.Contains(t, metricsBody, "automl_pipeline_active_runs 0")
}

func TestServer_StartShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	s.Profile.Addr = "127.0.0.1"
	s.Profile.Port = 0

	require.NoError(t, s.Start(context.Background()))
	s.Shutdown(context.Background())
}
