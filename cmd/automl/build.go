package main

import (
	"log/slog"
	"time"

	"github.com/hrygo/automl/ai/cache"
	"github.com/hrygo/automl/ai/configloader"
	"github.com/hrygo/automl/ai/core/llm"
	"github.com/hrygo/automl/ai/core/reranker"
	"github.com/hrygo/automl/ai/dataset/acquire"
	"github.com/hrygo/automl/ai/dataset/synth"
	"github.com/hrygo/automl/ai/generation"
	"github.com/hrygo/automl/ai/metrics"
	"github.com/hrygo/automl/ai/pipeline"
	"github.com/hrygo/automl/internal/profile"
	"github.com/hrygo/automl/plugin/catalog"
)

type app struct {
	exporter     *metrics.PrometheusExporter
	orchestrator *pipeline.Orchestrator
}

// buildApp constructs every collaborator once. offline skips the catalog entirely.
func buildApp(p *profile.Profile, offline bool) (*app, error) {
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	cfgs := make([]llm.Config, len(p.Backends))
	for i, b := range p.Backends {
		cfgs[i] = llm.Config{
			ID:          b.ID,
			Provider:    b.Provider,
			Model:       b.Model,
			APIKey:      b.APIKey,
			BaseURL:     b.BaseURL,
			Timeout:     b.Timeout,
			MaxTokens:   p.MaxTokens,
			Temperature: p.Temperature,
		}
	}
	registry, err := llm.NewRegistry(cfgs)
	if err != nil {
		return nil, err
	}

	genOpts := []generation.Option{generation.WithRecorder(exporter)}
	if p.FallbackFile != "" {
		table, err := generation.LoadFallbackTable(configloader.NewLoader(p.ConfigDir), p.FallbackFile)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded fallback responses", "file", p.FallbackFile, "entries", table.Len())
		genOpts = append(genOpts, generation.WithFallbackTable(table))
	}
	gen := generation.NewClient(registry, genOpts...)

	// Keep the interface nil when there is no catalog; a typed nil would look configured.
	var cat acquire.Catalog
	if !offline && p.IsCatalogConfigured() {
		client, err := catalog.NewClient(catalog.Config{
			BaseURL:           p.CatalogBaseURL,
			Username:          p.CatalogUsername,
			Key:               p.CatalogKey,
			RequestsPerSecond: p.CatalogRPS,
		})
		if err != nil {
			return nil, err
		}
		cat = client
	}

	ranker, err := reranker.NewService(&reranker.Config{
		Model:   p.RerankModel,
		APIKey:  p.RerankAPIKey,
		BaseURL: p.RerankBaseURL,
		Timeout: 15 * time.Second,
		Enabled: p.IsRerankEnabled(),
	})
	if err != nil {
		return nil, err
	}

	acq := acquire.NewService(cat, acquire.Config{
		EnableLiveDownload: p.EnableLiveDownload && !offline,
		MaxRows:            p.MaxDatasetRows,
		Synth:              synth.Options{Rows: p.SynthRows, Seed: p.SynthSeed},
	}, acquire.WithRecorder(exporter),
		acquire.WithReranker(ranker),
		acquire.WithSearchCache(cache.New[string, []catalog.DatasetSummary](cache.DefaultCapacity, cache.DefaultTTL)))

	orch := pipeline.New(gen, acq, pipeline.Config{
		ModelOrder:         p.ModelOrder,
		MaxRetriesPerModel: p.MaxRetriesPerModel,
		BaseDelay:          time.Duration(p.BaseDelayMs) * time.Millisecond,
		Temperature:        p.Temperature,
		MaxTokens:          p.MaxTokens,
		RequestTimeout:     time.Duration(p.RequestTimeoutSeconds) * time.Second,
		SynthRows:          p.SynthRows,
		Seed:               p.SynthSeed,
	}, pipeline.WithRecorder(exporter))

	return &app{exporter: exporter, orchestrator: orch}, nil
}
