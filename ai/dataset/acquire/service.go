// Package acquire resolves a dataset through three tiers: live download of a named
// catalog entry, catalog search, and local synthesis. It never reports failure to the
// caller; it degrades instead and stamps the tier that actually produced the record.
package acquire

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/automl/ai/cache"
	"github.com/hrygo/automl/ai/core/errclass"
	"github.com/hrygo/automl/ai/core/reranker"
	"github.com/hrygo/automl/ai/dataset"
	"github.com/hrygo/automl/ai/dataset/synth"
	"github.com/hrygo/automl/ai/observability/logging"
	"github.com/hrygo/automl/plugin/catalog"
)

// Catalog is the subset of the catalog client the service consumes.
type Catalog interface {
	Metadata(ctx context.Context, ref string) (*catalog.DatasetMetadata, error)
	Download(ctx context.Context, ref string) ([]byte, error)
	Search(ctx context.Context, query string) ([]catalog.DatasetSummary, error)
}

// Recorder receives tier outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordAcquisition(tier string)
	RecordTierFailure(tier string)
}

// Config holds read-only acquisition settings.
type Config struct {
	// EnableLiveDownload gates tiers 1 and 2. When false every call synthesizes.
	EnableLiveDownload bool
	// MaxRows truncates downloaded datasets; zero keeps every row.
	MaxRows int
	// MaxExtractBytes caps decompressed archive size.
	MaxExtractBytes int64
	Synth           synth.Options
}

// Service is safe for concurrent use; it holds no per-request state.
type Service struct {
	catalog  Catalog
	ranker   reranker.Service
	searches *cache.LRU[string, []catalog.DatasetSummary]
	recorder Recorder
	cfg      Config
}

// Option configures the service.
type Option func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithReranker reorders search hits by relevance before the top hit is taken.
func WithReranker(r reranker.Service) Option {
	return func(s *Service) {
		s.ranker = r
	}
}

// WithSearchCache remembers search hits per query. Failed or empty searches are not cached.
func WithSearchCache(c *cache.LRU[string, []catalog.DatasetSummary]) Option {
	return func(s *Service) {
		s.searches = c
	}
}

// NewService creates a service. A nil catalog means offline operation.
func NewService(c Catalog, cfg Config, opts ...Option) *Service {
	s := &Service{catalog: c, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns exactly one record. Tiers run strictly in order, each at most once.
func (s *Service) Acquire(ctx context.Context, q dataset.Query) *dataset.Record {
	log := logging.FromContext(ctx)
	online := s.cfg.EnableLiveDownload && s.catalog != nil

	if !online {
		reason := "live download disabled"
		if s.catalog == nil {
			reason = "no catalog configured"
		}
		log.Info("acquire: skipping catalog tiers", "reason", reason)
	}

	ref := strings.TrimSpace(q.Identifier)

	if online && ref != "" && ctx.Err() == nil {
		rec, err := s.liveDownload(ctx, ref, dataset.TierLiveDownload)
		if err == nil {
			return s.done(ctx, rec)
		}
		s.tierFailed(ctx, dataset.TierLiveDownload, err)
	}

	if online && ctx.Err() == nil {
		rec, err := s.catalogSearch(ctx, q, ref)
		if err == nil {
			return s.done(ctx, rec)
		}
		s.tierFailed(ctx, dataset.TierCatalogSearch, err)
	}

	return s.done(ctx, s.synthesize(q))
}

// liveDownload fetches metadata then data for ref. Both must succeed with at least one
// parseable row.
func (s *Service) liveDownload(ctx context.Context, ref string, tier dataset.SourceTier) (rec *dataset.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", tier, r)
		}
	}()

	meta, err := s.catalog.Metadata(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", ref, err)
	}

	payload, err := s.catalog.Download(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref, err)
	}

	content, err := ExtractCSV(payload, s.cfg.MaxExtractBytes)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ref, err)
	}

	if s.cfg.MaxRows > 0 {
		if content, err = dataset.TruncateRows(content, s.cfg.MaxRows); err != nil {
			return nil, fmt.Errorf("truncate %s: %w", ref, err)
		}
	}

	return dataset.NewRecord(content, tier, dataset.Metadata{
		Title:       meta.Title,
		Description: meta.Summary(),
		Identifier:  meta.Ref,
	})
}

// catalogSearch takes the top-ranked hit, skipping the ref tier 1 already failed on.
func (s *Service) catalogSearch(ctx context.Context, q dataset.Query, failedRef string) (*dataset.Record, error) {
	query := searchQuery(q)
	if query == "" {
		return nil, fmt.Errorf("%w: no search terms", errclass.ErrEmptyResult)
	}

	hits, err := s.search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	hits = s.rank(ctx, query, hits)

	for _, hit := range hits {
		if failedRef != "" && strings.EqualFold(hit.Ref, failedRef) {
			continue
		}
		logging.FromContext(ctx).Debug("acquire: trying search hit", "ref", hit.Ref, "query", query)
		return s.liveDownload(ctx, hit.Ref, dataset.TierCatalogSearch)
	}
	return nil, fmt.Errorf("search %q: %w", query, errclass.ErrEmptyResult)
}

func (s *Service) search(ctx context.Context, query string) ([]catalog.DatasetSummary, error) {
	key := strings.ToLower(query)
	if s.searches != nil {
		if hits, ok := s.searches.Get(key); ok {
			logging.FromContext(ctx).Debug("acquire: search cache hit", "query", query, "hits", len(hits))
			return hits, nil
		}
	}
	hits, err := s.catalog.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.searches != nil && len(hits) > 0 {
		s.searches.Set(key, hits)
	}
	return hits, nil
}

// rank reorders hits with the reranker when one is enabled; failures keep catalog order.
func (s *Service) rank(ctx context.Context, query string, hits []catalog.DatasetSummary) []catalog.DatasetSummary {
	if s.ranker == nil || !s.ranker.IsEnabled() || len(hits) < 2 {
		return hits
	}

	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = strings.TrimSpace(h.Title + ". " + h.Subtitle)
	}

	results, err := s.ranker.Rerank(ctx, query, docs, 0)
	if err != nil || len(results) == 0 {
		logging.FromContext(ctx).Warn("acquire: rerank failed, keeping catalog order", "error", err)
		return hits
	}

	ranked := make([]catalog.DatasetSummary, 0, len(hits))
	for _, r := range results {
		ranked = append(ranked, hits[r.Index])
	}
	return ranked
}

// synthesize picks the first hint that maps to a known domain: the domain hint, then the
// identifier, then the search terms.
func (s *Service) synthesize(q dataset.Query) *dataset.Record {
	hint := q.DomainHint
	for _, candidate := range []string{q.DomainHint, q.Identifier, strings.Join(q.SearchTerms, " ")} {
		if synth.DomainFor(candidate) != synth.DomainGeneric {
			hint = candidate
			break
		}
	}

	opts := s.cfg.Synth
	if q.TaskType != "" {
		opts.TaskType = q.TaskType
	}
	if q.SynthRows > 0 {
		opts.Rows = q.SynthRows
	}
	if q.SynthSeed != nil {
		opts.Seed = q.SynthSeed
	}
	return synth.Synthesize(hint, opts)
}

func (s *Service) done(ctx context.Context, rec *dataset.Record) *dataset.Record {
	logging.FromContext(ctx).Info("acquire: dataset resolved",
		"tier", string(rec.SourceTier),
		"rows", rec.RowCount,
		"columns", rec.ColumnCount,
		"title", rec.Metadata.Title)
	if s.recorder != nil {
		s.recorder.RecordAcquisition(string(rec.SourceTier))
	}
	return rec
}

func (s *Service) tierFailed(ctx context.Context, tier dataset.SourceTier, err error) {
	logging.FromContext(ctx).Warn("acquire: tier failed",
		"tier", string(tier),
		"class", errclass.Classify(err).Class.String(),
		"error", err)
	if s.recorder != nil {
		s.recorder.RecordTierFailure(string(tier))
	}
}

func searchQuery(q dataset.Query) string {
	terms := make([]string, 0, len(q.SearchTerms))
	for _, t := range q.SearchTerms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	// Fall back to the slug of the identifier, e.g. "owner/titanic-data" -> "titanic data".
	if _, slug, ok := strings.Cut(q.Identifier, "/"); ok {
		return strings.ReplaceAll(slug, "-", " ")
	}
	return strings.TrimSpace(q.Identifier)
}
