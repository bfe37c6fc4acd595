package service

import (
	"context"
	"errors"

	"gmdb/internal/analytics"
	"gmdb/internal/constants"
	"gmdb/internal/domain"
	"gmdb/internal/filter"
	"gmdb/internal/metrics"
	"gmdb/internal/search"

	"github.com/rs/zerolog"
)

type SearchService struct {
	dataset *DatasetService
	cache   search.ResultCache
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewSearchService(dataset *DatasetService, cache search.ResultCache, m *metrics.Metrics, logger zerolog.Logger) *SearchService {
	return &SearchService{dataset: dataset, cache: cache, metrics: m, logger: logger}
}

type SearchResult struct {
	Query          string       `json:"query"`
	Hits           []search.Hit `json:"hits"`
	Total          int          `json:"total"`
	Matched        int          `json:"matched"`
	AvailableYears []string     `json:"available_years"`
	FromCache      bool         `json:"from_cache"`
}

// Instant previews the first matches of a query and keeps the full hit list
// for a following Full call. An empty query returns an empty preview without
// fetching anything.
func (s *SearchService) Instant(ctx context.Context, query string) (search.Preview, error) {
	q := search.Normalize(query)
	if q == "" {
		return search.NewPreview("", nil, constants.SearchPreviewMax), nil
	}

	if hits, ok := s.cache.Get(q); ok {
		s.metrics.SearchCache(true)
		return search.NewPreview(q, hits, constants.SearchPreviewMax), nil
	}
	s.metrics.SearchCache(false)

	hits, err := s.scan(ctx, q)
	if err != nil {
		return search.Preview{}, err
	}

	s.logger.Debug().Str("query", q).Int("total", len(hits)).Msg("instant search")
	return search.NewPreview(q, hits, constants.SearchPreviewMax), nil
}

// Full returns every match for the query with the filter state and sort
// order applied, reusing the instant results when they are still cached.
func (s *SearchService) Full(ctx context.Context, query string, state domain.FilterState, order domain.SortOrder) (*SearchResult, error) {
	q := search.Normalize(query)
	result := &SearchResult{Query: q, Hits: []search.Hit{}, AvailableYears: []string{}}
	if q == "" {
		return result, nil
	}

	hits, ok := s.cache.Get(q)
	s.metrics.SearchCache(ok)
	if !ok {
		var err error
		hits, err = s.scan(ctx, q)
		if err != nil {
			return nil, err
		}
	}
	result.FromCache = ok
	result.Matched = len(hits)

	matched := search.Accounts(hits)
	result.AvailableYears = analytics.AvailableYears(matched)

	shown := filter.Display(matched, state, order)
	for _, a := range shown {
		result.Hits = append(result.Hits, search.Hit{Account: a, Region: domain.Region(a.ServerRegion)})
	}
	result.Total = len(result.Hits)

	s.logger.Info().
		Str("query", q).
		Int("matched", result.Matched).
		Int("shown", result.Total).
		Bool("from_cache", ok).
		Msg("full search")

	return result, nil
}

// scan matches q against every region. Failed regions add nothing; when all
// of them fail the result is empty and nothing is cached, so the next search
// tries again.
func (s *SearchService) scan(ctx context.Context, q string) ([]search.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	fan, err := s.dataset.AllShards(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoData) && ctx.Err() == nil:
		s.logger.Warn().Err(err).Str("query", q).Msg("search found no region to scan")
		return []search.Hit{}, nil
	default:
		s.logger.Error().Err(err).Str("query", q).Msg("search failed")
		return nil, err
	}

	hits := []search.Hit{}
	for _, shard := range fan.Shards {
		hits = append(hits, search.Shard(shard, q)...)
	}
	s.store(q, hits)
	return hits, nil
}

func (s *SearchService) store(q string, hits []search.Hit) {
	err := s.cache.Set(q, hits)
	switch {
	case err == nil:
		s.metrics.SearchCacheStore("stored")
	case errors.Is(err, search.ErrOversizeEntry):
		s.metrics.SearchCacheStore("overflow")
		s.logger.Debug().Err(err).Str("query", q).Int("hits", len(hits)).Msg("search results kept in overflow")
	default:
		s.metrics.SearchCacheStore("failed")
		s.logger.Warn().Err(err).Str("query", q).Int("hits", len(hits)).Msg("failed to cache search results")
	}
}
