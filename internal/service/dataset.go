package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gmdb/internal/analytics"
	"gmdb/internal/constants"
	"gmdb/internal/domain"
	"gmdb/internal/filter"
	"gmdb/internal/metrics"
	"gmdb/internal/tracker"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNoData is returned when every region fetch of a fan-out failed.
var ErrNoData = errors.New("no region could be loaded")

type Fetcher interface {
	FetchRegion(ctx context.Context, region domain.Region) (domain.RegionShard, error)
	FetchIndex(ctx context.Context) (*domain.IndexManifest, error)
	FetchServers(ctx context.Context) (*domain.ServerManifest, error)
}

// RunLog lists committed tracking cycles. Only the sqlite history keeps one.
type RunLog interface {
	Runs(ctx context.Context, limit int) ([]domain.TrackerRun, error)
}

type DatasetService struct {
	fetcher Fetcher
	tracker *tracker.Tracker
	runs    RunLog
	metrics *metrics.Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

func NewDatasetService(fetcher Fetcher, tr *tracker.Tracker, runs RunLog, m *metrics.Metrics, logger zerolog.Logger) *DatasetService {
	return &DatasetService{
		fetcher: fetcher,
		tracker: tr,
		runs:    runs,
		metrics: m,
		now:     time.Now,
		logger:  logger,
	}
}

// FanOut is the settled result of fetching every supported region.
type FanOut struct {
	Shards []domain.RegionShard
	Failed []domain.Region
}

type RegionListing struct {
	Region         domain.Region    `json:"region"`
	DisplayName    string           `json:"display_name"`
	Accounts       []domain.Account `json:"accounts"`
	Total          int              `json:"total"`
	Shown          int              `json:"shown"`
	AvailableYears []string         `json:"available_years"`
	LastUpdated    *time.Time       `json:"last_updated,omitempty"`
}

func (s *DatasetService) Index(ctx context.Context) (*domain.IndexManifest, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	idx, err := s.fetcher.FetchIndex(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch index manifest")
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	return idx, nil
}

func (s *DatasetService) Servers(ctx context.Context) (*domain.ServerManifest, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	servers, err := s.fetcher.FetchServers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch server manifest")
		return nil, fmt.Errorf("failed to fetch servers: %w", err)
	}
	return servers, nil
}

// Region loads one shard and applies the filter state and sort order. The
// index manifest is only used for the last-updated stamp, so its failure is
// not fatal.
func (s *DatasetService) Region(ctx context.Context, region domain.Region, state domain.FilterState, order domain.SortOrder) (*RegionListing, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	var (
		shard domain.RegionShard
		index *domain.IndexManifest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shard, err = s.fetcher.FetchRegion(gctx, region)
		return err
	})
	g.Go(func() error {
		idx, err := s.fetcher.FetchIndex(gctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to fetch index manifest for region listing")
			return nil
		}
		index = idx
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("region", string(region)).Msg("failed to fetch region")
		return nil, fmt.Errorf("failed to fetch region %s: %w", region, err)
	}

	s.metrics.SetRegionAccounts(string(region), len(shard.Accounts))

	shown := filter.Display(shard.Accounts, state, order)
	listing := &RegionListing{
		Region:         region,
		DisplayName:    region.DisplayName(),
		Accounts:       shown,
		Total:          len(shard.Accounts),
		Shown:          len(shown),
		AvailableYears: analytics.AvailableYears(shard.Accounts),
	}
	if listing.Accounts == nil {
		listing.Accounts = []domain.Account{}
	}
	if index != nil {
		if info, ok := index.Regions[string(region)]; ok && info.LastUpdate > 0 {
			t := time.Unix(info.LastUpdate, 0).UTC()
			listing.LastUpdated = &t
		}
	}

	s.logger.Info().
		Str("region", string(region)).
		Int("total", listing.Total).
		Int("shown", listing.Shown).
		Msg("region listing built")

	return listing, nil
}

// AllShards fetches every region concurrently and waits for all of them to
// settle. A failed region is logged and left out; only a total failure is
// an error.
func (s *DatasetService) AllShards(ctx context.Context) (FanOut, error) {
	results := make([]*domain.RegionShard, len(domain.Regions))
	errs := make([]error, len(domain.Regions))

	var g errgroup.Group
	for i, region := range domain.Regions {
		g.Go(func() error {
			shard, err := s.fetcher.FetchRegion(ctx, region)
			if err != nil {
				s.logger.Warn().Err(err).Str("region", string(region)).Msg("region fetch failed, skipping")
				errs[i] = err
				return nil
			}
			s.metrics.SetRegionAccounts(string(region), len(shard.Accounts))
			results[i] = &shard
			return nil
		})
	}
	_ = g.Wait()

	var out FanOut
	for i, region := range domain.Regions {
		if results[i] == nil {
			out.Failed = append(out.Failed, region)
			continue
		}
		out.Shards = append(out.Shards, *results[i])
	}

	if len(out.Shards) == 0 {
		return out, fmt.Errorf("%w: %w", ErrNoData, errors.Join(errs...))
	}
	return out, nil
}

func (s *DatasetService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	var (
		fan   FanOut
		index *domain.IndexManifest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fan, err = s.AllShards(gctx)
		return err
	})
	g.Go(func() error {
		idx, err := s.fetcher.FetchIndex(gctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to fetch index manifest, using fetched totals")
			return nil
		}
		index = idx
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to compute statistics")
		return nil, err
	}

	stats := analytics.Compute(fan.Shards, index, s.now())
	s.logger.Info().
		Int("fetched", stats.FetchedAccounts).
		Int("failed_regions", len(fan.Failed)).
		Msg("statistics computed")
	return &stats, nil
}

// CheckNewAccounts runs one tracking cycle over a fresh fan-out.
func (s *DatasetService) CheckNewAccounts(ctx context.Context) (*tracker.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	fan, err := s.AllShards(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch regions for tracking")
		return nil, err
	}

	result := s.tracker.Check(ctx, fan.Shards)
	s.metrics.AddNewAccounts(len(result.New))
	if result.New == nil {
		result.New = []domain.NewAccount{}
	}
	return &result, nil
}

func (s *DatasetService) ResetHistory(ctx context.Context, confirmed bool) error {
	return s.tracker.Reset(ctx, confirmed)
}

func (s *DatasetService) Runs(ctx context.Context, limit int) ([]domain.TrackerRun, error) {
	if s.runs == nil {
		return []domain.TrackerRun{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	runs, err := s.runs.Runs(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list tracker runs")
		return nil, err
	}
	return runs, nil
}
