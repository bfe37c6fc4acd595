package fx

import (
	"context"
	"database/sql"

	"gmdb/internal/api"
	"gmdb/internal/config"
	"gmdb/internal/database"
	"gmdb/internal/db"
	"gmdb/internal/logger"
	"gmdb/internal/metrics"
	"gmdb/internal/repository"
	"gmdb/internal/search"
	"gmdb/internal/server"
	"gmdb/internal/service"
	"gmdb/internal/tracker"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideRecorder(m *metrics.Metrics) api.Recorder {
	return m
}

func ProvideResultCache(cfg *config.Config) (search.ResultCache, error) {
	return search.NewResultCache(cfg.SearchCacheMB, cfg.SearchCacheTTL, cfg.SearchOverflow)
}

// ProvideHistory picks the tracking history backend. The sqlite database is
// only opened when it is the configured backend; the file backend keeps no
// run log.
func ProvideHistory(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (tracker.HistoryStore, service.RunLog, error) {
	if cfg.HistoryBackend == config.HistoryBackendFile {
		logger.Info().Str("path", cfg.HistoryFile).Msg("using file history backend")
		return tracker.NewFileStore(cfg.HistoryFile, logger), nil, nil
	}

	sqlDB, err := database.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := sqlDB.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})

	repo := repository.NewHistoryRepository(sqlDB, ProvideQueries(sqlDB), logger)
	return repo, repo, nil
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(metrics.New),
	fx.Provide(ProvideRecorder),
	// api clients
	fx.Provide(
		fx.Annotate(api.NewDatasetClient, fx.As(new(service.Fetcher))),
		fx.Annotate(api.NewGitHubClient, fx.As(new(service.RepoSource))),
		fx.Annotate(api.NewLanyardClient, fx.As(new(service.PresenceSource))),
	),
	// history
	fx.Provide(ProvideHistory),
	fx.Provide(tracker.New),
	// svc
	fx.Provide(ProvideResultCache),
	fx.Provide(service.NewDatasetService),
	fx.Provide(service.NewSearchService),
	fx.Provide(service.NewProfileService),
	// server
	fx.Provide(server.New),
)
