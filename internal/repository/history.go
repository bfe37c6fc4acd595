package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gmdb/internal/constants"
	"gmdb/internal/db"
	"gmdb/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// HistoryRepository is the sqlite-backed tracking history. Keys are only
// ever inserted; a commit never removes a known account.
//
// stored holds the keys seen by the last Load plus those written since, so a
// commit only sends keys the database has not seen. Keys another writer adds
// in between are absorbed by INSERT OR IGNORE.
type HistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger

	mu     sync.Mutex
	stored map[string]struct{}
}

func NewHistoryRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
		stored:  map[string]struct{}{},
	}
}

func (r *HistoryRepository) Load(ctx context.Context) (domain.History, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	history := domain.EmptyHistory()

	state, err := r.queries.GetTrackerState(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		r.logger.Error().Err(err).Msg("failed to get tracker state")
		return history, err
	default:
		history.LastChecked = state.LastChecked
	}

	rows, err := r.queries.ListKnownAccounts(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list known accounts")
		return domain.EmptyHistory(), err
	}
	stored := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		history.KnownAccounts[row.AccountKey] = row.FirstSeen
		stored[row.AccountKey] = struct{}{}
	}

	r.mu.Lock()
	r.stored = stored
	r.mu.Unlock()

	r.logger.Debug().
		Int("known", len(history.KnownAccounts)).
		Int64("last_checked", history.LastChecked).
		Msg("history loaded")

	return history, nil
}

// Commit inserts the keys not yet stored in batches of DBBatchSize, moves
// lastChecked forward and appends a run row, all in one transaction.
func (r *HistoryRepository) Commit(ctx context.Context, history domain.History) error {
	keys := r.unstored(history.KnownAccounts)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	var added int64
	batch := make([]db.InsertKnownAccountParams, 0, min(len(keys), constants.DBBatchSize))
	for i := 0; i < len(keys); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(keys))

		batch = batch[:0]
		for _, key := range keys[i:end] {
			batch = append(batch, db.InsertKnownAccountParams{
				AccountKey: key,
				FirstSeen:  history.KnownAccounts[key],
			})
		}
		n, err := qtx.InsertKnownAccounts(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to insert known accounts %s..%s: %w", keys[i], keys[end-1], err)
		}
		added += n
	}

	if err := qtx.UpsertTrackerState(ctx, history.LastChecked); err != nil {
		return fmt.Errorf("failed to update tracker state: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate run id: %w", err)
	}
	if err := qtx.InsertTrackerRun(ctx, db.InsertTrackerRunParams{
		ID:        id,
		CheckedAt: history.LastChecked,
		Added:     added,
	}); err != nil {
		return fmt.Errorf("failed to record tracker run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}

	r.mu.Lock()
	for _, key := range keys {
		r.stored[key] = struct{}{}
	}
	r.mu.Unlock()

	r.logger.Debug().
		Str("run_id", id).
		Int("sent", len(keys)).
		Int64("added", added).
		Msg("history committed")
	return nil
}

// unstored returns the sorted keys of known that this repository has not
// already read from or written to the database.
func (r *HistoryRepository) unstored(known map[string]int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0)
	for k := range known {
		if _, ok := r.stored[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Reset forgets every known account and the last check time. The run log
// is kept.
func (r *HistoryRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	if err := qtx.DeleteKnownAccounts(ctx); err != nil {
		return fmt.Errorf("failed to delete known accounts: %w", err)
	}
	if err := qtx.DeleteTrackerState(ctx); err != nil {
		return fmt.Errorf("failed to delete tracker state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.mu.Lock()
	r.stored = map[string]struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *HistoryRepository) Runs(ctx context.Context, limit int) ([]domain.TrackerRun, error) {
	rows, err := r.queries.ListTrackerRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	runs := make([]domain.TrackerRun, len(rows))
	for i, row := range rows {
		runs[i] = domain.TrackerRun{
			ID:        row.ID,
			CheckedAt: time.UnixMilli(row.CheckedAt).UTC(),
			Added:     int(row.Added),
		}
	}
	return runs, nil
}

func (r *HistoryRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountKnownAccounts(ctx)
}
