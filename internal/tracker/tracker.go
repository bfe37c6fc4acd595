// Package tracker detects accounts that were not present in any earlier
// refresh cycle.
//
// A cycle loads the persisted history once, diffs every fetched shard
// against it, and commits all additions in a single write. Keys are only
// ever added; Reset is the one way to forget them. Cycles are not
// serialized: two running at the same time can overwrite each other's
// additions.
package tracker

import (
	"context"
	"errors"
	"sort"
	"time"

	"gmdb/internal/constants"
	"gmdb/internal/domain"

	"github.com/rs/zerolog"
)

var ErrResetNotConfirmed = errors.New("history reset requires confirmation")

type HistoryStore interface {
	Load(ctx context.Context) (domain.History, error)
	Commit(ctx context.Context, history domain.History) error
	Reset(ctx context.Context) error
}

type Result struct {
	CheckedAt time.Time           `json:"checked_at"`
	New       []domain.NewAccount `json:"new"`
	Recent    []domain.NewAccount `json:"recent"`
	Known     int                 `json:"known"`
	Committed bool                `json:"committed"`
}

type Tracker struct {
	store  HistoryStore
	now    func() time.Time
	window time.Duration
	logger zerolog.Logger
}

func New(store HistoryStore, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		now:    time.Now,
		window: constants.RecentNewWindow,
		logger: logger,
	}
}

// WithClock replaces the wall clock, for tests and replays.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Check runs one cycle over the freshly fetched shards. Store failures are
// logged and degrade the cycle rather than failing it.
func (t *Tracker) Check(ctx context.Context, shards []domain.RegionShard) Result {
	history, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to load tracking history, treating as empty")
		history = domain.EmptyHistory()
	}
	if history.KnownAccounts == nil {
		history.KnownAccounts = map[string]int64{}
	}

	checkedAt := t.now()
	stamp := checkedAt.UnixMilli()

	staged := make(map[string]int64, len(history.KnownAccounts))
	for k, v := range history.KnownAccounts {
		staged[k] = v
	}

	var found []domain.NewAccount
	for _, shard := range shards {
		for _, acc := range shard.Accounts {
			key := domain.AccountKey(shard.Region, acc.RoleID)
			if _, known := staged[key]; known {
				continue
			}
			staged[key] = stamp
			found = append(found, domain.NewAccount{Account: acc, Region: shard.Region, FirstSeen: stamp})
		}
	}

	result := Result{
		CheckedAt: checkedAt,
		New:       found,
		Known:     len(staged),
	}

	err = t.store.Commit(ctx, domain.History{LastChecked: stamp, KnownAccounts: staged})
	if err != nil {
		t.logger.Error().Err(err).Int("new", len(found)).Msg("failed to commit tracking history")
	} else {
		result.Committed = true
	}

	result.Recent = Recent(found, checkedAt, t.window)

	t.logger.Info().
		Int("new", len(found)).
		Int("recent", len(result.Recent)).
		Int("known", result.Known).
		Msg("new account check completed")

	return result
}

// Recent keeps events first seen within window of now, newest first.
func Recent(events []domain.NewAccount, now time.Time, window time.Duration) []domain.NewAccount {
	cutoff := now.Add(-window).UnixMilli()
	out := make([]domain.NewAccount, 0, len(events))
	for _, e := range events {
		if e.FirstSeen > cutoff {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FirstSeen > out[j].FirstSeen
	})
	return out
}

// Reset forgets every known account. It is irreversible, so callers must
// pass confirmed=true after asking the user.
func (t *Tracker) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}
	if err := t.store.Reset(ctx); err != nil {
		t.logger.Error().Err(err).Msg("failed to reset tracking history")
		return err
	}
	t.logger.Warn().Msg("tracking history cleared")
	return nil
}
