package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gmdb/internal/constants"
	"gmdb/internal/database"
	"gmdb/internal/db"
	"gmdb/internal/domain"
	"gmdb/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *HistoryRepository {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "gmdb.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewHistoryRepository(sqlDB, db.New(sqlDB), zerolog.Nop())
}

func TestHistoryRepository_EmptyLoad(t *testing.T) {
	repo := newTestRepo(t)

	h, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, h.LastChecked)
	assert.NotNil(t, h.KnownAccounts)
	assert.Empty(t, h.KnownAccounts)
}

func TestHistoryRepository_CommitIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Commit(ctx, domain.History{
		LastChecked:   100,
		KnownAccounts: map[string]int64{"europe:1": 100, "europe:2": 100},
	}))
	require.NoError(t, repo.Commit(ctx, domain.History{
		LastChecked:   200,
		KnownAccounts: map[string]int64{"europe:1": 200, "에스페리아:1": 200},
	}))

	h, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), h.LastChecked)
	assert.Equal(t, map[string]int64{"europe:1": 100, "europe:2": 100, "에스페리아:1": 200}, h.KnownAccounts)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	runs, err := repo.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 1, runs[0].Added)
	assert.Equal(t, int64(200), runs[0].CheckedAt.UnixMilli())
	assert.Equal(t, 2, runs[1].Added)
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
}

func TestHistoryRepository_CommitSpansBatches(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n := constants.DBBatchSize*2 + 1
	known := make(map[string]int64, n)
	for i := 0; i < n; i++ {
		known[fmt.Sprintf("europe:%d", i)] = 100
	}
	require.NoError(t, repo.Commit(ctx, domain.History{LastChecked: 100, KnownAccounts: known}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)

	runs, err := repo.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, n, runs[0].Added)
}

func TestHistoryRepository_CommitSendsOnlyUnstoredKeys(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Commit(ctx, domain.History{
		LastChecked:   100,
		KnownAccounts: map[string]int64{"europe:1": 100, "europe:2": 100},
	}))

	h, err := repo.Load(ctx)
	require.NoError(t, err)
	h.KnownAccounts["europe:3"] = 200
	assert.Equal(t, []string{"europe:3"}, repo.unstored(h.KnownAccounts))

	require.NoError(t, repo.Commit(ctx, domain.History{LastChecked: 200, KnownAccounts: h.KnownAccounts}))
	assert.Empty(t, repo.unstored(h.KnownAccounts))

	require.NoError(t, repo.Reset(ctx))
	assert.Len(t, repo.unstored(h.KnownAccounts), 3)
}

func TestHistoryRepository_Reset(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Commit(ctx, domain.History{LastChecked: 1, KnownAccounts: map[string]int64{"europe:1": 1}}))
	require.NoError(t, repo.Reset(ctx))

	h, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, h.LastChecked)
	assert.Empty(t, h.KnownAccounts)

	runs, err := repo.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestHistoryRepository_WithTracker(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tr := tracker.New(repo, zerolog.Nop())

	shards := []domain.RegionShard{{
		Region:   domain.RegionNorthAmerica,
		Accounts: []domain.Account{{RoleID: 1}, {RoleID: 2}, {RoleID: 3}},
	}}

	require.NoError(t, tr.Reset(ctx, true))
	first := tr.Check(ctx, shards)
	assert.Len(t, first.New, 3)
	assert.Len(t, first.Recent, 3)

	second := tr.Check(ctx, shards)
	assert.Empty(t, second.New)
}
