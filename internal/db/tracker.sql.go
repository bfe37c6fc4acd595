package db

import (
	"context"
)

const countKnownAccounts = `-- name: CountKnownAccounts :one
SELECT COUNT(*) FROM known_accounts
`

func (q *Queries) CountKnownAccounts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countKnownAccounts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteKnownAccounts = `-- name: DeleteKnownAccounts :exec
DELETE FROM known_accounts
`

func (q *Queries) DeleteKnownAccounts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteKnownAccounts)
	return err
}

const deleteTrackerState = `-- name: DeleteTrackerState :exec
DELETE FROM tracker_state
`

func (q *Queries) DeleteTrackerState(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteTrackerState)
	return err
}

const getTrackerState = `-- name: GetTrackerState :one
SELECT id, last_checked FROM tracker_state WHERE id = 1
`

func (q *Queries) GetTrackerState(ctx context.Context) (TrackerState, error) {
	row := q.db.QueryRowContext(ctx, getTrackerState)
	var i TrackerState
	err := row.Scan(&i.ID, &i.LastChecked)
	return i, err
}

const insertKnownAccount = `-- name: InsertKnownAccount :execrows
INSERT OR IGNORE INTO known_accounts (account_key, first_seen)
VALUES (?, ?)
`

type InsertKnownAccountParams struct {
	AccountKey string
	FirstSeen  int64
}

func (q *Queries) InsertKnownAccount(ctx context.Context, arg InsertKnownAccountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertKnownAccount, arg.AccountKey, arg.FirstSeen)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertTrackerRun = `-- name: InsertTrackerRun :exec
INSERT INTO tracker_runs (id, checked_at, added)
VALUES (?, ?, ?)
`

type InsertTrackerRunParams struct {
	ID        string
	CheckedAt int64
	Added     int64
}

func (q *Queries) InsertTrackerRun(ctx context.Context, arg InsertTrackerRunParams) error {
	_, err := q.db.ExecContext(ctx, insertTrackerRun, arg.ID, arg.CheckedAt, arg.Added)
	return err
}

const listKnownAccounts = `-- name: ListKnownAccounts :many
SELECT account_key, first_seen FROM known_accounts
`

func (q *Queries) ListKnownAccounts(ctx context.Context) ([]KnownAccount, error) {
	rows, err := q.db.QueryContext(ctx, listKnownAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []KnownAccount
	for rows.Next() {
		var i KnownAccount
		if err := rows.Scan(&i.AccountKey, &i.FirstSeen); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTrackerRuns = `-- name: ListTrackerRuns :many
SELECT id, checked_at, added FROM tracker_runs
ORDER BY checked_at DESC
LIMIT ?
`

func (q *Queries) ListTrackerRuns(ctx context.Context, limit int64) ([]TrackerRun, error) {
	rows, err := q.db.QueryContext(ctx, listTrackerRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TrackerRun
	for rows.Next() {
		var i TrackerRun
		if err := rows.Scan(&i.ID, &i.CheckedAt, &i.Added); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertTrackerState = `-- name: UpsertTrackerState :exec
INSERT INTO tracker_state (id, last_checked)
VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET last_checked = excluded.last_checked
`

func (q *Queries) UpsertTrackerState(ctx context.Context, lastChecked int64) error {
	_, err := q.db.ExecContext(ctx, upsertTrackerState, lastChecked)
	return err
}
