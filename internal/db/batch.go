package db

import (
	"context"
	"strings"
)

// Multi-row inserts have no sqlc equivalent, so they are kept next to the
// generated layout by hand.

const insertKnownAccountsPrefix = `INSERT OR IGNORE INTO known_accounts (account_key, first_seen) VALUES `

// InsertKnownAccounts inserts all rows with one statement and returns how
// many were new. Callers bound the slice; every row uses two parameters.
func (q *Queries) InsertKnownAccounts(ctx context.Context, rows []InsertKnownAccountParams) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.Grow(len(insertKnownAccountsPrefix) + len(rows)*8)
	sb.WriteString(insertKnownAccountsPrefix)
	args := make([]interface{}, 0, len(rows)*2)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?)")
		args = append(args, row.AccountKey, row.FirstSeen)
	}

	result, err := q.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
