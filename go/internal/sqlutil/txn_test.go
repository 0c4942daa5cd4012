package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type counterQueries struct{ tx *sql.Tx }

func (q *counterQueries) bump(ctx context.Context) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE counter SET n = n + 1`)
	return err
}

func openCounter(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "txn.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE counter (n INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO counter (n) VALUES (0)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	var n int
	require.NoError(t, db.QueryRow(`SELECT n FROM counter`).Scan(&n))
	return n
}

func newCounterQueries(tx *sql.Tx) *counterQueries { return &counterQueries{tx: tx} }

func TestRunCommits(t *testing.T) {
	ctx := context.Background()
	db := openCounter(t)

	err := Run(ctx, db, newCounterQueries, func(q *counterQueries) error {
		if err := q.bump(ctx); err != nil {
			return err
		}
		return q.bump(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count(t, db))
}

func TestRunRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openCounter(t)
	boom := errors.New("boom")

	err := Run(ctx, db, newCounterQueries, func(q *counterQueries) error {
		require.NoError(t, q.bump(ctx))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}
