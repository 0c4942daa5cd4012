package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyLastVoteTime)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyLastVoteTime, "1700000000000"))
	require.NoError(t, s.Set(ctx, KeyLastVoteTime, "1700000060000"))

	v, ok, err := s.Get(ctx, KeyLastVoteTime)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1700000060000", v)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballot.db")

	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Values survive reopening, like a page reload
	reopened, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(context.Background(), KeyLastVoteTime)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1700000060000", v)
}
