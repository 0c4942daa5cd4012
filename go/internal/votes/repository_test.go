package votes

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/liveballot/go/internal/votes/db"
)

type fakeQuerier struct {
	rows map[int32]db.Vote
}

func (f *fakeQuerier) ListVotes(ctx context.Context) ([]db.Vote, error) {
	out := make([]db.Vote, 0, len(f.rows))
	for _, v := range f.rows {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeQuerier) GetVote(ctx context.Context, candidateID int32) (db.Vote, error) {
	v, ok := f.rows[candidateID]
	if !ok {
		return db.Vote{}, sql.ErrNoRows
	}
	return v, nil
}

func (f *fakeQuerier) IncrementVote(ctx context.Context, candidateID int32) (sql.NullInt32, error) {
	v, ok := f.rows[candidateID]
	if !ok {
		return sql.NullInt32{}, nil
	}
	v.Votes++
	f.rows[candidateID] = v
	return sql.NullInt32{Int32: v.Votes, Valid: true}, nil
}

func (f *fakeQuerier) UpdateVotes(ctx context.Context, arg db.UpdateVotesParams) (db.Vote, error) {
	v, ok := f.rows[arg.CandidateID]
	if !ok {
		return db.Vote{}, sql.ErrNoRows
	}
	v.Votes = arg.Votes
	f.rows[arg.CandidateID] = v
	return v, nil
}

func (f *fakeQuerier) EnsureVote(ctx context.Context, candidateID int32) error {
	if _, ok := f.rows[candidateID]; !ok {
		f.rows[candidateID] = db.Vote{CandidateID: candidateID}
	}
	return nil
}

func TestRepositoryMapsMissingRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &Repository{queries: &fakeQuerier{rows: map[int32]db.Vote{
		1: {CandidateID: 1, Votes: 2, UpdatedAt: now},
	}}}

	votes, err := repo.IncrementVote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, votes)

	_, err = repo.IncrementVote(ctx, 2)
	assert.ErrorIs(t, err, ErrVoteNotFound)

	_, err = repo.GetVote(ctx, 2)
	assert.ErrorIs(t, err, ErrVoteNotFound)

	_, err = repo.UpdateVotes(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrVoteNotFound)

	row, err := repo.UpdateVotes(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, row.Votes)
	assert.Equal(t, now, row.UpdatedAt)
}
