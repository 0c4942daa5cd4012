package db

import (
	"context"
	"database/sql"
)

const ensureVote = `-- name: EnsureVote :exec
INSERT INTO votes (candidate_id, votes, updated_at)
VALUES ($1, 0, NOW())
ON CONFLICT (candidate_id) DO NOTHING
`

func (q *Queries) EnsureVote(ctx context.Context, candidateID int32) error {
	_, err := q.db.ExecContext(ctx, ensureVote, candidateID)
	return err
}

const getVote = `-- name: GetVote :one
SELECT candidate_id, votes, updated_at FROM votes
WHERE candidate_id = $1
`

func (q *Queries) GetVote(ctx context.Context, candidateID int32) (Vote, error) {
	row := q.db.QueryRowContext(ctx, getVote, candidateID)
	var i Vote
	err := row.Scan(&i.CandidateID, &i.Votes, &i.UpdatedAt)
	return i, err
}

const incrementVote = `-- name: IncrementVote :one
SELECT increment_vote($1)
`

func (q *Queries) IncrementVote(ctx context.Context, candidateID int32) (sql.NullInt32, error) {
	row := q.db.QueryRowContext(ctx, incrementVote, candidateID)
	var votes sql.NullInt32
	err := row.Scan(&votes)
	return votes, err
}

const listVotes = `-- name: ListVotes :many
SELECT candidate_id, votes, updated_at FROM votes
ORDER BY candidate_id
`

func (q *Queries) ListVotes(ctx context.Context) ([]Vote, error) {
	rows, err := q.db.QueryContext(ctx, listVotes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Vote
	for rows.Next() {
		var i Vote
		if err := rows.Scan(&i.CandidateID, &i.Votes, &i.UpdatedAt); err != nil {
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

const updateVotes = `-- name: UpdateVotes :one
UPDATE votes
SET votes = $2, updated_at = NOW()
WHERE candidate_id = $1
RETURNING candidate_id, votes, updated_at
`

type UpdateVotesParams struct {
	CandidateID int32 `json:"candidate_id"`
	Votes       int32 `json:"votes"`
}

func (q *Queries) UpdateVotes(ctx context.Context, arg UpdateVotesParams) (Vote, error) {
	row := q.db.QueryRowContext(ctx, updateVotes, arg.CandidateID, arg.Votes)
	var i Vote
	err := row.Scan(&i.CandidateID, &i.Votes, &i.UpdatedAt)
	return i, err
}
