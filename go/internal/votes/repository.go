package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/sqlutil"
	"github.com/mcdev12/liveballot/go/internal/votes/db"
)

// ErrVoteNotFound is returned when a candidate has no vote row
var ErrVoteNotFound = errors.New("vote row not found")

// Querier defines what the repository needs from the database layer
type Querier interface {
	ListVotes(ctx context.Context) ([]db.Vote, error)
	GetVote(ctx context.Context, candidateID int32) (db.Vote, error)
	IncrementVote(ctx context.Context, candidateID int32) (sql.NullInt32, error)
	UpdateVotes(ctx context.Context, arg db.UpdateVotesParams) (db.Vote, error)
	EnsureVote(ctx context.Context, candidateID int32) error
}

// Repository implements vote data access operations
type Repository struct {
	conn    *sql.DB
	queries Querier
}

// NewRepository creates a votes repository on conn
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		conn:    conn,
		queries: db.New(conn),
	}
}

// ListVotes returns every vote row ordered by candidate id
func (r *Repository) ListVotes(ctx context.Context) ([]models.VoteRow, error) {
	dbVotes, err := r.queries.ListVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	rows := make([]models.VoteRow, len(dbVotes))
	for i, v := range dbVotes {
		rows[i] = dbVoteToModel(v)
	}
	return rows, nil
}

// GetVote returns the vote row of one candidate
func (r *Repository) GetVote(ctx context.Context, candidateID int) (models.VoteRow, error) {
	v, err := r.queries.GetVote(ctx, int32(candidateID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.VoteRow{}, fmt.Errorf("candidate %d: %w", candidateID, ErrVoteNotFound)
	}
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("failed to get vote: %w", err)
	}
	return dbVoteToModel(v), nil
}

// IncrementVote calls the increment_vote procedure and returns the new count
func (r *Repository) IncrementVote(ctx context.Context, candidateID int) (int, error) {
	votes, err := r.queries.IncrementVote(ctx, int32(candidateID))
	if err != nil {
		return 0, fmt.Errorf("failed to increment vote: %w", err)
	}
	if !votes.Valid {
		return 0, fmt.Errorf("candidate %d: %w", candidateID, ErrVoteNotFound)
	}
	return int(votes.Int32), nil
}

// UpdateVotes overwrites the count of one candidate
func (r *Repository) UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error) {
	v, err := r.queries.UpdateVotes(ctx, db.UpdateVotesParams{
		CandidateID: int32(candidateID),
		Votes:       int32(votes),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.VoteRow{}, fmt.Errorf("candidate %d: %w", candidateID, ErrVoteNotFound)
	}
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("failed to update votes: %w", err)
	}
	return dbVoteToModel(v), nil
}

// EnsureVotes creates a zero row for every candidate that has none, in one transaction
func (r *Repository) EnsureVotes(ctx context.Context, candidateIDs []int) error {
	return sqlutil.Run(ctx, r.conn, db.New(r.conn).WithTx, func(q *db.Queries) error {
		for _, id := range candidateIDs {
			if err := q.EnsureVote(ctx, int32(id)); err != nil {
				return fmt.Errorf("failed to seed candidate %d: %w", id, err)
			}
		}
		return nil
	})
}

func dbVoteToModel(v db.Vote) models.VoteRow {
	return models.VoteRow{
		CandidateID: int(v.CandidateID),
		Votes:       int(v.Votes),
		UpdatedAt:   v.UpdatedAt,
	}
}
