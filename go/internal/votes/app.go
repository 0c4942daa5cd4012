package votes

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/models"
)

// ErrInvalidArgument marks requests rejected by validation
var ErrInvalidArgument = errors.New("invalid argument")

// ids and counts are stored as int4
func checkCandidateID(candidateID int) error {
	if candidateID <= 0 || candidateID > math.MaxInt32 {
		return fmt.Errorf("%w: candidate id %d out of range", ErrInvalidArgument, candidateID)
	}
	return nil
}

// VotesRepository defines what the app layer needs from the repository
type VotesRepository interface {
	ListVotes(ctx context.Context) ([]models.VoteRow, error)
	GetVote(ctx context.Context, candidateID int) (models.VoteRow, error)
	IncrementVote(ctx context.Context, candidateID int) (int, error)
	UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error)
	EnsureVotes(ctx context.Context, candidateIDs []int) error
}

// App handles vote business logic. It does not judge who may vote; that is the
// client's concern.
type App struct {
	repo VotesRepository
}

// NewApp creates a new votes App
func NewApp(repo VotesRepository) *App {
	return &App{repo: repo}
}

// SeedCandidates makes sure every candidate has a vote row
func (a *App) SeedCandidates(ctx context.Context, candidates []models.Candidate) error {
	ids := make([]int, len(candidates))
	for i, c := range candidates {
		if err := checkCandidateID(c.ID); err != nil {
			return err
		}
		ids[i] = c.ID
	}
	if err := a.repo.EnsureVotes(ctx, ids); err != nil {
		return err
	}
	log.Info().Int("candidates", len(ids)).Msg("vote rows seeded")
	return nil
}

func (a *App) ListVotes(ctx context.Context) ([]models.VoteRow, error) {
	return a.repo.ListVotes(ctx)
}

func (a *App) GetVote(ctx context.Context, candidateID int) (models.VoteRow, error) {
	if err := checkCandidateID(candidateID); err != nil {
		return models.VoteRow{}, err
	}
	return a.repo.GetVote(ctx, candidateID)
}

func (a *App) IncrementVote(ctx context.Context, candidateID int) (int, error) {
	if err := checkCandidateID(candidateID); err != nil {
		return 0, err
	}
	votes, err := a.repo.IncrementVote(ctx, candidateID)
	if err != nil {
		return 0, err
	}
	log.Debug().Int("candidate_id", candidateID).Int("votes", votes).Msg("vote incremented")
	return votes, nil
}

func (a *App) UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error) {
	if err := checkCandidateID(candidateID); err != nil {
		return models.VoteRow{}, err
	}
	if votes < 0 || votes > math.MaxInt32 {
		return models.VoteRow{}, fmt.Errorf("%w: votes %d out of range", ErrInvalidArgument, votes)
	}
	return a.repo.UpdateVotes(ctx, candidateID, votes)
}
