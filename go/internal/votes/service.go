package votes

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mcdev12/liveballot/go/internal/ballotrpc"
	"github.com/mcdev12/liveballot/go/internal/models"
)

// VotesApp defines what the service layer needs from the votes application
type VotesApp interface {
	ListVotes(ctx context.Context) ([]models.VoteRow, error)
	GetVote(ctx context.Context, candidateID int) (models.VoteRow, error)
	IncrementVote(ctx context.Context, candidateID int) (int, error)
	UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error)
}

// Service implements the VoteService connect interface
type Service struct {
	app VotesApp
}

// NewService creates a new votes service
func NewService(app VotesApp) *Service {
	return &Service{app: app}
}

var _ ballotrpc.VoteServiceHandler = (*Service)(nil)

func (s *Service) ListVotes(ctx context.Context, req *connect.Request[ballotrpc.ListVotesRequest]) (*connect.Response[ballotrpc.ListVotesResponse], error) {
	rows, err := s.app.ListVotes(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ballotrpc.ListVotesResponse{Votes: rows}), nil
}

func (s *Service) GetVote(ctx context.Context, req *connect.Request[ballotrpc.GetVoteRequest]) (*connect.Response[ballotrpc.GetVoteResponse], error) {
	row, err := s.app.GetVote(ctx, req.Msg.CandidateID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ballotrpc.GetVoteResponse{Vote: row}), nil
}

func (s *Service) IncrementVote(ctx context.Context, req *connect.Request[ballotrpc.IncrementVoteRequest]) (*connect.Response[ballotrpc.IncrementVoteResponse], error) {
	votes, err := s.app.IncrementVote(ctx, req.Msg.CandidateID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ballotrpc.IncrementVoteResponse{Votes: votes}), nil
}

func (s *Service) UpdateVotes(ctx context.Context, req *connect.Request[ballotrpc.UpdateVotesRequest]) (*connect.Response[ballotrpc.UpdateVotesResponse], error) {
	row, err := s.app.UpdateVotes(ctx, req.Msg.CandidateID, req.Msg.Votes)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ballotrpc.UpdateVotesResponse{Vote: row}), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrVoteNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
