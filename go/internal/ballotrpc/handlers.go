package ballotrpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// VoteServiceHandler is implemented by the votes service
type VoteServiceHandler interface {
	ListVotes(context.Context, *connect.Request[ListVotesRequest]) (*connect.Response[ListVotesResponse], error)
	GetVote(context.Context, *connect.Request[GetVoteRequest]) (*connect.Response[GetVoteResponse], error)
	IncrementVote(context.Context, *connect.Request[IncrementVoteRequest]) (*connect.Response[IncrementVoteResponse], error)
	UpdateVotes(context.Context, *connect.Request[UpdateVotesRequest]) (*connect.Response[UpdateVotesResponse], error)
}

// SettingsServiceHandler is implemented by the settings service
type SettingsServiceHandler interface {
	GetSetting(context.Context, *connect.Request[GetSettingRequest]) (*connect.Response[GetSettingResponse], error)
	UpsertSetting(context.Context, *connect.Request[UpsertSettingRequest]) (*connect.Response[UpsertSettingResponse], error)
}

// NewVoteServiceHandler builds the HTTP handler for the vote service and returns the
// path to mount it on
func NewVoteServiceHandler(svc VoteServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(VoteServiceListVotesProcedure, connect.NewUnaryHandler(VoteServiceListVotesProcedure, svc.ListVotes, opts...))
	mux.Handle(VoteServiceGetVoteProcedure, connect.NewUnaryHandler(VoteServiceGetVoteProcedure, svc.GetVote, opts...))
	mux.Handle(VoteServiceIncrementVoteProcedure, connect.NewUnaryHandler(VoteServiceIncrementVoteProcedure, svc.IncrementVote, opts...))
	mux.Handle(VoteServiceUpdateVotesProcedure, connect.NewUnaryHandler(VoteServiceUpdateVotesProcedure, svc.UpdateVotes, opts...))
	return "/" + VoteServiceName + "/", mux
}

// NewSettingsServiceHandler builds the HTTP handler for the settings service and
// returns the path to mount it on
func NewSettingsServiceHandler(svc SettingsServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(SettingsServiceGetSettingProcedure, connect.NewUnaryHandler(SettingsServiceGetSettingProcedure, svc.GetSetting, opts...))
	mux.Handle(SettingsServiceUpsertSettingProcedure, connect.NewUnaryHandler(SettingsServiceUpsertSettingProcedure, svc.UpsertSetting, opts...))
	return "/" + SettingsServiceName + "/", mux
}
