// Package ballotrpc holds the wire messages and procedure names shared by the backend
// API handlers and the remote backend client.
package ballotrpc

import (
	"encoding/json"

	"github.com/mcdev12/liveballot/go/internal/models"
)

type ListVotesRequest struct{}

type ListVotesResponse struct {
	Votes []models.VoteRow `json:"votes"`
}

type GetVoteRequest struct {
	CandidateID int `json:"candidate_id"`
}

type GetVoteResponse struct {
	Vote models.VoteRow `json:"vote"`
}

type IncrementVoteRequest struct {
	CandidateID int `json:"candidate_id"`
}

type IncrementVoteResponse struct {
	Votes int `json:"votes"`
}

type UpdateVotesRequest struct {
	CandidateID int `json:"candidate_id"`
	Votes       int `json:"votes"`
}

type UpdateVotesResponse struct {
	Vote models.VoteRow `json:"vote"`
}

type GetSettingRequest struct {
	Key string `json:"key"`
}

type GetSettingResponse struct {
	Setting models.Setting `json:"setting"`
}

type UpsertSettingRequest struct {
	Key      string          `json:"key"`
	Value    string          `json:"value"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type UpsertSettingResponse struct {
	Setting models.Setting `json:"setting"`
}
