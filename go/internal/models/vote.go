package models

import (
	"encoding/json"
	"time"
)

// Backend table names
const (
	TableVotes    = "votes"
	TableSettings = "app_settings"
)

// SettingVoteEndDate is the app_settings key holding the election closing instant
const SettingVoteEndDate = "vote_end_date"

// VoteRow is one row of the votes table
type VoteRow struct {
	CandidateID int       `json:"candidate_id"`
	Votes       int       `json:"votes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Setting is one row of the app_settings table
type Setting struct {
	Key       string          `json:"key"`
	Value     string          `json:"value"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}
