package db

import (
	"time"
)

type Vote struct {
	CandidateID int32     `json:"candidate_id"`
	Votes       int32     `json:"votes"`
	UpdatedAt   time.Time `json:"updated_at"`
}
