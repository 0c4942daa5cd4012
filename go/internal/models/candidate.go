package models

// Candidate represents one entry on the ballot
type Candidate struct {
	ID           int    `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Party        string `json:"party" yaml:"party"`
	DisplayColor string `json:"display_color" yaml:"display_color"`
	ImagePath    string `json:"image_path" yaml:"image_path"`
	Votes        int    `json:"votes" yaml:"-"` // Sourced from the backend only
}

// CandidateResult is a candidate together with its share of the total vote
type CandidateResult struct {
	Candidate
	Percentage float64 `json:"percentage"`
	Rank       int     `json:"rank"`
}

// RosterStats summarizes the current tallies
type RosterStats struct {
	TotalVotes          int        `json:"total_votes"`
	CandidatesWithVotes int        `json:"candidates_with_votes"`
	MaxVotes            int        `json:"max_votes"`
	Leader              *Candidate `json:"leader,omitempty"`
}
