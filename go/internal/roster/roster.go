// Package roster holds the fixed list of candidates and the vote counts the backend
// reports for them.
package roster

import (
	"sort"
	"sync"

	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Roster is the candidate list of one ballot. Vote counts change only through ApplyVotes.
type Roster struct {
	mu         sync.RWMutex
	candidates []models.Candidate
	index      map[int]int
}

// New creates a roster from candidates. Order is preserved and votes are reset to zero.
func New(candidates []models.Candidate) *Roster {
	r := &Roster{
		candidates: make([]models.Candidate, len(candidates)),
		index:      make(map[int]int, len(candidates)),
	}
	for i, c := range candidates {
		c.Votes = 0
		r.candidates[i] = c
		r.index[c.ID] = i
	}
	return r
}

// ApplyVotes replaces every count with the backend's rows. Candidates without a row
// count zero.
func (r *Roster) ApplyVotes(rows []models.VoteRow) {
	byID := make(map[int]int, len(rows))
	for _, row := range rows {
		byID[row.CandidateID] = row.Votes
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.candidates {
		votes := byID[r.candidates[i].ID]
		if votes < 0 {
			log.Warn().
				Int("candidate_id", r.candidates[i].ID).
				Int("votes", votes).
				Msg("negative vote count from backend, clamping to zero")
			votes = 0
		}
		r.candidates[i].Votes = votes
	}
}

// Has reports whether id is on the ballot
func (r *Roster) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// Get returns the candidate with id
func (r *Roster) Get(id int) (models.Candidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return models.Candidate{}, false
	}
	return r.candidates[i], true
}

// IDs returns the candidate ids in ballot order
func (r *Roster) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, len(r.candidates))
	for i, c := range r.candidates {
		ids[i] = c.ID
	}
	return ids
}

// Candidates returns a copy of the candidates in ballot order
func (r *Roster) Candidates() []models.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// TotalVotes sums the counts of all candidates
func (r *Roster) TotalVotes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return total(r.candidates)
}

// Percentage returns the candidate's share of all votes in percent, 0 when nobody voted
func (r *Roster) Percentage(id int) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return 0
	}
	return percentage(r.candidates[i].Votes, total(r.candidates))
}

// Results returns every candidate with its percentage, in ballot order
func (r *Roster) Results() []models.CandidateResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sum := total(r.candidates)
	ranks := rank(r.candidates)
	out := make([]models.CandidateResult, len(r.candidates))
	for i, c := range r.candidates {
		out[i] = models.CandidateResult{
			Candidate:  c,
			Percentage: percentage(c.Votes, sum),
			Rank:       ranks[c.ID],
		}
	}
	return out
}

// Leaderboard returns the results ordered by votes, highest first. Ties go to the lower id.
func (r *Roster) Leaderboard() []models.CandidateResult {
	results := r.Results()
	sort.Slice(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// Stats summarizes the tallies
func (r *Roster) Stats() models.RosterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats models.RosterStats
	var leader *models.Candidate
	for i := range r.candidates {
		c := r.candidates[i]
		stats.TotalVotes += c.Votes
		if c.Votes > 0 {
			stats.CandidatesWithVotes++
		}
		if leader == nil || c.Votes > leader.Votes || (c.Votes == leader.Votes && c.ID < leader.ID) {
			leader = &c
		}
		if c.Votes > stats.MaxVotes {
			stats.MaxVotes = c.Votes
		}
	}
	if stats.TotalVotes > 0 {
		stats.Leader = leader
	}
	return stats
}

func total(candidates []models.Candidate) int {
	sum := 0
	for _, c := range candidates {
		sum += c.Votes
	}
	return sum
}

func percentage(votes, sum int) float64 {
	if sum == 0 {
		return 0
	}
	return float64(votes) / float64(sum) * 100
}

// rank assigns 1-based leaderboard positions; ties share the better position
func rank(candidates []models.Candidate) map[int]int {
	ranks := make(map[int]int, len(candidates))
	for _, c := range candidates {
		position := 1
		for _, other := range candidates {
			if other.Votes > c.Votes {
				position++
			}
		}
		ranks[c.ID] = position
	}
	return ranks
}
