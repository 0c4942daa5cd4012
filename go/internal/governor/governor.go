// Package governor rate limits a single voter to one accepted vote per cooldown window
// and remembers the last vote across restarts.
package governor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/localstore"
	"github.com/mcdev12/liveballot/go/internal/models"
)

// CooldownWindow is the minimum interval between two accepted votes
const CooldownWindow = 60 * time.Second

var (
	ErrVotingClosed     = errors.New("voting has closed")
	ErrWindowLoading    = errors.New("closing time not loaded yet")
	ErrCooldownActive   = errors.New("cooldown active")
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrAttemptInFlight  = errors.New("previous vote still in flight")
)

// Status is the outcome of a vote attempt
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Decision describes what happened to a vote attempt. Reason is one of the sentinel
// errors for a rejection and the backend error for a failure.
type Decision struct {
	Status       Status
	Reason       error
	CandidateID  int
	UsedFallback bool
	// Votes is the candidate's count reported by the backend, when it reported one
	Votes int
}

func (d Decision) Accepted() bool { return d.Status == StatusAccepted }

// Election reports whether the closing time is known and whether voting has closed
type Election interface {
	Known() bool
	HasClosed() bool
}

// Candidates reports whether a candidate id is on the ballot
type Candidates interface {
	Has(id int) bool
}

// Governor gates vote attempts on the election window and the voter's cooldown
type Governor struct {
	clock      clockwork.Clock
	store      localstore.Store
	votes      backend.VoteStore
	election   Election
	candidates Candidates
	cooldown   time.Duration

	mu         sync.Mutex
	lastVote   time.Time
	localCount int
	inFlight   bool
}

// Config holds the collaborators of a Governor
type Config struct {
	Clock      clockwork.Clock
	Store      localstore.Store
	Votes      backend.VoteStore
	Election   Election
	Candidates Candidates
	// Cooldown defaults to CooldownWindow
	Cooldown time.Duration
}

func New(cfg Config) *Governor {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = CooldownWindow
	}
	return &Governor{
		clock:      cfg.Clock,
		store:      cfg.Store,
		votes:      cfg.Votes,
		election:   cfg.Election,
		candidates: cfg.Candidates,
		cooldown:   cfg.Cooldown,
	}
}

// Restore loads the last vote time and local vote count from durable storage.
// Unreadable values are logged and treated as absent.
func (g *Governor) Restore(ctx context.Context) (models.GovernorState, error) {
	lastRaw, hasLast, err := g.store.Get(ctx, localstore.KeyLastVoteTime)
	if err != nil {
		return g.State(), fmt.Errorf("failed to read %s: %w", localstore.KeyLastVoteTime, err)
	}
	countRaw, hasCount, err := g.store.Get(ctx, localstore.KeyUserVoteCount)
	if err != nil {
		return g.State(), fmt.Errorf("failed to read %s: %w", localstore.KeyUserVoteCount, err)
	}

	g.mu.Lock()
	if hasLast {
		ms, perr := strconv.ParseInt(lastRaw, 10, 64)
		if perr != nil {
			log.Warn().Err(perr).Str("value", lastRaw).Msg("ignoring invalid last vote time")
		} else {
			g.lastVote = time.UnixMilli(ms)
		}
	}
	if hasCount {
		n, perr := strconv.Atoi(countRaw)
		if perr != nil || n < 0 {
			log.Warn().Str("value", countRaw).Msg("ignoring invalid user vote count")
		} else {
			g.localCount = n
		}
	}
	g.mu.Unlock()

	state := g.State()
	log.Debug().
		Time("last_vote", state.LastVote).
		Dur("cooldown_remaining", state.CooldownRemaining).
		Int("local_vote_count", state.LocalVoteCount).
		Msg("restored governor state")
	return state, nil
}

// State returns the governor state at the current clock time
func (g *Governor) State() models.GovernorState {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	return models.GovernorState{
		LastVote:          g.lastVote,
		CooldownRemaining: g.remainingLocked(now),
		LocalVoteCount:    g.localCount,
	}
}

// CooldownRemaining returns how long until the next vote is allowed
func (g *Governor) CooldownRemaining() time.Duration {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked(now)
}

// CanVote reports whether a vote attempted now would pass the gate
func (g *Governor) CanVote() bool {
	return g.check(0) == nil
}

func (g *Governor) remainingLocked(now time.Time) time.Duration {
	if g.lastVote.IsZero() {
		return 0
	}
	remaining := g.cooldown - now.Sub(g.lastVote)
	if remaining <= 0 {
		return 0
	}
	return remaining
}

// check returns the rejection reason for a vote attempted now. A candidateID of 0
// skips the roster check.
func (g *Governor) check(candidateID int) error {
	now := g.clock.Now()
	if g.election != nil {
		if !g.election.Known() {
			return ErrWindowLoading
		}
		if g.election.HasClosed() {
			return ErrVotingClosed
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return ErrAttemptInFlight
	}
	if g.remainingLocked(now) > 0 {
		return ErrCooldownActive
	}
	if candidateID != 0 && g.candidates != nil && !g.candidates.Has(candidateID) {
		return ErrUnknownCandidate
	}
	return nil
}

// AttemptVote casts a vote for candidateID if the election is open and the cooldown
// has elapsed. The backend increment procedure is tried first, then a direct
// read-modify-write of the candidate's row. Failures are logged and reported in the
// Decision, never returned.
func (g *Governor) AttemptVote(ctx context.Context, candidateID int) Decision {
	decision := Decision{CandidateID: candidateID}

	if err := g.begin(candidateID); err != nil {
		log.Info().Err(err).Int("candidate_id", candidateID).Msg("vote rejected")
		decision.Status = StatusRejected
		decision.Reason = err
		return decision
	}
	defer g.end()

	votes, usedFallback, err := g.cast(ctx, candidateID)
	if err != nil {
		log.Error().Err(err).Int("candidate_id", candidateID).Msg("failed to cast vote")
		decision.Status = StatusFailed
		decision.Reason = err
		return decision
	}

	now := g.clock.Now()
	g.mu.Lock()
	g.lastVote = now
	g.localCount++
	count := g.localCount
	g.mu.Unlock()

	// the vote is already counted remotely; a cancelled caller must not lose the cooldown
	g.persist(context.WithoutCancel(ctx), now, count)

	log.Info().
		Int("candidate_id", candidateID).
		Int("votes", votes).
		Bool("fallback", usedFallback).
		Int("local_vote_count", count).
		Msg("vote accepted")

	decision.Status = StatusAccepted
	decision.UsedFallback = usedFallback
	decision.Votes = votes
	return decision
}

func (g *Governor) begin(candidateID int) error {
	if err := g.check(candidateID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// a concurrent attempt may have started between check and here
	if g.inFlight {
		return ErrAttemptInFlight
	}
	g.inFlight = true
	return nil
}

func (g *Governor) end() {
	g.mu.Lock()
	g.inFlight = false
	g.mu.Unlock()
}

// cast runs the increment procedure, falling back to a read-modify-write update.
// The fallback is not atomic: concurrent voters may overwrite each other's increment.
func (g *Governor) cast(ctx context.Context, candidateID int) (int, bool, error) {
	votes, err := g.votes.IncrementVote(ctx, candidateID)
	if err == nil {
		return votes, false, nil
	}
	log.Warn().Err(err).Int("candidate_id", candidateID).Msg("increment procedure failed, falling back to update")

	row, ferr := g.votes.GetVote(ctx, candidateID)
	if ferr != nil {
		return 0, true, fmt.Errorf("increment: %v; fallback read: %w", err, ferr)
	}
	updated, ferr := g.votes.UpdateVotes(ctx, candidateID, row.Votes+1)
	if ferr != nil {
		return 0, true, fmt.Errorf("increment: %v; fallback update: %w", err, ferr)
	}
	return updated.Votes, true, nil
}

func (g *Governor) persist(ctx context.Context, lastVote time.Time, count int) {
	if err := g.store.Set(ctx, localstore.KeyLastVoteTime, strconv.FormatInt(lastVote.UnixMilli(), 10)); err != nil {
		log.Error().Err(err).Msg("failed to persist last vote time")
	}
	if err := g.store.Set(ctx, localstore.KeyUserVoteCount, strconv.Itoa(count)); err != nil {
		log.Error().Err(err).Msg("failed to persist user vote count")
	}
}

// FormatCooldown renders d as m:ss, rounding partial seconds up
func FormatCooldown(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int(math.Ceil(d.Seconds()))
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
