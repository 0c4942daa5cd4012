// Package board wires the roster, vote governor, countdown and sync client into one
// voting session and exposes the user and admin actions on it.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/countdown"
	"github.com/mcdev12/liveballot/go/internal/governor"
	"github.com/mcdev12/liveballot/go/internal/livesync"
	"github.com/mcdev12/liveballot/go/internal/localstore"
	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/roster"
)

// Deps are the collaborators a board is built from
type Deps struct {
	Clock      clockwork.Clock
	Backend    backend.Backend
	Store      localstore.Store
	Candidates []models.Candidate
}

type Config struct {
	// Admin enables the extend and reset actions
	Admin        bool
	Cooldown     time.Duration
	TickInterval time.Duration
	// DefaultWindow is the voting period assumed when none is stored, also used by Reset
	DefaultWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		Cooldown:      governor.CooldownWindow,
		TickInterval:  time.Second,
		DefaultWindow: 3 * 24 * time.Hour,
	}
}

// View is a read-only snapshot of everything a presentation needs
type View struct {
	Now          time.Time
	Ready        bool
	Admin        bool
	Results      []models.CandidateResult
	Leaderboard  []models.CandidateResult
	Stats        models.RosterStats
	Countdown    countdown.Snapshot
	Governor     models.GovernorState
	CanVote      bool
	CooldownText string
}

// Board is one open voting session
type Board struct {
	clock     clockwork.Clock
	cfg       Config
	roster    *roster.Roster
	governor  *governor.Governor
	countdown *countdown.Controller
	sync      *livesync.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	listeners map[uuid.UUID]func(View)
	closed    bool
	stopTick  func()
}

// Open starts a session: initial sync and subscriptions, governor restore and the
// countdown tick. Backend failures during start are logged, not returned.
func Open(ctx context.Context, deps Deps, cfg Config) (*Board, error) {
	if deps.Backend == nil {
		return nil, errors.New("board requires a backend")
	}
	if deps.Store == nil {
		return nil, errors.New("board requires a local store")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if len(deps.Candidates) == 0 {
		deps.Candidates = roster.DefaultCandidates()
	}
	if err := roster.Validate(deps.Candidates); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	defaults := DefaultConfig()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = defaults.DefaultWindow
	}

	b := &Board{
		clock:     deps.Clock,
		cfg:       cfg,
		roster:    roster.New(deps.Candidates),
		listeners: make(map[uuid.UUID]func(View)),
	}
	b.countdown = countdown.New(countdown.Config{
		Clock:        deps.Clock,
		Settings:     deps.Backend,
		Admin:        cfg.Admin,
		TickInterval: cfg.TickInterval,
		ResetPeriod:  cfg.DefaultWindow,
	})
	b.governor = governor.New(governor.Config{
		Clock:      deps.Clock,
		Store:      deps.Store,
		Votes:      deps.Backend,
		Election:   b.countdown,
		Candidates: b.roster,
		Cooldown:   cfg.Cooldown,
	})
	b.sync = livesync.New(livesync.Config{
		Clock:         deps.Clock,
		Backend:       deps.Backend,
		Votes:         b.roster,
		Window:        b.countdown,
		DefaultWindow: cfg.DefaultWindow,
		OnUpdate:      func(livesync.Resource) { b.changed() },
	})

	if _, err := b.governor.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("failed to restore vote cooldown")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel

	if err := b.sync.Start(runCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start sync: %w", err)
	}

	b.stopTick = b.countdown.Subscribe(func(countdown.Snapshot) { b.changed() })
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.countdown.Start(runCtx)
	}()

	log.Info().
		Int("candidates", len(deps.Candidates)).
		Bool("admin", cfg.Admin).
		Msg("board opened")
	return b, nil
}

// Ready is closed once the initial sync completed
func (b *Board) Ready() <-chan struct{} {
	return b.sync.Ready()
}

// Vote attempts a vote for candidateID through the governor
func (b *Board) Vote(ctx context.Context, candidateID int) governor.Decision {
	d := b.governor.AttemptVote(ctx, candidateID)
	b.changed()
	return d
}

// Extend adds days to the voting period. Requires admin.
func (b *Board) Extend(ctx context.Context, days int) error {
	if _, err := b.countdown.Extend(ctx, days); err != nil {
		return err
	}
	return nil
}

// Reset restarts the voting period from now. Requires admin.
func (b *Board) Reset(ctx context.Context) error {
	if _, err := b.countdown.Reset(ctx); err != nil {
		return err
	}
	return nil
}

// View returns the current state of the session
func (b *Board) View() View {
	ready := false
	select {
	case <-b.sync.Ready():
		ready = true
	default:
	}

	state := b.governor.State()
	snap := b.countdown.Snapshot()
	return View{
		Now:          snap.At,
		Ready:        ready,
		Admin:        b.countdown.Admin(),
		Results:      b.roster.Results(),
		Leaderboard:  b.roster.Leaderboard(),
		Stats:        b.roster.Stats(),
		Countdown:    snap,
		Governor:     state,
		CanVote:      snap.Known && !snap.HasClosed && state.CooldownRemaining == 0,
		CooldownText: governor.FormatCooldown(state.CooldownRemaining),
	}
}

// OnChange registers fn to receive a fresh View whenever state changes: on every
// applied sync result, countdown tick and vote attempt. It returns the cancel func.
func (b *Board) OnChange(fn func(View)) func() {
	id := uuid.New()
	b.mu.Lock()
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *Board) changed() {
	b.mu.Lock()
	if b.closed || len(b.listeners) == 0 {
		b.mu.Unlock()
		return
	}
	listeners := make([]func(View), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	v := b.View()
	for _, fn := range listeners {
		fn(v)
	}
}

// Close stops the tick, cancels subscriptions and outstanding refreshes and waits
// for the session goroutines to exit.
func (b *Board) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.stopTick()
	b.cancel()
	err := b.sync.Close()
	b.wg.Wait()

	log.Info().Msg("board closed")
	return err
}
