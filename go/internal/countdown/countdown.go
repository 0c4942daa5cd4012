// Package countdown tracks the time left until the election closes and lets an
// administrator move the closing instant.
package countdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/models"
)

var (
	ErrNotAdmin      = errors.New("administrative controls are disabled")
	ErrWindowUnknown = errors.New("closing time is not known yet")
)

// closesAtLayout is RFC 3339 in UTC with millisecond precision
const closesAtLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatClosesAt encodes a closing instant the way it is stored in app_settings
func FormatClosesAt(t time.Time) string {
	return t.UTC().Format(closesAtLayout)
}

// ParseClosesAt decodes a stored closing instant
func ParseClosesAt(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid closing time %q: %w", value, err)
	}
	return t, nil
}

// Snapshot is the countdown state at one instant
type Snapshot struct {
	Countdown models.Countdown
	ClosesAt  time.Time
	// Known is false until a closing time has been set
	Known     bool
	HasClosed bool
	At        time.Time
}

type Config struct {
	Clock    clockwork.Clock
	Settings backend.SettingsStore
	// Admin enables Extend and Reset
	Admin        bool
	TickInterval time.Duration
	ResetPeriod  time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		ResetPeriod:  3 * 24 * time.Hour,
	}
}

// Controller recomputes the countdown every tick. Once the closing instant is reached
// HasClosed stays true until an administrator extends or resets the window.
type Controller struct {
	clock    clockwork.Clock
	settings backend.SettingsStore
	cfg      Config

	mu          sync.Mutex
	closesAt    time.Time
	known       bool
	closed      bool
	subscribers map[uuid.UUID]func(Snapshot)
}

func New(cfg Config) *Controller {
	defaults := DefaultConfig()
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.ResetPeriod <= 0 {
		cfg.ResetPeriod = defaults.ResetPeriod
	}
	return &Controller{
		clock:       cfg.Clock,
		settings:    cfg.Settings,
		cfg:         cfg,
		subscribers: make(map[uuid.UUID]func(Snapshot)),
	}
}

// Admin reports whether administrative controls are enabled
func (c *Controller) Admin() bool {
	return c.cfg.Admin
}

// SetClosesAt replaces the closing instant. It never reopens a closed election.
func (c *Controller) SetClosesAt(t time.Time) Snapshot {
	c.mu.Lock()
	c.closesAt = t
	c.known = true
	snap := c.snapshotLocked(c.clock.Now())
	c.mu.Unlock()

	c.notify(snap)
	return snap
}

// Snapshot recomputes the countdown at the current clock time
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.clock.Now())
}

// Known reports whether a closing time has been set
func (c *Controller) Known() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.known
}

// HasClosed reports whether the election has closed
func (c *Controller) HasClosed() bool {
	return c.Snapshot().HasClosed
}

// Remaining returns the time left until the election closes
func (c *Controller) Remaining() models.Countdown {
	return c.Snapshot().Countdown
}

func (c *Controller) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{ClosesAt: c.closesAt, Known: c.known, At: now}
	if !c.known {
		return snap
	}
	remaining := c.closesAt.Sub(now)
	if remaining <= 0 {
		c.closed = true
	}
	snap.HasClosed = c.closed
	if !c.closed {
		snap.Countdown = models.NewCountdown(remaining)
	}
	return snap
}

// Extend moves the closing instant days into the future and reopens the election
func (c *Controller) Extend(ctx context.Context, days int) (Snapshot, error) {
	if !c.cfg.Admin {
		return Snapshot{}, ErrNotAdmin
	}
	if days <= 0 {
		return Snapshot{}, fmt.Errorf("extension must be at least one day, got %d", days)
	}

	c.mu.Lock()
	closesAt, known := c.closesAt, c.known
	c.mu.Unlock()
	if !known {
		return Snapshot{}, ErrWindowUnknown
	}

	next := closesAt.AddDate(0, 0, days)
	meta, _ := json.Marshal(map[string]any{"action": "extend", "days": days})
	return c.override(ctx, next, meta)
}

// Reset sets the closing instant to the reset period from now and reopens the election
func (c *Controller) Reset(ctx context.Context) (Snapshot, error) {
	if !c.cfg.Admin {
		return Snapshot{}, ErrNotAdmin
	}

	next := c.clock.Now().Add(c.cfg.ResetPeriod)
	meta, _ := json.Marshal(map[string]any{"action": "reset"})
	return c.override(ctx, next, meta)
}

func (c *Controller) override(ctx context.Context, closesAt time.Time, metadata json.RawMessage) (Snapshot, error) {
	value := FormatClosesAt(closesAt)
	if _, err := c.settings.UpsertSetting(ctx, models.SettingVoteEndDate, value, metadata); err != nil {
		log.Error().Err(err).Str("closes_at", value).Msg("failed to update voting period")
		return Snapshot{}, fmt.Errorf("failed to update voting period: %w", err)
	}

	c.mu.Lock()
	c.closesAt = closesAt.UTC().Truncate(time.Millisecond)
	c.known = true
	c.closed = false
	snap := c.snapshotLocked(c.clock.Now())
	c.mu.Unlock()

	log.Info().Str("closes_at", value).RawJSON("metadata", metadata).Msg("voting period updated")
	c.notify(snap)
	return snap, nil
}

// Subscribe registers fn for every recomputed snapshot and returns its cancel func
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	id := uuid.New()
	c.mu.Lock()
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Start recomputes the countdown every tick until ctx is done
func (c *Controller) Start(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	log.Debug().Dur("interval", c.cfg.TickInterval).Msg("countdown started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("countdown stopped")
			return
		case <-ticker.Chan():
			snap := c.Snapshot()
			c.notify(snap)
		}
	}
}
