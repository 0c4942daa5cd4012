// Package livesync keeps the local roster and election window in step with the
// backend: one full fetch on start, then a full re-fetch of a table whenever the
// backend reports a change to it.
package livesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/countdown"
	"github.com/mcdev12/liveballot/go/internal/models"
)

// Resource names a re-fetchable backend table
type Resource string

const (
	ResourceVotes    Resource = models.TableVotes
	ResourceSettings Resource = models.TableSettings
)

// VoteSink receives the full set of vote rows after every fetch
type VoteSink interface {
	ApplyVotes(rows []models.VoteRow)
}

// WindowSink receives the closing instant after every settings fetch
type WindowSink interface {
	SetClosesAt(t time.Time) countdown.Snapshot
}

type Config struct {
	Clock   clockwork.Clock
	Backend backend.Backend
	Votes   VoteSink
	Window  WindowSink
	// DefaultWindow is used locally when the closing instant cannot be fetched
	DefaultWindow time.Duration
	FetchTimeout  time.Duration
	// OnUpdate is called after a fetch result has been applied
	OnUpdate func(Resource)
}

func DefaultConfig() Config {
	return Config{
		DefaultWindow: 3 * 24 * time.Hour,
		FetchTimeout:  10 * time.Second,
	}
}

// Client owns the change subscriptions and the refresh goroutines. Every dispatched
// fetch gets a sequence number per resource; a result is applied only if no later
// fetch of the same resource has been dispatched since.
type Client struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	latest    map[Resource]uint64
	applied   map[Resource]uint64
	discarded uint64
	subs      []backend.Subscription
	started   bool
	closed    bool

	ready     chan struct{}
	readyOnce sync.Once
}

func New(cfg Config) *Client {
	defaults := DefaultConfig()
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = defaults.DefaultWindow
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	return &Client{
		cfg:     cfg,
		latest:  make(map[Resource]uint64),
		applied: make(map[Resource]uint64),
		ready:   make(chan struct{}),
	}
}

// Start dispatches the initial fetch of both tables and subscribes to their change
// feeds. Subscription failures are logged and do not fail Start.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("sync client already started")
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Unlock()

	var initial sync.WaitGroup
	for _, res := range []Resource{ResourceVotes, ResourceSettings} {
		initial.Add(1)
		c.refresh(res, initial.Done)
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		initial.Wait()
		c.readyOnce.Do(func() { close(c.ready) })
		log.Debug().Msg("initial sync complete")
	}()

	for _, res := range []Resource{ResourceVotes, ResourceSettings} {
		res := res
		sub, err := c.cfg.Backend.Subscribe(ctx, string(res), func(event models.ChangeEvent) {
			log.Debug().Str("table", event.Table).Str("operation", event.Operation).Msg("change received")
			c.refresh(res, nil)
		})
		if err != nil {
			log.Error().Err(err).Str("table", string(res)).Msg("failed to subscribe to changes")
			continue
		}
		c.mu.Lock()
		c.subs = append(c.subs, sub)
		c.mu.Unlock()
	}
	return nil
}

// Ready is closed once the initial fetch of both tables has completed
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Refresh dispatches a full re-fetch of res
func (c *Client) Refresh(res Resource) {
	c.refresh(res, nil)
}

// Discarded returns how many fetch results were dropped as stale
func (c *Client) Discarded() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}

func (c *Client) refresh(res Resource, done func()) {
	c.mu.Lock()
	if c.closed || c.ctx == nil {
		c.mu.Unlock()
		if done != nil {
			done()
		}
		return
	}
	c.latest[res]++
	seq := c.latest[res]
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if done != nil {
			defer done()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
		defer cancel()

		switch res {
		case ResourceVotes:
			c.syncVotes(fetchCtx, seq)
		case ResourceSettings:
			c.syncSettings(fetchCtx, seq)
		}
	}()
}

func (c *Client) syncVotes(ctx context.Context, seq uint64) {
	rows, err := c.cfg.Backend.ListVotes(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Uint64("seq", seq).Msg("failed to load votes")
		}
		return
	}
	c.apply(ResourceVotes, seq, func() {
		c.cfg.Votes.ApplyVotes(rows)
	})
}

func (c *Client) syncSettings(ctx context.Context, seq uint64) {
	closesAt, err := c.fetchClosesAt(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		closesAt = c.cfg.Clock.Now().Add(c.cfg.DefaultWindow)
		log.Warn().Err(err).Time("closes_at", closesAt).Msg("using default voting period")
	}
	c.apply(ResourceSettings, seq, func() {
		c.cfg.Window.SetClosesAt(closesAt)
	})
}

func (c *Client) fetchClosesAt(ctx context.Context) (time.Time, error) {
	setting, err := c.cfg.Backend.GetSetting(ctx, models.SettingVoteEndDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load vote end date: %w", err)
	}
	return countdown.ParseClosesAt(setting.Value)
}

// apply runs fn if seq is still the latest dispatched fetch of res
func (c *Client) apply(res Resource, seq uint64, fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if seq != c.latest[res] || seq <= c.applied[res] {
		c.discarded++
		latest := c.latest[res]
		c.mu.Unlock()
		log.Debug().Str("resource", string(res)).Uint64("seq", seq).Uint64("latest", latest).Msg("discarding stale fetch")
		return
	}
	c.applied[res] = seq
	fn()
	c.mu.Unlock()

	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate(res)
	}
}

// Close unsubscribes, cancels outstanding fetches and waits for them to return
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	cancel := c.cancel
	c.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.readyOnce.Do(func() { close(c.ready) })
	return errors.Join(errs...)
}
