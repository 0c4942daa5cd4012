package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/schema"
)

type ListenerConfig struct {
	DatabaseURL  string // Postgres DSN for LISTEN/NOTIFY
	Tables       []string
	MaxRetries   uint
	RetryDelay   time.Duration
	MaxDelay     time.Duration
	PingInterval time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		DatabaseURL:  "",
		Tables:       []string{models.TableVotes, models.TableSettings},
		MaxRetries:   5,
		RetryDelay:   200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		PingInterval: 90 * time.Second,
	}
}

// Listener LISTENs on the table change channels and forwards every notification to
// a Publisher
type Listener struct {
	listener  *pq.Listener
	publisher Publisher
	cfg       ListenerConfig

	mu        sync.Mutex
	running   bool
	processed uint64
	lastEvent time.Time
}

func NewListener(publisher Publisher, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	for _, table := range cfg.Tables {
		channel, err := schema.ChannelFor(table)
		if err != nil {
			l.Close()
			return nil, err
		}
		if err := l.Listen(channel); err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to listen to channel: %w", err)
		}
		log.Info().
			Str("channel", channel).
			Msg("listening for notifications")
	}

	return &Listener{
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Strs("tables", l.cfg.Tables).
		Dur("ping_interval", l.cfg.PingInterval).
		Msg("listener started")

	l.setRunning(true)
	defer l.setRunning(false)

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established; anything
				// sent meanwhile is lost, so tell subscribers to re-fetch
				l.resync(ctx)
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Str("channel", note.Channel).Msg("failed to handle notification")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}

// Stats returns how many events were published and when the last one was
func (l *Listener) Stats() (uint64, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed, l.lastEvent
}

// Running reports whether the listen loop is active
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Listener) setRunning(running bool) {
	l.mu.Lock()
	l.running = running
	l.mu.Unlock()
}

// handleNotification parses a pg_notify payload and publishes it
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	event, err := schema.ParseNotification(extra, time.Now())
	if err != nil {
		return err
	}
	return l.publishWithRetry(ctx, event)
}

func (l *Listener) resync(ctx context.Context) {
	for _, table := range l.cfg.Tables {
		event := models.ChangeEvent{
			ID:         uuid.New(),
			Table:      table,
			Operation:  models.OperationResync,
			OccurredAt: time.Now(),
		}
		if err := l.publishWithRetry(ctx, event); err != nil {
			log.Error().Err(err).Str("table", table).Msg("failed to publish resync")
		}
	}
}

// publishWithRetry publishes with jittered exponential backoff
func (l *Listener) publishWithRetry(ctx context.Context, event models.ChangeEvent) error {
	err := retry.Do(
		func() error {
			return l.publisher.Publish(ctx, event)
		},
		retry.Context(ctx),
		retry.Attempts(l.cfg.MaxRetries+1),
		retry.Delay(l.cfg.RetryDelay),
		retry.MaxDelay(l.cfg.MaxDelay),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().
				Err(err).
				Uint("attempt", n+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, err)
	}

	l.mu.Lock()
	l.processed++
	l.lastEvent = time.Now()
	l.mu.Unlock()

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("table", event.Table).
		Str("operation", event.Operation).
		Msg("published change event")
	return nil
}
