package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/schema"
)

// PostgresConfig configures a Postgres backend
type PostgresConfig struct {
	DatabaseURL  string
	PingInterval time.Duration
}

// DefaultPostgresConfig returns the defaults used by the voting client
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		PingInterval: 90 * time.Second,
	}
}

// Postgres talks to the database directly: queries go through a pgx pool and the
// change feed LISTENs on the per-table notification channels.
type Postgres struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig

	mu       sync.Mutex
	listener *pq.Listener
	handlers map[string]map[uuid.UUID]ChangeHandler
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Backend = (*Postgres)(nil)

// NewPostgres connects the pool and verifies the connection
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPostgresConfig().PingInterval
	}

	return &Postgres{
		pool:     pool,
		cfg:      cfg,
		handlers: make(map[string]map[uuid.UUID]ChangeHandler),
	}, nil
}

func (p *Postgres) ListVotes(ctx context.Context) ([]models.VoteRow, error) {
	rows, err := p.pool.Query(ctx, `SELECT candidate_id, votes, updated_at FROM votes ORDER BY candidate_id`)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	votes, err := pgx.CollectRows(rows, scanVoteRow)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

func (p *Postgres) GetVote(ctx context.Context, candidateID int) (models.VoteRow, error) {
	rows, err := p.pool.Query(ctx, `SELECT candidate_id, votes, updated_at FROM votes WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("get vote %d: %w", candidateID, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, scanVoteRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VoteRow{}, fmt.Errorf("vote row for candidate %d: %w", candidateID, ErrNotFound)
	}
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("get vote %d: %w", candidateID, err)
	}
	return row, nil
}

func (p *Postgres) IncrementVote(ctx context.Context, candidateID int) (int, error) {
	var votes *int
	if err := p.pool.QueryRow(ctx, `SELECT increment_vote($1)`, candidateID).Scan(&votes); err != nil {
		return 0, fmt.Errorf("increment vote %d: %w", candidateID, err)
	}
	if votes == nil {
		return 0, fmt.Errorf("vote row for candidate %d: %w", candidateID, ErrNotFound)
	}
	return *votes, nil
}

func (p *Postgres) UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error) {
	rows, err := p.pool.Query(ctx, `
		UPDATE votes SET votes = $2, updated_at = NOW()
		WHERE candidate_id = $1
		RETURNING candidate_id, votes, updated_at`, candidateID, votes)
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("update votes %d: %w", candidateID, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, scanVoteRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VoteRow{}, fmt.Errorf("vote row for candidate %d: %w", candidateID, ErrNotFound)
	}
	if err != nil {
		return models.VoteRow{}, fmt.Errorf("update votes %d: %w", candidateID, err)
	}
	return row, nil
}

func (p *Postgres) GetSetting(ctx context.Context, key string) (models.Setting, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, value, metadata, updated_at FROM app_settings WHERE key = $1`, key)
	if err != nil {
		return models.Setting{}, fmt.Errorf("get setting %q: %w", key, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSetting)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Setting{}, fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return models.Setting{}, fmt.Errorf("get setting %q: %w", key, err)
	}
	return s, nil
}

func (p *Postgres) UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error) {
	var meta []byte
	if len(metadata) > 0 {
		meta = metadata
	}
	rows, err := p.pool.Query(ctx, `
		INSERT INTO app_settings (key, value, metadata, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at
		RETURNING key, value, metadata, updated_at`, key, value, meta)
	if err != nil {
		return models.Setting{}, fmt.Errorf("upsert setting %q: %w", key, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSetting)
	if err != nil {
		return models.Setting{}, fmt.Errorf("upsert setting %q: %w", key, err)
	}
	return s, nil
}

// Subscribe registers handler for notifications on table. The LISTEN connection is
// opened on the first subscription.
func (p *Postgres) Subscribe(ctx context.Context, table string, handler ChangeHandler) (Subscription, error) {
	channel, err := schema.ChannelFor(table)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener == nil {
		p.startListenerLocked()
	}
	if len(p.handlers[table]) == 0 {
		if err := p.listener.Listen(channel); err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
			return nil, fmt.Errorf("failed to listen to channel %s: %w", channel, err)
		}
		log.Info().Str("channel", channel).Msg("listening for notifications")
	}

	id := uuid.New()
	if p.handlers[table] == nil {
		p.handlers[table] = make(map[uuid.UUID]ChangeHandler)
	}
	p.handlers[table][id] = handler
	return &postgresSubscription{p: p, table: table, channel: channel, id: id}, nil
}

func (p *Postgres) startListenerLocked() {
	p.listener = pq.NewListener(
		p.cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.listen(ctx, p.listener, p.done)
}

func (p *Postgres) listen(ctx context.Context, listener *pq.Listener, done chan struct{}) {
	defer close(done)

	pingTicker := time.NewTicker(p.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case note := <-listener.Notify:
			if note == nil {
				// connection was re-established, notifications may have been missed
				p.resync()
				continue
			}
			event, err := schema.ParseNotification(note.Extra, time.Now())
			if err != nil {
				log.Error().Err(err).Str("channel", note.Channel).Msg("failed to parse notification")
				continue
			}
			p.dispatch(event)
		case <-pingTicker.C:
			if err := listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (p *Postgres) dispatch(event models.ChangeEvent) {
	p.mu.Lock()
	handlers := make([]ChangeHandler, 0, len(p.handlers[event.Table]))
	for _, h := range p.handlers[event.Table] {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

func (p *Postgres) resync() {
	p.mu.Lock()
	tables := make([]string, 0, len(p.handlers))
	for table, handlers := range p.handlers {
		if len(handlers) > 0 {
			tables = append(tables, table)
		}
	}
	p.mu.Unlock()

	now := time.Now()
	for _, table := range tables {
		p.dispatch(models.ChangeEvent{
			ID:         uuid.New(),
			Table:      table,
			Operation:  models.OperationResync,
			OccurredAt: now,
		})
	}
}

// Close stops the change feed and closes the pool
func (p *Postgres) Close() error {
	p.mu.Lock()
	listener, cancel, done := p.listener, p.cancel, p.done
	p.listener = nil
	p.handlers = make(map[string]map[uuid.UUID]ChangeHandler)
	p.mu.Unlock()

	var err error
	if listener != nil {
		cancel()
		<-done
		err = listener.Close()
	}
	p.pool.Close()
	return err
}

func scanVoteRow(row pgx.CollectableRow) (models.VoteRow, error) {
	var v models.VoteRow
	err := row.Scan(&v.CandidateID, &v.Votes, &v.UpdatedAt)
	return v, err
}

func scanSetting(row pgx.CollectableRow) (models.Setting, error) {
	var (
		s    models.Setting
		meta []byte
	)
	if err := row.Scan(&s.Key, &s.Value, &meta, &s.UpdatedAt); err != nil {
		return models.Setting{}, err
	}
	if len(meta) > 0 {
		s.Metadata = json.RawMessage(meta)
	}
	return s, nil
}

type postgresSubscription struct {
	p       *Postgres
	table   string
	channel string
	id      uuid.UUID
	once    sync.Once
}

func (s *postgresSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.p.mu.Lock()
		defer s.p.mu.Unlock()

		delete(s.p.handlers[s.table], s.id)
		if len(s.p.handlers[s.table]) == 0 && s.p.listener != nil {
			if uerr := s.p.listener.Unlisten(s.channel); uerr != nil && !errors.Is(uerr, pq.ErrChannelNotOpen) {
				err = fmt.Errorf("failed to unlisten %s: %w", s.channel, uerr)
			}
		}
	})
	return err
}
