package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/liveballot/go/internal/models"
)

// Operation names accepted by Memory.SetFailure
const (
	OpListVotes     = "ListVotes"
	OpGetVote       = "GetVote"
	OpIncrementVote = "IncrementVote"
	OpUpdateVotes   = "UpdateVotes"
	OpGetSetting    = "GetSetting"
	OpUpsertSetting = "UpsertSetting"
	OpSubscribe     = "Subscribe"
)

// Memory is an in-process Backend. Every write notifies subscribers of the table
// synchronously, after the write is visible.
type Memory struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	votes    map[int]models.VoteRow
	settings map[string]models.Setting
	subs     map[string]map[uuid.UUID]ChangeHandler
	failures map[string]error
	calls    map[string]int
}

var _ Backend = (*Memory)(nil)

// NewMemory creates a backend with a zeroed vote row for every candidate id
func NewMemory(clock clockwork.Clock, candidateIDs ...int) *Memory {
	m := &Memory{
		clock:    clock,
		votes:    make(map[int]models.VoteRow, len(candidateIDs)),
		settings: make(map[string]models.Setting),
		subs:     make(map[string]map[uuid.UUID]ChangeHandler),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, id := range candidateIDs {
		m.votes[id] = models.VoteRow{CandidateID: id, UpdatedAt: clock.Now()}
	}
	return m
}

// SetFailure makes every call of op fail with err until cleared with a nil err
func (m *Memory) SetFailure(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op was invoked
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// begin records the call and returns the injected failure, if any. Caller holds mu.
func (m *Memory) begin(op string) error {
	m.calls[op]++
	return m.failures[op]
}

func (m *Memory) ListVotes(ctx context.Context) ([]models.VoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpListVotes); err != nil {
		return nil, err
	}

	rows := make([]models.VoteRow, 0, len(m.votes))
	for _, row := range m.votes {
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *Memory) GetVote(ctx context.Context, candidateID int) (models.VoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGetVote); err != nil {
		return models.VoteRow{}, err
	}

	row, ok := m.votes[candidateID]
	if !ok {
		return models.VoteRow{}, fmt.Errorf("vote row for candidate %d: %w", candidateID, ErrNotFound)
	}
	return row, nil
}

func (m *Memory) IncrementVote(ctx context.Context, candidateID int) (int, error) {
	m.mu.Lock()
	if err := m.begin(OpIncrementVote); err != nil {
		m.mu.Unlock()
		return 0, err
	}

	row, ok := m.votes[candidateID]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("vote row for candidate %d: %w", candidateID, ErrNotFound)
	}
	row.Votes++
	row.UpdatedAt = m.clock.Now()
	m.votes[candidateID] = row
	handlers := m.handlersLocked(models.TableVotes)
	m.mu.Unlock()

	m.notify(handlers, models.TableVotes, models.OperationUpdate, row)
	return row.Votes, nil
}

func (m *Memory) UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error) {
	m.mu.Lock()
	if err := m.begin(OpUpdateVotes); err != nil {
		m.mu.Unlock()
		return models.VoteRow{}, err
	}

	row, ok := m.votes[candidateID]
	if !ok {
		m.mu.Unlock()
		return models.VoteRow{}, fmt.Errorf("vote row for candidate %d: %w", candidateID, ErrNotFound)
	}
	row.Votes = votes
	row.UpdatedAt = m.clock.Now()
	m.votes[candidateID] = row
	handlers := m.handlersLocked(models.TableVotes)
	m.mu.Unlock()

	m.notify(handlers, models.TableVotes, models.OperationUpdate, row)
	return row, nil
}

func (m *Memory) GetSetting(ctx context.Context, key string) (models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGetSetting); err != nil {
		return models.Setting{}, err
	}

	s, ok := m.settings[key]
	if !ok {
		return models.Setting{}, fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return s, nil
}

func (m *Memory) UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error) {
	m.mu.Lock()
	if err := m.begin(OpUpsertSetting); err != nil {
		m.mu.Unlock()
		return models.Setting{}, err
	}

	op := models.OperationUpdate
	if _, exists := m.settings[key]; !exists {
		op = models.OperationInsert
	}
	s := models.Setting{Key: key, Value: value, Metadata: metadata, UpdatedAt: m.clock.Now()}
	m.settings[key] = s
	handlers := m.handlersLocked(models.TableSettings)
	m.mu.Unlock()

	m.notify(handlers, models.TableSettings, op, s)
	return s, nil
}

func (m *Memory) Subscribe(ctx context.Context, table string, handler ChangeHandler) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpSubscribe); err != nil {
		return nil, err
	}

	id := uuid.New()
	if m.subs[table] == nil {
		m.subs[table] = make(map[uuid.UUID]ChangeHandler)
	}
	m.subs[table][id] = handler
	return &memorySubscription{m: m, table: table, id: id}, nil
}

// Subscribers returns the number of active subscriptions on table
func (m *Memory) Subscribers(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[table])
}

func (m *Memory) handlersLocked(table string) []ChangeHandler {
	handlers := make([]ChangeHandler, 0, len(m.subs[table]))
	for _, h := range m.subs[table] {
		handlers = append(handlers, h)
	}
	return handlers
}

func (m *Memory) notify(handlers []ChangeHandler, table, op string, record any) {
	if len(handlers) == 0 {
		return
	}
	raw, _ := json.Marshal(record)
	event := models.ChangeEvent{
		ID:         uuid.New(),
		Table:      table,
		Operation:  op,
		Record:     raw,
		OccurredAt: m.clock.Now(),
	}
	for _, h := range handlers {
		h(event)
	}
}

type memorySubscription struct {
	m     *Memory
	table string
	id    uuid.UUID
}

func (s *memorySubscription) Unsubscribe() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.subs[s.table], s.id)
	return nil
}
