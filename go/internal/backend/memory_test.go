package backend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/liveballot/go/internal/models"
)

func TestMemoryIncrementNotifiesSubscribers(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	m := NewMemory(clock, 1, 2)

	var events []models.ChangeEvent
	sub, err := m.Subscribe(ctx, models.TableVotes, func(e models.ChangeEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	votes, err := m.IncrementVote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)

	require.Len(t, events, 1)
	assert.Equal(t, models.TableVotes, events[0].Table)
	assert.Equal(t, models.OperationUpdate, events[0].Operation)

	var row models.VoteRow
	require.NoError(t, json.Unmarshal(events[0].Record, &row))
	assert.Equal(t, 1, row.CandidateID)
	assert.Equal(t, 1, row.Votes)

	require.NoError(t, sub.Unsubscribe())
	_, err = m.IncrementVote(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 0, m.Subscribers(models.TableVotes))
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), 1)

	_, err := m.IncrementVote(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.GetVote(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.UpdateVotes(ctx, 99, 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.GetSetting(ctx, models.SettingVoteEndDate)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryInjectedFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), 1)
	boom := errors.New("boom")

	m.SetFailure(OpIncrementVote, boom)
	_, err := m.IncrementVote(ctx, 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.Calls(OpIncrementVote))

	m.SetFailure(OpIncrementVote, nil)
	votes, err := m.IncrementVote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)
	assert.Equal(t, 2, m.Calls(OpIncrementVote))
}

func TestMemoryUpsertSetting(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock())

	var ops []string
	_, err := m.Subscribe(ctx, models.TableSettings, func(e models.ChangeEvent) {
		ops = append(ops, e.Operation)
	})
	require.NoError(t, err)

	_, err = m.UpsertSetting(ctx, models.SettingVoteEndDate, "2025-03-04T10:00:00.000Z", nil)
	require.NoError(t, err)
	s, err := m.UpsertSetting(ctx, models.SettingVoteEndDate, "2025-03-05T10:00:00.000Z", json.RawMessage(`{"action":"extend"}`))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05T10:00:00.000Z", s.Value)

	got, err := m.GetSetting(ctx, models.SettingVoteEndDate)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, []string{models.OperationInsert, models.OperationUpdate}, ops)
}
