package schema

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	received := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ev, err := ParseNotification(`{"table":"votes","operation":"UPDATE","record":{"candidate_id":3,"votes":8},"occurred_at":"2025-03-01T09:59:59.5+00:00"}`, received)
	require.NoError(t, err)
	assert.Equal(t, models.TableVotes, ev.Table)
	assert.Equal(t, models.OperationUpdate, ev.Operation)
	assert.JSONEq(t, `{"candidate_id":3,"votes":8}`, string(ev.Record))
	assert.True(t, ev.OccurredAt.Before(received))
	assert.NotEqual(t, uuid.Nil, ev.ID)

	ev, err = ParseNotification(`{"table":"app_settings","operation":"INSERT"}`, received)
	require.NoError(t, err)
	assert.Equal(t, received, ev.OccurredAt)

	_, err = ParseNotification(`not json`, received)
	assert.Error(t, err)

	_, err = ParseNotification(`{"operation":"DELETE"}`, received)
	assert.Error(t, err)
}

func TestChannelFor(t *testing.T) {
	ch, err := ChannelFor(models.TableVotes)
	require.NoError(t, err)
	assert.Equal(t, VotesChannel, ch)

	ch, err = ChannelFor(models.TableSettings)
	require.NoError(t, err)
	assert.Equal(t, SettingsChannel, ch)

	_, err = ChannelFor("ballots")
	assert.Error(t, err)
}
