package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/liveballot/go/internal/models"
)

func TestFanoutPublisherJoinsErrors(t *testing.T) {
	var delivered []string
	ok := PublisherFunc(func(ctx context.Context, e models.ChangeEvent) error {
		delivered = append(delivered, e.Table)
		return nil
	})
	boom := errors.New("boom")
	failing := PublisherFunc(func(ctx context.Context, e models.ChangeEvent) error {
		return boom
	})

	err := FanoutPublisher{failing, ok}.Publish(context.Background(), models.ChangeEvent{Table: models.TableVotes})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{models.TableVotes}, delivered)

	assert.NoError(t, FanoutPublisher{ok}.Publish(context.Background(), models.ChangeEvent{Table: models.TableSettings}))
}

func TestMetricPublisherCounts(t *testing.T) {
	counters := NewTableCounters()
	fail := true
	p := NewMetricPublisher(PublisherFunc(func(ctx context.Context, e models.ChangeEvent) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}), counters)

	ctx := context.Background()
	assert.Error(t, p.Publish(ctx, models.ChangeEvent{Table: models.TableVotes}))
	fail = false
	assert.NoError(t, p.Publish(ctx, models.ChangeEvent{Table: models.TableVotes}))
	assert.NoError(t, p.Publish(ctx, models.ChangeEvent{Table: models.TableSettings}))

	snap := counters.Snapshot()
	assert.Equal(t, uint64(1), snap.Published[models.TableVotes])
	assert.Equal(t, uint64(1), snap.Published[models.TableSettings])
	assert.Equal(t, uint64(1), snap.Failed[models.TableVotes])
}

func TestJetStreamSubject(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	assert.Equal(t, "ballot.changes.votes", cfg.Subject(models.TableVotes))
	assert.Equal(t, "ballot.changes.app_settings", cfg.Subject(models.TableSettings))
}

func TestListenerPublishWithRetry(t *testing.T) {
	attempts := 0
	l := &Listener{
		publisher: PublisherFunc(func(ctx context.Context, e models.ChangeEvent) error {
			attempts++
			if attempts < 3 {
				return errors.New("nats unavailable")
			}
			return nil
		}),
		cfg: ListenerConfig{MaxRetries: 3, RetryDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}

	payload := `{"table":"votes","operation":"UPDATE","record":{"candidate_id":1,"votes":2}}`
	require.NoError(t, l.handleNotification(context.Background(), payload))
	assert.Equal(t, 3, attempts)

	processed, last := l.Stats()
	assert.Equal(t, uint64(1), processed)
	assert.False(t, last.IsZero())
}

func TestListenerPublishGivesUp(t *testing.T) {
	l := &Listener{
		publisher: PublisherFunc(func(ctx context.Context, e models.ChangeEvent) error {
			return errors.New("nats unavailable")
		}),
		cfg: ListenerConfig{MaxRetries: 1, RetryDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}

	err := l.handleNotification(context.Background(), `{"table":"votes","operation":"UPDATE"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats unavailable")

	processed, _ := l.Stats()
	assert.Zero(t, processed)
}

func TestListenerRejectsBadPayload(t *testing.T) {
	l := &Listener{publisher: PublisherFunc(func(ctx context.Context, e models.ChangeEvent) error {
		t.Fatal("should not publish")
		return nil
	})}

	assert.Error(t, l.handleNotification(context.Background(), "not json"))
}

func TestListenerResyncPublishesPerTable(t *testing.T) {
	var got []models.ChangeEvent
	l := &Listener{
		publisher: PublisherFunc(func(ctx context.Context, e models.ChangeEvent) error {
			got = append(got, e)
			return nil
		}),
		cfg: ListenerConfig{Tables: []string{models.TableVotes, models.TableSettings}, RetryDelay: time.Millisecond},
	}

	l.resync(context.Background())
	require.Len(t, got, 2)
	for i, table := range []string{models.TableVotes, models.TableSettings} {
		assert.Equal(t, table, got[i].Table)
		assert.Equal(t, models.OperationResync, got[i].Operation)
	}
}
