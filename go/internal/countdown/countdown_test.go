package countdown

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/models"
)

var start = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newController(admin bool) (*Controller, *clockwork.FakeClock, *backend.Memory) {
	clock := clockwork.NewFakeClockAt(start)
	settings := backend.NewMemory(clock)
	c := New(Config{Clock: clock, Settings: settings, Admin: admin})
	return c, clock, settings
}

func TestSnapshotUnknownUntilSet(t *testing.T) {
	c, _, _ := newController(false)

	snap := c.Snapshot()
	assert.False(t, snap.Known)
	assert.False(t, snap.HasClosed)
	assert.True(t, snap.Countdown.IsZero())
}

func TestCountdownClosesAndStaysClosed(t *testing.T) {
	c, clock, _ := newController(false)

	snap := c.SetClosesAt(start.Add(26*time.Hour + 90*time.Second))
	assert.Equal(t, models.Countdown{Days: 1, Hours: 2, Minutes: 1, Seconds: 30}, snap.Countdown)
	assert.False(t, snap.HasClosed)

	clock.Advance(26*time.Hour + 90*time.Second)
	assert.True(t, c.HasClosed())
	assert.True(t, c.Remaining().IsZero())

	// a later closing instant from sync does not reopen the election
	snap = c.SetClosesAt(clock.Now().Add(time.Hour))
	assert.True(t, snap.HasClosed)
	assert.True(t, snap.Countdown.IsZero())
}

func TestPastClosingInstantIsClosed(t *testing.T) {
	c, _, _ := newController(false)

	snap := c.SetClosesAt(start.Add(-time.Minute))
	assert.True(t, snap.HasClosed)
}

func TestAdminGate(t *testing.T) {
	c, _, settings := newController(false)
	c.SetClosesAt(start.Add(time.Hour))

	_, err := c.Extend(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = c.Reset(context.Background())
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Equal(t, 0, settings.Calls(backend.OpUpsertSetting))
}

func TestExtendRequiresKnownWindow(t *testing.T) {
	c, _, _ := newController(true)

	_, err := c.Extend(context.Background(), 1)
	assert.ErrorIs(t, err, ErrWindowUnknown)
}

func TestExtendPersistsAndReopens(t *testing.T) {
	ctx := context.Background()
	c, clock, settings := newController(true)
	c.SetClosesAt(start.Add(time.Hour))
	clock.Advance(2 * time.Hour)
	require.True(t, c.HasClosed())

	snap, err := c.Extend(ctx, 7)
	require.NoError(t, err)
	assert.False(t, snap.HasClosed)
	assert.Equal(t, start.Add(time.Hour).AddDate(0, 0, 7), snap.ClosesAt)
	assert.Equal(t, models.Countdown{Days: 6, Hours: 23}, snap.Countdown)

	stored, err := settings.GetSetting(ctx, models.SettingVoteEndDate)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-08T11:00:00.000Z", stored.Value)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(stored.Metadata, &meta))
	assert.Equal(t, "extend", meta["action"])
	assert.EqualValues(t, 7, meta["days"])
}

func TestResetSetsThreeDaysFromNow(t *testing.T) {
	ctx := context.Background()
	c, clock, settings := newController(true)
	c.SetClosesAt(start.Add(-time.Hour))
	require.True(t, c.HasClosed())
	clock.Advance(5 * time.Minute)

	snap, err := c.Reset(ctx)
	require.NoError(t, err)
	assert.False(t, snap.HasClosed)
	assert.Equal(t, models.Countdown{Days: 3}, snap.Countdown)

	stored, err := settings.GetSetting(ctx, models.SettingVoteEndDate)
	require.NoError(t, err)
	assert.Equal(t, FormatClosesAt(clock.Now().Add(72*time.Hour)), stored.Value)
}

func TestOverrideFailureKeepsState(t *testing.T) {
	c, _, settings := newController(true)
	c.SetClosesAt(start.Add(-time.Hour))
	settings.SetFailure(backend.OpUpsertSetting, errors.New("permission denied"))

	_, err := c.Reset(context.Background())
	require.Error(t, err)
	assert.True(t, c.HasClosed())
}

func TestStartTicksSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, clock, _ := newController(false)
	c.SetClosesAt(start.Add(2 * time.Second))

	snaps := make(chan Snapshot, 4)
	unsubscribe := c.Subscribe(func(s Snapshot) { snaps <- s })
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(time.Second)
	snap := <-snaps
	assert.Equal(t, models.Countdown{Seconds: 1}, snap.Countdown)

	clock.Advance(time.Second)
	snap = <-snaps
	assert.True(t, snap.HasClosed)

	cancel()
	<-done
}

func TestParseClosesAt(t *testing.T) {
	got, err := ParseClosesAt("2025-03-04T10:00:00.123Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 123000000, time.UTC), got)
	assert.Equal(t, "2025-03-04T10:00:00.123Z", FormatClosesAt(got))

	_, err = ParseClosesAt("next tuesday")
	assert.Error(t, err)
}
