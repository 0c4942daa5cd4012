package livesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/countdown"
	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/roster"
)

var start = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// gatedBackend holds every ListVotes result until the test releases it
type gatedBackend struct {
	*backend.Memory

	mu      sync.Mutex
	gates   []chan struct{}
	started chan struct{}
}

func newGatedBackend(m *backend.Memory) *gatedBackend {
	return &gatedBackend{Memory: m, started: make(chan struct{}, 8)}
}

func (g *gatedBackend) ListVotes(ctx context.Context) ([]models.VoteRow, error) {
	rows, err := g.Memory.ListVotes(ctx)
	gate := make(chan struct{})
	g.mu.Lock()
	g.gates = append(g.gates, gate)
	g.mu.Unlock()
	g.started <- struct{}{}

	select {
	case <-gate:
		return rows, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedBackend) release(i int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.gates[i])
}

func testRoster() *roster.Roster {
	return roster.New([]models.Candidate{
		{ID: 1, Name: "Ada"},
		{ID: 2, Name: "Grace"},
	})
}

func votesOf(r *roster.Roster, id int) int {
	c, _ := r.Get(id)
	return c.Votes
}

func TestInitialLoadAndDefaultWindow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	mem := backend.NewMemory(clock, 1, 2)
	_, err := mem.UpdateVotes(context.Background(), 1, 3)
	require.NoError(t, err)

	r := testRoster()
	window := countdown.New(countdown.Config{Clock: clock, Settings: mem})
	c := New(Config{Clock: clock, Backend: mem, Votes: r, Window: window})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	<-c.Ready()
	assert.Equal(t, 3, votesOf(r, 1))
	assert.Equal(t, 0, votesOf(r, 2))

	// no vote_end_date row: local default, never written back
	snap := window.Snapshot()
	assert.True(t, snap.Known)
	assert.Equal(t, models.Countdown{Days: 3}, snap.Countdown)
	assert.Equal(t, 0, mem.Calls(backend.OpUpsertSetting))
	assert.Equal(t, 1, mem.Subscribers(models.TableVotes))
	assert.Equal(t, 1, mem.Subscribers(models.TableSettings))
}

func TestChangeTriggersFullRefetch(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(start)
	mem := backend.NewMemory(clock, 1, 2)
	_, err := mem.UpsertSetting(ctx, models.SettingVoteEndDate, "2025-03-02T10:00:00.000Z", nil)
	require.NoError(t, err)

	r := testRoster()
	window := countdown.New(countdown.Config{Clock: clock, Settings: mem})
	updates := make(chan Resource, 8)
	c := New(Config{
		Clock:    clock,
		Backend:  mem,
		Votes:    r,
		Window:   window,
		OnUpdate: func(res Resource) { updates <- res },
	})
	require.NoError(t, c.Start(ctx))
	defer c.Close()
	<-c.Ready()
	assert.Equal(t, models.Countdown{Days: 1}, window.Remaining())

	_, err = mem.IncrementVote(ctx, 2)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return votesOf(r, 2) == 1 }, time.Second, 5*time.Millisecond)

	_, err = mem.UpsertSetting(ctx, models.SettingVoteEndDate, "2025-03-03T10:00:00.000Z", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return window.Remaining() == models.Countdown{Days: 2}
	}, time.Second, 5*time.Millisecond)
}

func TestStaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(start)
	mem := backend.NewMemory(clock, 1, 2)
	gated := newGatedBackend(mem)

	r := testRoster()
	window := countdown.New(countdown.Config{Clock: clock, Settings: mem})
	c := New(Config{Clock: clock, Backend: gated, Votes: r, Window: window})
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	<-gated.started
	gated.release(0)
	<-c.Ready()

	_, err := mem.UpdateVotes(ctx, 1, 5)
	require.NoError(t, err)
	<-gated.started

	_, err = mem.UpdateVotes(ctx, 1, 9)
	require.NoError(t, err)
	<-gated.started

	// the newer fetch resolves first
	gated.release(2)
	require.Eventually(t, func() bool { return votesOf(r, 1) == 9 }, time.Second, 5*time.Millisecond)

	gated.release(1)
	require.Eventually(t, func() bool { return c.Discarded() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 9, votesOf(r, 1))
}

func TestSubscribeFailureIsNotFatal(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	mem := backend.NewMemory(clock, 1)
	mem.SetFailure(backend.OpSubscribe, errors.New("realtime unavailable"))

	r := roster.New([]models.Candidate{{ID: 1, Name: "Ada"}})
	window := countdown.New(countdown.Config{Clock: clock, Settings: mem})
	c := New(Config{Clock: clock, Backend: mem, Votes: r, Window: window})
	require.NoError(t, c.Start(context.Background()))
	<-c.Ready()
	require.NoError(t, c.Close())
}

func TestCloseCancelsOutstandingFetch(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	mem := backend.NewMemory(clock, 1)
	gated := newGatedBackend(mem)

	r := roster.New([]models.Candidate{{ID: 1, Name: "Ada"}})
	window := countdown.New(countdown.Config{Clock: clock, Settings: mem})
	c := New(Config{Clock: clock, Backend: gated, Votes: r, Window: window})
	require.NoError(t, c.Start(context.Background()))
	<-gated.started

	require.NoError(t, c.Close())
	assert.Equal(t, 0, mem.Subscribers(models.TableVotes))
	<-c.Ready()

	// events after close are ignored
	_, err := mem.IncrementVote(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, votesOf(r, 1))
}
