package votes

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/ballotrpc"
	"github.com/mcdev12/liveballot/go/internal/models"
)

// memRepo is an in-memory VotesRepository
type memRepo struct {
	mu   sync.Mutex
	rows map[int]models.VoteRow
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int]models.VoteRow)}
}

func (m *memRepo) ListVotes(ctx context.Context) ([]models.VoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.VoteRow, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateID < out[j].CandidateID })
	return out, nil
}

func (m *memRepo) GetVote(ctx context.Context, candidateID int) (models.VoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[candidateID]
	if !ok {
		return models.VoteRow{}, ErrVoteNotFound
	}
	return r, nil
}

func (m *memRepo) IncrementVote(ctx context.Context, candidateID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[candidateID]
	if !ok {
		return 0, ErrVoteNotFound
	}
	r.Votes++
	m.rows[candidateID] = r
	return r.Votes, nil
}

func (m *memRepo) UpdateVotes(ctx context.Context, candidateID, votes int) (models.VoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[candidateID]
	if !ok {
		return models.VoteRow{}, ErrVoteNotFound
	}
	r.Votes = votes
	m.rows[candidateID] = r
	return r, nil
}

func (m *memRepo) EnsureVotes(ctx context.Context, candidateIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range candidateIDs {
		if _, ok := m.rows[id]; !ok {
			m.rows[id] = models.VoteRow{CandidateID: id}
		}
	}
	return nil
}

func newTestServer(t *testing.T) *backend.Remote {
	t.Helper()
	app := NewApp(newMemRepo())
	require.NoError(t, app.SeedCandidates(context.Background(), []models.Candidate{{ID: 1}, {ID: 2}}))

	mux := http.NewServeMux()
	mux.Handle(ballotrpc.NewVoteServiceHandler(NewService(app)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return backend.NewRemote(backend.RemoteConfig{BaseURL: srv.URL})
}

func TestVoteServiceOverConnect(t *testing.T) {
	ctx := context.Background()
	client := newTestServer(t)

	votes, err := client.IncrementVote(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)

	row, err := client.UpdateVotes(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, row.Votes)

	rows, err := client.ListVotes(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 4, rows[0].Votes)
	assert.Equal(t, 1, rows[1].Votes)

	got, err := client.GetVote(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Votes)
}

func TestVoteServiceErrors(t *testing.T) {
	ctx := context.Background()
	client := newTestServer(t)

	_, err := client.IncrementVote(ctx, 99)
	assert.ErrorIs(t, err, backend.ErrNotFound)

	_, err = client.UpdateVotes(ctx, 1, -1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrNotFound)
}

func TestAppRejectsOutOfRangeArguments(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	app := NewApp(repo)
	require.NoError(t, app.SeedCandidates(ctx, []models.Candidate{{ID: 1}, {ID: 2}}))

	tests := []struct {
		name string
		call func() error
	}{
		{"get zero id", func() error { _, err := app.GetVote(ctx, 0); return err }},
		{"get id past int32", func() error { _, err := app.GetVote(ctx, 1<<32+1); return err }},
		{"increment negative id", func() error { _, err := app.IncrementVote(ctx, -1); return err }},
		{"increment id past int32", func() error { _, err := app.IncrementVote(ctx, 1<<32+1); return err }},
		{"increment max int", func() error { _, err := app.IncrementVote(ctx, math.MaxInt); return err }},
		{"update id past int32", func() error { _, err := app.UpdateVotes(ctx, math.MaxInt32+2, 1); return err }},
		{"update negative votes", func() error { _, err := app.UpdateVotes(ctx, 1, -1); return err }},
		{"update votes past int32", func() error { _, err := app.UpdateVotes(ctx, 1, math.MaxInt32+1); return err }},
		{"seed id past int32", func() error { return app.SeedCandidates(ctx, []models.Candidate{{ID: 1<<32 + 1}}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrInvalidArgument)
		})
	}

	rows, err := app.ListVotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.VoteRow{{CandidateID: 1}, {CandidateID: 2}}, rows)
}

func TestVoteServiceRejectsOutOfRangeID(t *testing.T) {
	ctx := context.Background()
	client := newTestServer(t)

	_, err := client.IncrementVote(ctx, 1<<32+1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrNotFound)

	row, err := client.GetVote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Votes)
}
