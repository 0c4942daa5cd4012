package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type fakeListener struct {
	running   bool
	processed uint64
}

func (l fakeListener) Running() bool { return l.running }

func (l fakeListener) Stats() (uint64, time.Time) { return l.processed, time.Unix(1700000000, 0) }

func TestHealthCheckerHealthy(t *testing.T) {
	h := NewHealthChecker(fakePinger{}, fakeListener{running: true, processed: 7}, func() bool { return true }, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(7), body["events_processed"])
}

func TestHealthCheckerReportsFailures(t *testing.T) {
	h := NewHealthChecker(fakePinger{err: errors.New("refused")}, fakeListener{}, func() bool { return false }, nil)

	status := h.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.DatabaseConnected)
	assert.False(t, status.NATSConnected)
	assert.False(t, status.ListenerActive)
	assert.Len(t, status.Errors, 3)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthCheckerWithoutNATS(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	h := NewHealthChecker(fakePinger{}, fakeListener{running: true}, nil, cm)

	status := h.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Zero(t, status.Connections)
}

func TestPrometheusHandler(t *testing.T) {
	h := NewHealthChecker(fakePinger{}, fakeListener{running: true, processed: 3}, nil, nil)

	rec := httptest.NewRecorder()
	h.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "realtime_healthy 1")
	assert.Contains(t, rec.Body.String(), "realtime_events_processed_total 3")
}
