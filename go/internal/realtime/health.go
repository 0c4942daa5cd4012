package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type HealthStatus struct {
	Healthy           bool
	LastEventTime     time.Time
	EventsProcessed   uint64
	DatabaseConnected bool
	NATSConnected     bool
	ListenerActive    bool
	Connections       int
	Errors            []string
}

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ListenerStatus is satisfied by *Listener
type ListenerStatus interface {
	Running() bool
	Stats() (uint64, time.Time)
}

// HealthChecker reports on the database and whichever of listener, NATS and
// gateway the process runs
type HealthChecker struct {
	db          Pinger
	listener    ListenerStatus
	natsUp      func() bool
	connections *ConnectionManager
}

// NewHealthChecker builds a checker. listener, natsUp and connections may be nil
// when the process runs without that piece.
func NewHealthChecker(db Pinger, listener ListenerStatus, natsUp func() bool, connections *ConnectionManager) *HealthChecker {
	return &HealthChecker{
		db:          db,
		listener:    listener,
		natsUp:      natsUp,
		connections: connections,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.natsUp != nil {
		status.NATSConnected = h.natsUp()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if h.listener != nil {
		status.EventsProcessed, status.LastEventTime = h.listener.Stats()
		status.ListenerActive = h.listener.Running()
		if !status.ListenerActive {
			status.Healthy = false
			status.Errors = append(status.Errors, "listener not active")
		}
	}

	if h.connections != nil {
		status.Connections = h.connections.GetConnectionStats().TotalConnections
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	state := "healthy"
	if !status.Healthy {
		state = "unhealthy"
	}
	response := map[string]interface{}{
		"status":             state,
		"healthy":            status.Healthy,
		"events_processed":   status.EventsProcessed,
		"last_event_time":    status.LastEventTime,
		"database_connected": status.DatabaseConnected,
		"nats_connected":     status.NATSConnected,
		"listener_active":    status.ListenerActive,
		"connections":        status.Connections,
		"errors":             status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

// PrometheusHandler renders the health status in the text exposition format
func (h *HealthChecker) PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, `# HELP realtime_healthy Whether the change relay is healthy
# TYPE realtime_healthy gauge
realtime_healthy %d

# HELP realtime_events_processed_total Total number of change events published
# TYPE realtime_events_processed_total counter
realtime_events_processed_total %d

# HELP realtime_listener_active Whether the LISTEN loop is running
# TYPE realtime_listener_active gauge
realtime_listener_active %d

# HELP realtime_connections Current websocket subscribers
# TYPE realtime_connections gauge
realtime_connections %d
`,
			boolGauge(status.Healthy),
			status.EventsProcessed,
			boolGauge(status.ListenerActive),
			status.Connections,
		)
	})
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
