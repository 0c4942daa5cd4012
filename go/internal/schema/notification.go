package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/liveballot/go/internal/models"
)

// ChannelFor returns the notification channel of a table
func ChannelFor(table string) (string, error) {
	switch table {
	case models.TableVotes:
		return VotesChannel, nil
	case models.TableSettings:
		return SettingsChannel, nil
	default:
		return "", fmt.Errorf("unknown table %q", table)
	}
}

// notification mirrors the JSON built by notify_row_change()
type notification struct {
	Table      string          `json:"table"`
	Operation  string          `json:"operation"`
	Record     json.RawMessage `json:"record"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ParseNotification decodes a pg_notify payload into a change event with a fresh id
func ParseNotification(payload string, receivedAt time.Time) (models.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("invalid notification payload: %w", err)
	}
	if n.Table == "" {
		return models.ChangeEvent{}, fmt.Errorf("notification payload has no table")
	}

	occurredAt := n.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = receivedAt
	}

	return models.ChangeEvent{
		ID:         uuid.New(),
		Table:      n.Table,
		Operation:  n.Operation,
		Record:     n.Record,
		OccurredAt: occurredAt,
	}, nil
}
