package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Row change operations reported by the backend
const (
	OperationInsert = "INSERT"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
	// OperationResync asks subscribers to re-fetch after notifications may have been lost
	OperationResync = "RESYNC"
)

// ChangeEvent is a row change notification for one backend table
type ChangeEvent struct {
	ID         uuid.UUID       `json:"id"`
	Table      string          `json:"table"`
	Operation  string          `json:"operation"`
	Record     json.RawMessage `json:"record,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
