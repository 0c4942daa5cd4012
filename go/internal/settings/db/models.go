package db

import (
	"time"

	"github.com/sqlc-dev/pqtype"
)

type AppSetting struct {
	Key       string                `json:"key"`
	Value     string                `json:"value"`
	Metadata  pqtype.NullRawMessage `json:"metadata"`
	UpdatedAt time.Time             `json:"updated_at"`
}
