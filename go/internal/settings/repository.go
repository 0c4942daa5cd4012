package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/settings/db"
	"github.com/mcdev12/liveballot/go/internal/sqlutil"
)

// ErrSettingNotFound is returned when no row exists for a key
var ErrSettingNotFound = errors.New("setting not found")

// Querier defines what the repository needs from the database layer
type Querier interface {
	GetSetting(ctx context.Context, key string) (db.AppSetting, error)
	UpsertSetting(ctx context.Context, arg db.UpsertSettingParams) (db.AppSetting, error)
}

// Repository implements app_settings data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new settings repository
func NewRepository(querier Querier) *Repository {
	return &Repository{queries: querier}
}

// GetSetting returns the setting stored under key
func (r *Repository) GetSetting(ctx context.Context, key string) (models.Setting, error) {
	s, err := r.queries.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Setting{}, fmt.Errorf("%q: %w", key, ErrSettingNotFound)
	}
	if err != nil {
		return models.Setting{}, fmt.Errorf("failed to get setting: %w", err)
	}
	return dbSettingToModel(s), nil
}

// UpsertSetting creates or replaces the setting stored under key
func (r *Repository) UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error) {
	s, err := r.queries.UpsertSetting(ctx, db.UpsertSettingParams{
		Key:      key,
		Value:    value,
		Metadata: sqlutil.ToNullRawMessage(metadata),
	})
	if err != nil {
		return models.Setting{}, fmt.Errorf("failed to upsert setting: %w", err)
	}
	return dbSettingToModel(s), nil
}

func dbSettingToModel(s db.AppSetting) models.Setting {
	return models.Setting{
		Key:       s.Key,
		Value:     s.Value,
		Metadata:  sqlutil.FromNullRawMessage(s.Metadata),
		UpdatedAt: s.UpdatedAt,
	}
}
