package db

import (
	"context"

	"github.com/sqlc-dev/pqtype"
)

const getSetting = `-- name: GetSetting :one
SELECT key, value, metadata, updated_at FROM app_settings
WHERE key = $1
`

func (q *Queries) GetSetting(ctx context.Context, key string) (AppSetting, error) {
	row := q.db.QueryRowContext(ctx, getSetting, key)
	var i AppSetting
	err := row.Scan(&i.Key, &i.Value, &i.Metadata, &i.UpdatedAt)
	return i, err
}

const upsertSetting = `-- name: UpsertSetting :one
INSERT INTO app_settings (key, value, metadata, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at
RETURNING key, value, metadata, updated_at
`

type UpsertSettingParams struct {
	Key      string                `json:"key"`
	Value    string                `json:"value"`
	Metadata pqtype.NullRawMessage `json:"metadata"`
}

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) (AppSetting, error) {
	row := q.db.QueryRowContext(ctx, upsertSetting, arg.Key, arg.Value, arg.Metadata)
	var i AppSetting
	err := row.Scan(&i.Key, &i.Value, &i.Metadata, &i.UpdatedAt)
	return i, err
}
