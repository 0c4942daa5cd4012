// Package schema creates the tables, procedures and change notification triggers the
// voting backend relies on.
package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Notification channels, one per table
const (
	VotesChannel    = "votes_changes"
	SettingsChannel = "app_settings_changes"
)

const ddl = `
CREATE TABLE IF NOT EXISTS votes (
	candidate_id INTEGER PRIMARY KEY,
	votes        INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS app_settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	metadata   JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE OR REPLACE FUNCTION increment_vote(candidate_id INTEGER) RETURNS INTEGER AS $$
	UPDATE votes
	SET votes = votes + 1, updated_at = NOW()
	WHERE votes.candidate_id = $1
	RETURNING votes.votes;
$$ LANGUAGE sql;

CREATE OR REPLACE FUNCTION notify_row_change() RETURNS TRIGGER AS $$
DECLARE
	rec RECORD;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify(
		TG_TABLE_NAME || '_changes',
		json_build_object(
			'table', TG_TABLE_NAME,
			'operation', TG_OP,
			'record', row_to_json(rec),
			'occurred_at', NOW()
		)::text
	);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS votes_notify ON votes;
CREATE TRIGGER votes_notify
	AFTER INSERT OR UPDATE OR DELETE ON votes
	FOR EACH ROW EXECUTE FUNCTION notify_row_change();

DROP TRIGGER IF EXISTS app_settings_notify ON app_settings;
CREATE TRIGGER app_settings_notify
	AFTER INSERT OR UPDATE OR DELETE ON app_settings
	FOR EACH ROW EXECUTE FUNCTION notify_row_change();
`

// Create applies the schema. It is idempotent.
func Create(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
