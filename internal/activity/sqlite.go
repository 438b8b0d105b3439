package activity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clawsync/clawsync/pkg/models"
)

// SQLiteSink persists activity records in SQLite.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink creates the activity table if needed and returns a sink
// backed by db.
func NewSQLiteSink(db *sql.DB) (*SQLiteSink, error) {
	schema := `
CREATE TABLE IF NOT EXISTS activity (
	id TEXT PRIMARY KEY,
	action_type TEXT NOT NULL,
	summary TEXT NOT NULL,
	visibility TEXT NOT NULL,
	channel TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create activity table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) WriteActivity(ctx context.Context, rec *models.ActivityRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity (id, action_type, summary, visibility, channel, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ActionType, rec.Summary, string(rec.Visibility),
		string(rec.Channel), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("write activity: %w", err)
	}
	return nil
}

// Recent returns the newest records up to limit, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]*models.ActivityRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, summary, visibility, channel, created_at
		FROM activity ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var result []*models.ActivityRecord
	for rows.Next() {
		var rec models.ActivityRecord
		var visibility, channel string
		if err := rows.Scan(&rec.ID, &rec.ActionType, &rec.Summary,
			&visibility, &channel, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		rec.Visibility = models.ActivityVisibility(visibility)
		rec.Channel = models.ChannelType(channel)
		result = append(result, &rec)
	}
	return result, rows.Err()
}
