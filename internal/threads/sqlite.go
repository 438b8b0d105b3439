package threads

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clawsync/clawsync/pkg/models"
)

// SQLiteStore persists threads and messages in SQLite. Appends to the
// same thread are serialized by the single-connection database handle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the thread tables if needed and returns a
// store backed by db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	schema := `
CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	session_key TEXT NOT NULL,
	channel TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_session ON threads(session_key);
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL REFERENCES threads(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create thread tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sessionKey string, channel models.ChannelType) (*models.Thread, error) {
	t := &models.Thread{
		ID:         uuid.NewString(),
		SessionKey: sessionKey,
		Channel:    channel,
		CreatedAt:  time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, session_key, channel, created_at)
		VALUES (?, ?, ?, ?)`,
		t.ID, sessionKey, string(channel), t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Get(ctx context.Context, threadID string) (*models.Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_key, channel, created_at
		FROM threads WHERE id = ?`, threadID)
	t, err := scanThread(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, threadID string, msg *models.Message) error {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, role, content, created_at)
		SELECT ?, id, ?, ?, ? FROM threads WHERE id = ?`,
		id, msg.Role, msg.Content, createdAt, threadID)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, threadID string) ([]*models.Message, error) {
	if _, err := s.Get(ctx, threadID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, role, content, created_at
		FROM messages WHERE thread_id = ?
		ORDER BY created_at, id`, threadID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, &msg)
	}
	return result, rows.Err()
}

func scanThread(row *sql.Row) (*models.Thread, error) {
	var t models.Thread
	var channel string
	if err := row.Scan(&t.ID, &t.SessionKey, &channel, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Channel = models.ChannelType(channel)
	return &t, nil
}
