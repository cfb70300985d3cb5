// Package audit keeps an optional SQLite record of completion request
// outcomes. Rows carry sizes, statuses and timings only: message text and
// credentials are never written.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	model TEXT NOT NULL,
	provider TEXT,
	outcome TEXT NOT NULL,
	status_code INTEGER,
	input_tokens INTEGER,
	output_tokens INTEGER,
	duration_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_chat_audit_session ON chat_audit(session_id);
CREATE INDEX IF NOT EXISTS idx_chat_audit_timestamp ON chat_audit(timestamp);
`

// Entry is one completion request outcome
type Entry struct {
	ID           int64
	SessionID    string
	Timestamp    time.Time
	Model        string
	Provider     string
	Outcome      string
	StatusCode   int
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Store writes audit entries to SQLite
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the audit database at path
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}
	logger.Info("audit database initialized", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Record inserts an entry. Failures are logged and returned; callers on the
// request path ignore them.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	const query = `
		INSERT INTO chat_audit (
			session_id, timestamp, model, provider, outcome,
			status_code, input_tokens, output_tokens, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		e.SessionID, e.Timestamp.UTC(), e.Model, e.Provider, e.Outcome,
		e.StatusCode, e.InputTokens, e.OutputTokens, e.Duration.Milliseconds())
	if err != nil {
		s.logger.Warn("failed to record audit entry", zap.Error(err))
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	id, _ := result.LastInsertId()
	s.logger.Debug("recorded audit entry",
		zap.Int64("id", id),
		zap.String("session", e.SessionID),
		zap.String("outcome", e.Outcome))
	return nil
}

// List returns the entries for a session, oldest first
func (s *Store) List(ctx context.Context, sessionID string) ([]Entry, error) {
	const query = `
		SELECT id, session_id, timestamp, model, provider, outcome,
		       status_code, input_tokens, output_tokens, duration_ms
		FROM chat_audit
		WHERE session_id = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMS int64
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.Timestamp, &e.Model, &e.Provider, &e.Outcome,
			&e.StatusCode, &e.InputTokens, &e.OutputTokens, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
