// Package state provides the ProjectStateStore backends: a durable
// SQLite store (also the persistence sink), an atomic JSON file store,
// and an in-memory store for tests and ephemeral runs.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.ProjectStateStore and core.PersistenceSink
// on one SQLite database. Appends are idempotent by item ID and
// commutative across concurrent turns.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB // write connection, single conn
	readDB *sql.DB // read-only pool
	mu     sync.RWMutex

	maxRetries    int
	baseRetryWait time.Duration
}

// SQLiteOption configures the store.
type SQLiteOption func(*SQLiteStore)

// WithRetry overrides the busy-retry policy.
func WithRetry(maxRetries int, baseWait time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		s.maxRetries = maxRetries
		s.baseRetryWait = baseWait
	}
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		dbPath:        dbPath,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	readDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	migrations := []string{migrationV1}
	for i, migration := range migrations {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration transaction: %w", err)
		}
		for _, stmt := range splitStatements(migration) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("executing migration v%d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", version, err)
		}
	}
	return nil
}

// splitStatements splits a SQL script into individual statements,
// dropping comment-only lines.
func splitStatements(script string) []string {
	var statements []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		var sqlLines []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				sqlLines = append(sqlLines, line)
			}
		}
		if len(sqlLines) > 0 {
			statements = append(statements, strings.Join(sqlLines, "\n"))
		}
	}
	return statements
}

func (s *SQLiteStore) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := fn(); err != nil {
			if isBusy(err) {
				lastErr = err
				wait := s.baseRetryWait * time.Duration(1<<attempt)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
					continue
				}
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, s.maxRetries, lastErr)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// Fetch implements core.ProjectStateStore. Unknown projects yield an
// empty state, not an error.
func (s *SQLiteStore) Fetch(ctx context.Context, projectID string) (*core.ProjectState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &core.ProjectState{ID: projectID}

	row := s.readDB.QueryRowContext(ctx,
		"SELECT revision FROM projects WHERE id = ?", projectID)
	if err := row.Scan(&state.Revision); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("scanning project revision: %w", err)
	}

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, text, state, archived, quote, quote_confidence, cited_at, created_at
		FROM items WHERE project_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it core.Item
		var archived int
		var quote sql.NullString
		var confidence sql.NullFloat64
		var citedAt sql.NullString
		var createdAt string

		if err := rows.Scan(&it.ID, &it.Text, &it.State, &archived, &quote, &confidence, &citedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.IsArchived = archived != 0
		it.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if quote.Valid {
			it.Citation = &core.Citation{
				UserQuote:  quote.String,
				Confidence: confidence.Float64,
			}
			it.Citation.Timestamp, _ = time.Parse(time.RFC3339Nano, citedAt.String)
		}
		state.Items = append(state.Items, it)
	}
	return state, rows.Err()
}

// Append implements core.ProjectStateStore. Existing item IDs are
// ignored; the revision bumps only when something new landed.
func (s *SQLiteStore) Append(ctx context.Context, projectID string, items []core.Item) error {
	if len(items) == 0 {
		return nil
	}

	return s.retryWrite(ctx, "Append", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		added := int64(0)
		for _, it := range items {
			var quote, citedAt any
			var confidence any
			if it.Citation != nil {
				quote = it.Citation.UserQuote
				confidence = it.Citation.Confidence
				citedAt = it.Citation.Timestamp.UTC().Format(time.RFC3339Nano)
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO items (id, project_id, text, state, archived, quote, quote_confidence, cited_at, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING
			`,
				it.ID, projectID, it.Text, string(it.State), boolToInt(it.IsArchived),
				quote, confidence, citedAt,
				it.CreatedAt.UTC().Format(time.RFC3339Nano),
			)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			n, _ := res.RowsAffected()
			added += n
		}

		if added > 0 {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO projects (id, revision) VALUES (?, 1)
				ON CONFLICT(id) DO UPDATE SET revision = revision + 1
			`, projectID); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// WriteMessages implements core.PersistenceSink.
func (s *SQLiteStore) WriteMessages(ctx context.Context, msgs []core.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.retryWrite(ctx, "WriteMessages", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chat_messages (id, project_id, user_id, role, content, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING
			`, msg.ID, msg.ProjectID, msg.UserID, msg.Role, msg.Content,
				msg.CreatedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// WriteActivity implements core.PersistenceSink.
func (s *SQLiteStore) WriteActivity(ctx context.Context, events []core.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.retryWrite(ctx, "WriteActivity", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, ev := range events {
			details, err := json.Marshal(ev.Details)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("encoding activity details: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO activity_events (id, project_id, agent, action, details, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING
			`, ev.ID, ev.ProjectID, ev.Agent, ev.Action, string(details),
				ev.CreatedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// ListActivity returns a project's most recent activity, newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, projectID string, limit int) ([]core.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, project_id, agent, action, details, created_at
		FROM activity_events WHERE project_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var out []core.ActivityEvent
	for rows.Next() {
		var ev core.ActivityEvent
		var details sql.NullString
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.ProjectID, &ev.Agent, &ev.Action, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		if details.Valid && details.String != "" && details.String != "null" {
			if err := json.Unmarshal([]byte(details.String), &ev.Details); err != nil {
				return nil, fmt.Errorf("decoding activity details: %w", err)
			}
		}
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListMessages returns a project's chat history, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, projectID string, limit int) ([]core.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 200
	}
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, project_id, user_id, role, content, created_at
		FROM chat_messages WHERE project_id = ?
		ORDER BY created_at ASC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []core.ChatMessage
	for rows.Next() {
		var msg core.ChatMessage
		var userID sql.NullString
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.ProjectID, &userID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.UserID = userID.String
		msg.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Close closes both database connections.
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing read connection: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing write connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
