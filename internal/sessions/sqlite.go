package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/herkey/asha/internal/models"
)

// ErrNotFound is returned when a session id has no row.
var ErrNotFound = fmt.Errorf("session not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		host TEXT,
		tags TEXT,
		start_time TIMESTAMP,
		duration TEXT,
		url TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);

	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		score REAL NOT NULL,
		recommended_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		viewed INTEGER DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations(user_id, recommended_at);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertSession inserts a session or replaces it when the id already exists.
// CreatedAt survives an update.
func (s *SQLiteStore) UpsertSession(ctx context.Context, sess *models.Session) error {
	tagsJSON, err := json.Marshal(sess.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, description, host, tags, start_time, duration, url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			host = excluded.host,
			tags = excluded.tags,
			start_time = excluded.start_time,
			duration = excluded.duration,
			url = excluded.url,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Title, sess.Description, sess.Host, string(tagsJSON),
		sess.StartTime, sess.Duration, sess.URL, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

// GetSession returns a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, host, tags, start_time, duration, url, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, err
}

// ListSessions returns all sessions ordered by start time, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return s.querySessions(ctx,
		`SELECT id, title, description, host, tags, start_time, duration, url, created_at, updated_at
		 FROM sessions ORDER BY start_time DESC`)
}

// RecentSessions returns the most recently added sessions.
func (s *SQLiteStore) RecentSessions(ctx context.Context, limit int) ([]*models.Session, error) {
	return s.querySessions(ctx,
		`SELECT id, title, description, host, tags, start_time, duration, url, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
}

// CountSessions returns the total number of stored sessions.
func (s *SQLiteStore) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

// DeleteSession removes a session by id.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// RecordRecommendation stores one recommendation audit row.
func (s *SQLiteStore) RecordRecommendation(ctx context.Context, rec *models.RecommendationRecord) error {
	if rec.RecommendedAt.IsZero() {
		rec.RecommendedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recommendations (id, user_id, session_id, score, recommended_at, viewed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.SessionID, rec.Score, rec.RecommendedAt, rec.Viewed,
	)
	return err
}

// RecommendationsForUser returns a user's recommendation history, newest first.
func (s *SQLiteStore) RecommendationsForUser(ctx context.Context, userID string, limit int) ([]*models.RecommendationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, score, recommended_at, viewed
		 FROM recommendations WHERE user_id = ? ORDER BY recommended_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.RecommendationRecord
	for rows.Next() {
		var rec models.RecommendationRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.Score, &rec.RecommendedAt, &rec.Viewed); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) querySessions(ctx context.Context, query string, args ...any) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var sess models.Session
	var tagsJSON string
	err := row.Scan(&sess.ID, &sess.Title, &sess.Description, &sess.Host, &tagsJSON,
		&sess.StartTime, &sess.Duration, &sess.URL, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &sess.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &sess, nil
}
