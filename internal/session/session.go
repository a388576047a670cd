// Package session persists batch state to sqlite so an interrupted sweep can
// be resumed in a later run.
package session

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/pkg/detect"
)

//go:embed schema.sql
var schemaSQL string

// Session is a named batch snapshot: its items, the sweep cursor, and the
// import mode it was started with.
type Session struct {
	ID         string
	Name       string
	Cursor     int
	AutoImport bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []batch.Item
}

// New creates a session around the given items with a fresh id.
func New(name string, items []batch.Item) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		Name:       name,
		AutoImport: true,
		CreatedAt:  now,
		UpdatedAt:  now,
		Items:      items,
	}
}

// Summary is the listing view of a stored session.
type Summary struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Total     int
	Completed int
}

// Store persists sessions in a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open database. The caller owns migration.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the full session snapshot in one transaction, replacing any
// previous snapshot with the same id. Items caught mid-flight are stored as
// pending so they re-run on resume.
func (s *Store) Save(sess *Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO sessions (id, name, cursor, auto_import, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cursor = excluded.cursor,
			auto_import = excluded.auto_import,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Name, sess.Cursor, sess.AutoImport, sess.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM session_items WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear session items: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO session_items (
			session_id, item_id, source_ref, source_type, info_hash, title,
			content_type, detected_content_type, sports_category,
			status, error_message, match_title, match_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, it := range sess.Items {
		status := it.Status
		if status.InFlight() {
			status = batch.StatusPending
		}
		_, err := stmt.Exec(
			sess.ID, it.ID, it.SourceRef, string(it.SourceType), it.InfoHash, it.Title,
			string(it.ContentType), string(it.DetectedContentType), string(it.SportsCategory),
			string(status), it.ErrorMessage, it.MatchTitle, it.MatchID,
		)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session %s: %w", sess.ID, err)
	}
	sess.UpdatedAt = now
	return nil
}

// Load reads a session and its items back in stored item order.
func (s *Store) Load(id string) (*Session, error) {
	sess := &Session{ID: id}
	err := s.db.QueryRow(`
		SELECT name, cursor, auto_import, created_at, updated_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&sess.Name, &sess.Cursor, &sess.AutoImport, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("load session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	rows, err := s.db.Query(`
		SELECT item_id, source_ref, source_type, info_hash, title,
			content_type, detected_content_type, sports_category,
			status, error_message, match_title, match_id
		FROM session_items WHERE session_id = ? ORDER BY item_id`, id)
	if err != nil {
		return nil, fmt.Errorf("load session items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var it batch.Item
		var sourceType, contentType, detectedType, sportsCategory, status string
		err := rows.Scan(
			&it.ID, &it.SourceRef, &sourceType, &it.InfoHash, &it.Title,
			&contentType, &detectedType, &sportsCategory,
			&status, &it.ErrorMessage, &it.MatchTitle, &it.MatchID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session item: %w", err)
		}
		it.SourceType = batch.SourceType(sourceType)
		it.ContentType = detect.ContentType(contentType)
		it.DetectedContentType = detect.ContentType(detectedType)
		it.SportsCategory = detect.SportsCategory(sportsCategory)
		it.Status = batch.Status(status)
		sess.Items = append(sess.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session items: %w", err)
	}
	return sess, nil
}

// List returns summaries of all stored sessions, newest first.
func (s *Store) List() ([]Summary, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.name, s.created_at, s.updated_at,
			COUNT(i.item_id),
			COALESCE(SUM(CASE WHEN i.status IN ('success', 'warning', 'error') THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN session_items i ON i.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.CreatedAt, &sm.UpdatedAt, &sm.Total, &sm.Completed); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Delete removes a session and its items.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrNotFound)
	}
	// Cascade needs foreign keys on; clear explicitly in case they are not.
	if _, err := s.db.Exec(`DELETE FROM session_items WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session items: %w", err)
	}
	return nil
}
