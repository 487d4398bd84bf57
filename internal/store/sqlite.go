// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/loomverse/studio/internal/log"
)

const schemaVersion = 2

// SQLiteRepository implements Repository on a single SQLite file opened in
// WAL mode.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath and brings
// the schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	// Pragmas ride in the DSN so they apply to every pooled connection.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrPersistence, dbPath, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrPersistence, err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger := log.WithComponent("store")
	logger.Info().Str("event", "store.open").Str("path", dbPath).Msg("sqlite repository ready")
	return r, nil
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) migrate() error {
	var current int
	if err := r.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("%w: read schema version: %v", ErrPersistence, err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin migration: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if current < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL,
			created_at_ms INTEGER NOT NULL,
			views INTEGER NOT NULL DEFAULT 0,
			is_public INTEGER NOT NULL DEFAULT 0,
			has_screen INTEGER NOT NULL DEFAULT 0,
			transcription TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			tags_json TEXT NOT NULL DEFAULT '[]',
			topics_json TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_recordings_created ON recordings(created_at_ms DESC);
		`
		if _, err := tx.Exec(schema); err != nil {
			return fmt.Errorf("%w: apply schema: %v", ErrPersistence, err)
		}
	}
	if current < 2 {
		alter := `
		ALTER TABLE recordings ADD COLUMN edited_transcription TEXT NOT NULL DEFAULT '';
		ALTER TABLE recordings ADD COLUMN filler_words_removed INTEGER NOT NULL DEFAULT 0;
		`
		if _, err := tx.Exec(alter); err != nil {
			return fmt.Errorf("%w: apply schema v2: %v", ErrPersistence, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("%w: set schema version: %v", ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit migration: %v", ErrPersistence, err)
	}
	return nil
}

const recordColumns = `id, title, description, url, mime_type, size, duration_ms,
	created_at_ms, views, is_public, has_screen, transcription, summary, tags_json, topics_json,
	edited_transcription, filler_words_removed`

// Put inserts or replaces a record.
func (r *SQLiteRepository) Put(ctx context.Context, rec *Record) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("%w: encode tags: %v", ErrPersistence, err)
	}
	topics, err := json.Marshal(rec.Topics)
	if err != nil {
		return fmt.Errorf("%w: encode topics: %v", ErrPersistence, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO recordings (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Description, rec.URL, rec.MimeType, rec.Size,
		rec.Duration.Milliseconds(), rec.CreatedAt.UnixMilli(), rec.Views,
		boolToInt(rec.IsPublic), boolToInt(rec.HasScreen),
		rec.Transcription, rec.Summary, string(tags), string(topics),
		rec.EditedTranscription, boolToInt(rec.FillerWordsRemoved))
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrPersistence, rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM recordings WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrPersistence, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	return r.query(ctx,
		"SELECT "+recordColumns+" FROM recordings ORDER BY created_at_ms DESC")
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recordings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrPersistence, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddView increments the view counter and returns the new count.
func (r *SQLiteRepository) AddView(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE recordings SET views = views + 1 WHERE id = ? RETURNING views", id).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: add view %s: %v", ErrPersistence, id, err)
	}
	return views, nil
}

func (r *SQLiteRepository) SetPublic(ctx context.Context, id string, public bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE recordings SET is_public = ? WHERE id = ?", boolToInt(public), id)
	if err != nil {
		return fmt.Errorf("%w: set public %s: %v", ErrPersistence, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Search matches the query case-insensitively against title, description,
// transcription and the tag and topic lists.
func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]*Record, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.query(ctx, `
		SELECT `+recordColumns+` FROM recordings
		WHERE title LIKE ? ESCAPE '\' COLLATE NOCASE
		   OR description LIKE ? ESCAPE '\' COLLATE NOCASE
		   OR transcription LIKE ? ESCAPE '\' COLLATE NOCASE
		   OR tags_json LIKE ? ESCAPE '\' COLLATE NOCASE
		   OR topics_json LIKE ? ESCAPE '\' COLLATE NOCASE
		ORDER BY created_at_ms DESC`,
		pattern, pattern, pattern, pattern, pattern)
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrPersistence, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrPersistence, err)
	}
	return out, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanRecord(s scanner) (*Record, error) {
	var (
		rec                   Record
		durationMS, createdMS int64
		isPublic, hasScreen   int
		fillersRemoved        int
		tagsJSON, topicsJSON  string
	)
	err := s.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.URL, &rec.MimeType,
		&rec.Size, &durationMS, &createdMS, &rec.Views, &isPublic, &hasScreen,
		&rec.Transcription, &rec.Summary, &tagsJSON, &topicsJSON,
		&rec.EditedTranscription, &fillersRemoved)
	if err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = time.UnixMilli(createdMS).UTC()
	rec.IsPublic = isPublic != 0
	rec.HasScreen = hasScreen != 0
	rec.FillerWordsRemoved = fillersRemoved != 0
	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topicsJSON), &rec.Topics); err != nil {
		return nil, err
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
