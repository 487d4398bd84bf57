// SPDX-License-Identifier: MIT

// Package store persists finished recordings: metadata in SQLite, artifact
// payloads in a badger blob store, with a JSON file fallback for
// environments without a database.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("store: record not found")

	// ErrPersistence wraps storage failures that are not a missing record.
	ErrPersistence = errors.New("store: persistence failure")
)

// Record is the stored description of one finished recording.
type Record struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	URL           string        `json:"url"`
	MimeType      string        `json:"mimeType"`
	Size          int64         `json:"size"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"createdAt"`
	Views         int64         `json:"views"`
	IsPublic      bool          `json:"isPublic"`
	HasScreen     bool          `json:"hasScreen"`
	Transcription string        `json:"transcription"`
	Summary       string        `json:"summary"`
	Tags          []string      `json:"tags"`
	Topics        []string      `json:"topics"`

	// EditedTranscription is the user-curated transcript text, kept next
	// to the generated original. FillerWordsRemoved records whether the
	// disfluency cleanup produced it.
	EditedTranscription string `json:"editedTranscription"`
	FillerWordsRemoved  bool   `json:"fillerWordsRemoved"`
}

// Repository stores and queries records. Implementations are safe for
// concurrent use.
type Repository interface {
	Put(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id string) error

	// AddView increments the view counter and returns the new count.
	AddView(ctx context.Context, id string) (int64, error)

	// SetPublic flips the sharing visibility of a record.
	SetPublic(ctx context.Context, id string, public bool) error

	// Search matches the query case-insensitively against title,
	// description, transcription, tags and topics.
	Search(ctx context.Context, query string) ([]*Record, error)

	Close() error
}

// Matches reports whether the record matches a search query. It is the
// shared definition used by the fallback store and tests; the SQLite
// implementation expresses the same predicate in SQL.
func (r *Record) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Description), q) ||
		strings.Contains(strings.ToLower(r.Transcription), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	for _, t := range r.Topics {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
