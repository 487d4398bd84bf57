// SPDX-License-Identifier: MIT

package studio

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/loomverse/studio/internal/ai"
	"github.com/loomverse/studio/internal/cache"
	"github.com/loomverse/studio/internal/metrics"
	"github.com/loomverse/studio/internal/store"
)

// ListRecordings returns all recordings, newest first, through the read
// cache.
func (s *Studio) ListRecordings(ctx context.Context) ([]*store.Record, error) {
	if data, ok := s.cache.Get(cache.ListKey()); ok {
		metrics.IncCacheRequest(true)
		var out []*store.Record
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	}
	metrics.IncCacheRequest(false)

	list, err := s.repo.List(ctx)
	if err != nil {
		metrics.IncStoreFailure("get")
		return nil, err
	}
	s.cacheSet(cache.ListKey(), list)
	return list, nil
}

// GetRecording returns one recording by id.
func (s *Studio) GetRecording(ctx context.Context, id string) (*store.Record, error) {
	if data, ok := s.cache.Get(cache.RecordKey(id)); ok {
		metrics.IncCacheRequest(true)
		var rec store.Record
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
	}
	metrics.IncCacheRequest(false)

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.IncStoreFailure("get")
		}
		return nil, err
	}
	s.cacheSet(cache.RecordKey(id), rec)
	return rec, nil
}

// SearchRecordings matches the query against title, description,
// transcription, tags and topics.
func (s *Studio) SearchRecordings(ctx context.Context, query string) ([]*store.Record, error) {
	if data, ok := s.cache.Get(cache.SearchKey(query)); ok {
		metrics.IncCacheRequest(true)
		var out []*store.Record
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	}
	metrics.IncCacheRequest(false)

	list, err := s.repo.Search(ctx, query)
	if err != nil {
		metrics.IncStoreFailure("get")
		return nil, err
	}
	s.cacheSet(cache.SearchKey(query), list)
	return list, nil
}

// ViewRecording registers one view and returns the updated count.
func (s *Studio) ViewRecording(ctx context.Context, id string) (int64, error) {
	views, err := s.repo.AddView(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.IncStoreFailure("view")
		}
		return 0, err
	}
	metrics.IncView()
	s.cache.InvalidateRecord(id)
	return views, nil
}

// RecordUpdate carries the user-editable fields of a recording. Empty
// fields are left unchanged.
type RecordUpdate struct {
	Title               string
	Description         string
	EditedTranscription string
}

// UpdateRecording changes the user-editable fields of a recording.
func (s *Studio) UpdateRecording(ctx context.Context, id string, upd RecordUpdate) (*store.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Title != "" {
		rec.Title = upd.Title
	}
	if upd.Description != "" {
		rec.Description = upd.Description
	}
	if upd.EditedTranscription != "" {
		rec.EditedTranscription = upd.EditedTranscription
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		metrics.IncStoreFailure("put")
		return nil, err
	}
	s.cache.InvalidateRecord(id)
	return rec, nil
}

// RemoveFillerWords strips disfluencies from the transcript of a recording
// and stores the cleaned text alongside the generated original. Repeated
// calls re-clean the latest edited text and are harmless.
func (s *Studio) RemoveFillerWords(ctx context.Context, id string) (*store.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	source := rec.Transcription
	if rec.EditedTranscription != "" {
		source = rec.EditedTranscription
	}
	rec.EditedTranscription = ai.RemoveFillers(source)
	rec.FillerWordsRemoved = true

	if err := s.repo.Put(ctx, rec); err != nil {
		metrics.IncStoreFailure("put")
		return nil, err
	}
	s.cache.InvalidateRecord(id)

	s.logger.Info().Str("event", "studio.fillers_removed").Str("recording_id", id).
		Msg("transcript cleaned")
	return rec, nil
}

// DeleteRecording removes the record and its payload.
func (s *Studio) DeleteRecording(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.IncStoreFailure("delete")
		}
		return err
	}
	if err := s.blobs.Delete(id); err != nil {
		metrics.IncStoreFailure("blob")
		s.logger.Warn().Err(err).Str("recording_id", id).Msg("payload delete failed")
	}
	s.cache.InvalidateRecord(id)
	return nil
}

// Media returns the artifact payload and mime type for a recording.
func (s *Studio) Media(ctx context.Context, id string) ([]byte, string, error) {
	rec, err := s.GetRecording(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.blobs.Get(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.IncStoreFailure("blob")
		}
		return nil, "", err
	}
	return data, rec.MimeType, nil
}

func (s *Studio) cacheSet(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(key, data, s.opts.CacheTTL)
}
