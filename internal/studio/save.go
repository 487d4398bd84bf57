// SPDX-License-Identifier: MIT

package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loomverse/studio/internal/metrics"
	"github.com/loomverse/studio/internal/output"
	"github.com/loomverse/studio/internal/store"
	"github.com/loomverse/studio/internal/telemetry"
)

const untitled = "Untitled recording"

// SaveSession finalizes the completed capture, enriches it and persists
// both the artifact payload and the record. Enrichment failure does not
// lose the recording: the record is stored with bare metadata and the
// failure is logged and counted.
func (s *Studio) SaveSession(ctx context.Context, description string) (*store.Record, error) {
	ctx, span := s.tracer.Start(ctx, "studio.save_session")
	defer span.End()

	sess, err := s.Session()
	if err != nil {
		return nil, err
	}
	capture, err := sess.Result()
	if err != nil {
		return nil, err
	}

	art, err := output.Finalize(capture)
	if err != nil {
		if errors.Is(err, output.ErrEmptyCapture) {
			// nothing worth keeping; free the slot instead of parking
			// the session in its completed state
			if derr := sess.Discard(); derr == nil {
				s.clearActive(sess)
			}
			s.logger.Warn().Str("event", "studio.empty_capture").
				Str("session_id", sess.ID).Msg("empty capture discarded")
		}
		return nil, err
	}
	metrics.AddChunksCaptured(len(capture.Chunks))

	meta := s.enrich(ctx, art)

	if err := s.blobs.Put(art.SessionID, art.Data); err != nil {
		metrics.IncStoreFailure("blob")
		return nil, err
	}

	rec := &store.Record{
		ID:            art.SessionID,
		Title:         meta.Title,
		Description:   description,
		URL:           fmt.Sprintf("/api/v1/recordings/%s/media", art.SessionID),
		MimeType:      art.MimeType,
		Size:          int64(len(art.Data)),
		Duration:      art.Duration,
		CreatedAt:     art.CreatedAt,
		HasScreen:     art.HasScreen,
		Transcription: meta.Transcription,
		Summary:       meta.Summary,
		Tags:          meta.Tags,
		Topics:        meta.Topics,
	}
	if rec.Title == "" {
		rec.Title = untitled
	}

	if err := s.repo.Put(ctx, rec); err != nil {
		metrics.IncStoreFailure("put")
		// the payload is orphaned without its record
		_ = s.blobs.Delete(art.SessionID)
		return nil, err
	}

	s.cache.InvalidateRecord(rec.ID)
	metrics.IncRecordingStored()
	s.clearActive(sess)

	span.SetAttributes(telemetry.RecordingAttributes(rec.ID,
		rec.Duration.Milliseconds(), rec.Size, rec.HasScreen)...)
	s.logger.Info().Str("event", "studio.saved").Str("recording_id", rec.ID).
		Dur("duration", rec.Duration).Int64("size", rec.Size).Msg("recording saved")
	return rec, nil
}

// enrich runs the metadata pipeline and degrades to bare metadata on
// failure.
func (s *Studio) enrich(ctx context.Context, art *output.Artifact) *output.Metadata {
	started := time.Now()
	meta, err := s.enricher.Enrich(ctx, art)
	metrics.RecordEnrichment(time.Since(started), err)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", "studio.enrich_failed").
			Str("session_id", art.SessionID).Msg("metadata generation failed, saving bare record")
		return &output.Metadata{Title: art.Title}
	}
	return meta
}

// EnrichRecording re-runs metadata generation over the stored payload of a
// recording. It exists for recordings whose save degraded to a bare record:
// a later retry fills the generated fields in place without duplicating the
// recording. Unlike the save path, a failed generation here is returned to
// the caller; the stored record is left untouched.
func (s *Studio) EnrichRecording(ctx context.Context, id string) (*store.Record, error) {
	ctx, span := s.tracer.Start(ctx, "studio.enrich_recording")
	defer span.End()

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.IncStoreFailure("blob")
		}
		return nil, err
	}

	// a fallback title counts as absent so a title gets suggested
	title := rec.Title
	if title == untitled {
		title = ""
	}
	art := &output.Artifact{
		SessionID: rec.ID,
		Title:     title,
		MimeType:  rec.MimeType,
		Data:      data,
		Duration:  rec.Duration,
		CreatedAt: rec.CreatedAt,
		HasScreen: rec.HasScreen,
	}

	started := time.Now()
	meta, err := s.enricher.Enrich(ctx, art)
	metrics.RecordEnrichment(time.Since(started), err)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", "studio.enrich_retry_failed").
			Str("recording_id", id).Msg("metadata generation failed again")
		return nil, err
	}

	if meta.Title != "" {
		rec.Title = meta.Title
	}
	rec.Transcription = meta.Transcription
	rec.Summary = meta.Summary
	rec.Tags = meta.Tags
	rec.Topics = meta.Topics

	if err := s.repo.Put(ctx, rec); err != nil {
		metrics.IncStoreFailure("put")
		return nil, err
	}
	s.cache.InvalidateRecord(rec.ID)

	span.SetAttributes(telemetry.RecordingAttributes(rec.ID,
		rec.Duration.Milliseconds(), rec.Size, rec.HasScreen)...)
	s.logger.Info().Str("event", "studio.enriched").Str("recording_id", rec.ID).
		Int("tags", len(rec.Tags)).Msg("recording metadata regenerated")
	return rec, nil
}

// ShareRecording makes a stored recording publicly visible. When it belongs
// to the current session the session lifecycle follows.
func (s *Studio) ShareRecording(ctx context.Context, id string) error {
	if err := s.repo.SetPublic(ctx, id, true); err != nil {
		return err
	}
	s.cache.InvalidateRecord(id)

	s.mu.Lock()
	sess := s.active
	s.mu.Unlock()
	if sess != nil && sess.ID == id {
		_ = sess.Share()
	}

	s.logger.Info().Str("event", "studio.shared").Str("recording_id", id).Msg("recording shared")
	return nil
}
