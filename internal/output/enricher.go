// SPDX-License-Identifier: MIT

package output

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/loomverse/studio/internal/ai"
	"github.com/loomverse/studio/internal/log"
)

// Enricher generates the metadata set for an artifact. Concurrent requests
// for the same session coalesce into a single generation.
type Enricher struct {
	svc    ai.Service
	group  singleflight.Group
	logger zerolog.Logger
}

func NewEnricher(svc ai.Service) *Enricher {
	return &Enricher{
		svc:    svc,
		logger: log.WithComponent("enricher"),
	}
}

// Enrich transcribes the artifact, then derives summary, tags, topics and,
// when the artifact has no title yet, a suggested one. Derivations run
// concurrently; the first failure aborts the rest and is returned wrapped
// around ai.ErrGeneration when it came from the model.
func (e *Enricher) Enrich(ctx context.Context, art *Artifact) (*Metadata, error) {
	v, err, shared := e.group.Do(art.SessionID, func() (any, error) {
		return e.enrich(ctx, art)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug().Str("event", "enrich.coalesced").
			Str("session_id", art.SessionID).Msg("reused in-flight enrichment")
	}
	return v.(*Metadata), nil
}

func (e *Enricher) enrich(ctx context.Context, art *Artifact) (*Metadata, error) {
	transcript, err := e.svc.Transcribe(ctx, art.Data, art.Duration)
	if err != nil {
		e.logger.Error().Err(err).Str("event", "enrich.transcribe_failed").
			Str("session_id", art.SessionID).Msg("transcription failed")
		return nil, err
	}
	text := transcript.Text()

	meta := &Metadata{Title: art.Title, Transcription: text}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := e.svc.Summarize(gctx, text)
		if err != nil {
			return err
		}
		meta.Summary = summary
		return nil
	})
	g.Go(func() error {
		tags, err := e.svc.Tags(gctx, text)
		if err != nil {
			return err
		}
		meta.Tags = NormalizeTags(tags)
		return nil
	})
	g.Go(func() error {
		topics, err := e.svc.Topics(gctx, text)
		if err != nil {
			return err
		}
		meta.Topics = topics
		return nil
	})
	if art.Title == "" {
		g.Go(func() error {
			title, err := e.svc.SuggestTitle(gctx, text)
			if err != nil {
				return err
			}
			meta.Title = title
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Error().Err(err).Str("event", "enrich.failed").
			Str("session_id", art.SessionID).Msg("metadata generation failed")
		return nil, err
	}

	e.logger.Info().Str("event", "enrich.done").Str("session_id", art.SessionID).
		Int("tags", len(meta.Tags)).Int("topics", len(meta.Topics)).Msg("metadata generated")
	return meta, nil
}
