// SPDX-License-Identifier: MIT

// Package studio orchestrates the recording studio: at most one active
// session at a time, capture through the stream composer, and the save
// pipeline from finished capture to a stored, enriched recording.
package studio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomverse/studio/internal/cache"
	"github.com/loomverse/studio/internal/log"
	"github.com/loomverse/studio/internal/media"
	"github.com/loomverse/studio/internal/metrics"
	"github.com/loomverse/studio/internal/output"
	"github.com/loomverse/studio/internal/preview"
	"github.com/loomverse/studio/internal/session"
	"github.com/loomverse/studio/internal/store"
	"github.com/loomverse/studio/internal/telemetry"
)

var (
	// ErrSessionActive is returned when a session start collides with a
	// session that still holds capture devices.
	ErrSessionActive = errors.New("studio: a session is already active")

	// ErrNoSession is returned by session commands when nothing is
	// running.
	ErrNoSession = errors.New("studio: no active session")
)

// Options configure the studio service.
type Options struct {
	CountdownTicks int
	ChunkInterval  time.Duration
	CacheTTL       time.Duration
}

// Studio is the service facade the API is built on.
type Studio struct {
	composer *media.Composer
	gateway  *media.Gateway
	repo     store.Repository
	blobs    *store.BlobStore
	enricher *output.Enricher
	cache    cache.Cache
	clock    session.Clock
	opts     Options
	logger   zerolog.Logger
	tracer   trace.Tracer

	mu     sync.Mutex
	active *session.Session
}

func New(gateway *media.Gateway, repo store.Repository, blobs *store.BlobStore,
	enricher *output.Enricher, c cache.Cache, clock session.Clock, opts Options) *Studio {
	if opts.ChunkInterval <= 0 {
		opts.ChunkInterval = time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	return &Studio{
		composer: media.NewComposer(gateway),
		gateway:  gateway,
		repo:     repo,
		blobs:    blobs,
		enricher: enricher,
		cache:    c,
		clock:    clock,
		opts:     opts,
		logger:   log.WithComponent("studio"),
		tracer:   telemetry.Tracer("studio"),
	}
}

// CheckAccess probes device permissions without claiming them.
func (s *Studio) CheckAccess(ctx context.Context) media.Access {
	return s.gateway.Check(ctx)
}

// StartOptions configure one recording session. Leaving the whole input
// selection unset falls back to camera plus microphone.
type StartOptions struct {
	Title  string
	Video  bool
	Audio  bool
	Screen bool
}

// StartSession composes a stream over the selected inputs and begins the
// countdown. Only one session may hold capture devices at a time; a second
// start fails with ErrSessionActive until the current session reaches a
// terminal state or is cancelled.
func (s *Studio) StartSession(ctx context.Context, opts StartOptions) (*session.Session, error) {
	ctx, span := s.tracer.Start(ctx, "studio.start_session")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.State().Active() {
		return nil, ErrSessionActive
	}

	sel := media.CaptureOptions{Video: opts.Video, Audio: opts.Audio, Screen: opts.Screen}
	if !sel.Video && !sel.Audio && !sel.Screen {
		sel.Video, sel.Audio = true, true
	}

	stream, err := s.composer.Open(ctx, sel)
	if err != nil {
		metrics.IncCaptureSetup(setupOutcome(err))
		span.SetAttributes(telemetry.ErrorAttributes("setup")...)
		return nil, err
	}
	metrics.IncCaptureSetup("success")

	recorder := media.NewStreamRecorder(stream, s.opts.ChunkInterval)
	sess := session.New(stream, recorder, s.clock, session.Options{
		CountdownTicks: s.opts.CountdownTicks,
		ChunkInterval:  s.opts.ChunkInterval,
		Title:          opts.Title,
	}, session.Hooks{OnState: s.observeState})

	if err := sess.Start(ctx); err != nil {
		stream.Close()
		return nil, err
	}
	s.active = sess
	s.watchPreview(ctx, sess, stream)
	metrics.IncSessionStarted()
	span.SetAttributes(telemetry.SessionAttributes(sess.ID, string(session.StateCountdown), "start")...)

	s.logger.Info().Str("event", "studio.session_started").Str("session_id", sess.ID).
		Bool("video", sel.Video).Bool("audio", sel.Audio).Bool("screen", sel.Screen).
		Msg("session started")
	return sess, nil
}

// watchPreview polls stream liveness for the life of the session so loss of
// the preview, a track ending outside the session's own control, shows up
// in the logs.
func (s *Studio) watchPreview(ctx context.Context, sess *session.Session, stream *media.Stream) {
	logger := s.logger.With().Str("session_id", sess.ID).Logger()
	poller := preview.NewPoller(s.clock, time.Second, stream.Live, func(visible bool) {
		logger.Debug().Str("event", "studio.preview_visibility").
			Bool("visible", visible).Msg("preview visibility changed")
	})
	poller.Start(context.WithoutCancel(ctx))
	go func() {
		<-sess.Done()
		poller.Stop()
	}()
}

func setupOutcome(err error) string {
	switch {
	case errors.Is(err, media.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, media.ErrDeviceUnavailable):
		return "unavailable"
	case errors.Is(err, media.ErrPickerDismissed):
		return "dismissed"
	default:
		return "error"
	}
}

func (s *Studio) observeState(st session.State) {
	switch st {
	case session.StateCompleted:
		metrics.RecordSessionFinished("completed")
	case session.StateDiscarded:
		metrics.RecordSessionFinished("discarded")
	case session.StateIdle:
		metrics.RecordSessionFinished("cancelled")
	}
}

// Session returns the current session, which may be in a terminal state
// awaiting save or discard.
func (s *Studio) Session() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, ErrNoSession
	}
	return s.active, nil
}

// CancelSession aborts the countdown.
func (s *Studio) CancelSession() error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	if err := sess.Cancel(); err != nil {
		return err
	}
	s.clearActive(sess)
	return nil
}

// PauseSession suspends capture.
func (s *Studio) PauseSession() error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	return sess.Pause()
}

// ResumeSession continues a paused capture.
func (s *Studio) ResumeSession() error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	return sess.Resume()
}

// StopSession ends the capture. The session stays current until saved or
// discarded.
func (s *Studio) StopSession() error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	if err := sess.Stop(); err != nil {
		return err
	}
	metrics.ObserveRecordingDuration(sess.Elapsed())
	return nil
}

// DiscardSession throws the capture away and frees the session slot.
func (s *Studio) DiscardSession() error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	if err := sess.Discard(); err != nil {
		return err
	}
	s.clearActive(sess)
	return nil
}

func (s *Studio) clearActive(sess *session.Session) {
	s.mu.Lock()
	if s.active == sess {
		s.active = nil
	}
	s.mu.Unlock()
}
