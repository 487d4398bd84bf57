// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loomverse/studio/internal/log"
	"github.com/loomverse/studio/internal/media"
)

// ErrNotCompleted is returned when a capture result is requested before the
// session has reached a completed state.
var ErrNotCompleted = errors.New("session: capture not completed")

// Options configure a single recording session.
type Options struct {
	// CountdownTicks is the number of 1 Hz countdown ticks before capture
	// begins. Zero skips the countdown entirely.
	CountdownTicks int

	// ChunkInterval is the cadence at which the recorder cuts chunks.
	ChunkInterval time.Duration

	Title string
}

// Hooks receive lifecycle notifications. Callbacks run on session
// goroutines and must not block.
type Hooks struct {
	OnState         func(State)
	OnCountdownTick func(remaining int)
}

// Session is one recording from countdown to completion. All methods are
// safe for concurrent use.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time

	clock    Clock
	stream   *media.Stream
	recorder media.Recorder
	hooks    Hooks
	opts     Options
	logger   zerolog.Logger

	mu      sync.Mutex
	state   State
	chunks  []media.Chunk
	elapsed time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a session over an already-composed stream. The session owns
// the stream from here on and releases it on every terminal path. If the
// stream carries a screen surface, the user ending the share stops the
// recording as if Stop had been called.
func New(stream *media.Stream, recorder media.Recorder, clock Clock, opts Options, hooks Hooks) *Session {
	if opts.ChunkInterval <= 0 {
		opts.ChunkInterval = time.Second
	}
	s := &Session{
		ID:        uuid.NewString(),
		Title:     opts.Title,
		CreatedAt: clock.Now(),
		clock:     clock,
		stream:    stream,
		recorder:  recorder,
		hooks:     hooks,
		opts:      opts,
		state:     StateIdle,
	}
	s.logger = log.WithComponent("session").With().Str("session_id", s.ID).Logger()
	stream.OnScreenEnded(s.screenEnded)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the recorded time so far. Paused time does not accrue.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// HasScreen reports whether the underlying stream captures a screen surface.
func (s *Session) HasScreen() bool { return s.stream.HasScreen() }

// Done is closed when the session's internal goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Start begins the countdown. Capture starts automatically once the
// countdown elapses.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return &TransitionError{From: s.state, Event: EventStart}
	}
	next, err := Next(s.state, EventStart)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.notifyState(next)
	s.logger.Info().Str("event", "session.start").
		Int("countdown_ticks", s.opts.CountdownTicks).Msg("countdown started")

	go s.run()
	return nil
}

// Cancel aborts the countdown and returns the session to idle, releasing
// the stream. It is not valid once capture has begun.
func (s *Session) Cancel() error {
	if err := s.apply(EventCancel); err != nil {
		return err
	}
	s.logger.Info().Str("event", "session.cancel").Msg("countdown cancelled")
	s.teardown()
	return nil
}

// Pause suspends capture. No chunks are cut and no time accrues until
// Resume.
func (s *Session) Pause() error {
	if err := s.apply(EventPause); err != nil {
		return err
	}
	s.logger.Info().Str("event", "session.pause").Dur("elapsed", s.Elapsed()).Msg("capture paused")
	return nil
}

// Resume continues a paused capture.
func (s *Session) Resume() error {
	if err := s.apply(EventResume); err != nil {
		return err
	}
	s.logger.Info().Str("event", "session.resume").Msg("capture resumed")
	return nil
}

// Stop ends the capture, flushes the final chunk and releases the stream.
func (s *Session) Stop() error {
	if err := s.apply(EventStop); err != nil {
		return err
	}

	if final, err := s.recorder.Stop(); err == nil {
		s.mu.Lock()
		s.chunks = append(s.chunks, final)
		s.elapsed += final.Duration
		s.mu.Unlock()
	}

	s.logger.Info().Str("event", "session.stop").
		Dur("duration", s.Elapsed()).Int("chunks", len(s.chunkSnapshot())).Msg("capture stopped")
	s.teardown()
	return nil
}

// Discard throws the capture away. Valid while recording, paused, or after
// completion; the chunks are dropped and the stream released.
func (s *Session) Discard() error {
	if err := s.apply(EventDiscard); err != nil {
		return err
	}
	s.mu.Lock()
	s.chunks = nil
	s.elapsed = 0
	s.mu.Unlock()

	s.logger.Info().Str("event", "session.discard").Msg("capture discarded")
	s.teardown()
	return nil
}

// Share marks a completed capture as shared.
func (s *Session) Share() error {
	if err := s.apply(EventShare); err != nil {
		return err
	}
	s.logger.Info().Str("event", "session.share").Msg("capture shared")
	return nil
}

// Capture is the finished product of a session, handed to the output
// pipeline.
type Capture struct {
	SessionID string
	Title     string
	CreatedAt time.Time
	Duration  time.Duration
	Chunks    []media.Chunk
	HasScreen bool
}

// Result returns the finished capture. Only valid once the session is
// completed or shared.
func (s *Session) Result() (Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCompleted && s.state != StateShared {
		return Capture{}, ErrNotCompleted
	}
	chunks := make([]media.Chunk, len(s.chunks))
	copy(chunks, s.chunks)
	return Capture{
		SessionID: s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		Duration:  s.elapsed,
		Chunks:    chunks,
		HasScreen: s.stream.HasScreen(),
	}, nil
}

func (s *Session) apply(event Event) error {
	s.mu.Lock()
	next, err := Next(s.state, event)
	if err != nil {
		from := s.state
		s.mu.Unlock()
		s.logger.Debug().Str("event", "session.transition_forbidden").
			Str("from", string(from)).Str("command", string(event)).Msg("command rejected")
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.notifyState(next)
	return nil
}

func (s *Session) notifyState(st State) {
	if s.hooks.OnState != nil {
		s.hooks.OnState(st)
	}
}

// screenEnded handles the user ending the screen share from the platform
// chrome. An active capture is stopped as if Stop had been called; during
// the countdown the session is cancelled instead.
func (s *Session) screenEnded() {
	switch s.State() {
	case StateRecording, StatePaused:
		_ = s.Stop()
	case StateCountdown:
		_ = s.Cancel()
	}
}

func (s *Session) teardown() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.stream.Close()
}

func (s *Session) run() {
	defer close(s.done)

	if !s.countdown() {
		return
	}
	if err := s.apply(EventCountdownDone); err != nil {
		return
	}
	if err := s.recorder.Start(); err != nil {
		s.logger.Error().Err(err).Str("event", "session.recorder_failed").Msg("recorder failed to start")
		_ = s.Discard()
		return
	}
	s.logger.Info().Str("event", "session.recording").Msg("capture started")
	s.captureLoop()
}

func (s *Session) countdown() bool {
	remaining := s.opts.CountdownTicks
	if remaining <= 0 {
		return true
	}
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-s.ctx.Done():
			return false
		case <-ticker.C():
			if s.State() != StateCountdown {
				return false
			}
			remaining--
			if s.hooks.OnCountdownTick != nil {
				s.hooks.OnCountdownTick(remaining)
			}
		}
	}
	return true
}

func (s *Session) captureLoop() {
	ticker := s.clock.NewTicker(s.opts.ChunkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C():
			switch s.State() {
			case StateRecording:
				chunk, err := s.recorder.Cut()
				if err != nil {
					continue
				}
				s.mu.Lock()
				if s.state == StateRecording {
					s.chunks = append(s.chunks, chunk)
					s.elapsed += s.opts.ChunkInterval
				}
				s.mu.Unlock()
			case StatePaused:
				// skip the tick, paused time does not accrue
			default:
				return
			}
		}
	}
}

func (s *Session) chunkSnapshot() []media.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]media.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}
