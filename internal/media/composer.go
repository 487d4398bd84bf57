// SPDX-License-Identifier: MIT

package media

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/loomverse/studio/internal/log"
)

// Composited frame geometry. Camera PiP placement within the frame is a
// preview concern and lives elsewhere.
const (
	FrameWidth  = 1280
	FrameHeight = 720
)

// CaptureOptions select the inputs composed into a stream. Any combination
// is valid as long as at least one input is requested: screen-only and
// audio-only recordings are first-class modes.
type CaptureOptions struct {
	Video  bool
	Audio  bool
	Screen bool
}

func (o CaptureOptions) wantsUser() bool { return o.Video || o.Audio }

func (o CaptureOptions) userKinds() []TrackKind {
	var kinds []TrackKind
	if o.Video {
		kinds = append(kinds, KindCamera)
	}
	if o.Audio {
		kinds = append(kinds, KindMicrophone)
	}
	return kinds
}

// Composer acquires capture sources through the gateway and combines them
// into a single recordable Stream.
type Composer struct {
	gateway *Gateway
	logger  zerolog.Logger
}

func NewComposer(gateway *Gateway) *Composer {
	return &Composer{
		gateway: gateway,
		logger:  log.WithComponent("composer"),
	}
}

// Stream is a composed capture: an optional user-media source (camera and
// microphone), an optional screen source, and the merged set of tracks a
// recorder consumes. When a screen source is present the recorded frame is
// the screen surface with the camera, if granted, rendered as an overlay.
type Stream struct {
	User   *Source
	Screen *Source

	Width  int
	Height int

	mu            sync.Mutex
	closed        bool
	onScreenEnded func()
	logger        zerolog.Logger
}

// Open acquires the requested inputs: camera and microphone only when video
// or audio capture was asked for, then the screen surface when screen
// capture was. A denied camera therefore never blocks a screen-only
// recording. On any partial failure every already-acquired source is
// released before the error is returned, so a failed Open never leaks a
// live track. A dismissed screen picker comes back as ErrPickerDismissed
// wrapped in a SetupError; callers may retry without the screen.
func (c *Composer) Open(ctx context.Context, opts CaptureOptions) (*Stream, error) {
	if !opts.wantsUser() && !opts.Screen {
		return nil, ErrNoInput
	}

	st := &Stream{
		Width:  FrameWidth,
		Height: FrameHeight,
		logger: c.logger,
	}

	if opts.wantsUser() {
		stage := "camera"
		if !opts.Video {
			stage = "microphone"
		}
		user, err := c.gateway.Request(ctx, opts.userKinds()...)
		if err != nil {
			return nil, &SetupError{Stage: stage, Err: err}
		}
		st.User = user
	}

	if opts.Screen {
		screen, err := c.gateway.Request(ctx, KindScreen)
		if err != nil {
			if st.User != nil {
				st.User.Close()
			}
			return nil, &SetupError{Stage: "screen", Err: err}
		}
		st.Screen = screen
		if t := screen.TrackOf(KindScreen); t != nil {
			t.OnEnded(st.screenEnded)
		}
	}

	c.logger.Info().Str("event", "stream.open").Bool("video", opts.Video).
		Bool("audio", opts.Audio).Bool("screen", opts.Screen).Msg("stream composed")
	return st, nil
}

// HasScreen reports whether a screen surface is part of the composition.
func (s *Stream) HasScreen() bool { return s.Screen != nil }

// Tracks returns the merged capture tracks in recording order: the video
// surface first, microphone audio last. With a screen present the camera
// track is still included, it feeds the overlay.
func (s *Stream) Tracks() []*Track {
	var out []*Track
	if s.Screen != nil {
		if t := s.Screen.TrackOf(KindScreen); t != nil {
			out = append(out, t)
		}
	}
	if s.User != nil {
		if t := s.User.TrackOf(KindCamera); t != nil {
			out = append(out, t)
		}
		if t := s.User.TrackOf(KindMicrophone); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Live reports whether the stream still has running tracks.
func (s *Stream) Live() bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}
	if s.User != nil && s.User.Live() {
		return true
	}
	return s.Screen != nil && s.Screen.Live()
}

// OnScreenEnded registers a callback for the user ending the screen share
// from the platform chrome. The callback fires at most once and never after
// Close.
func (s *Stream) OnScreenEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.onScreenEnded = fn
	}
}

func (s *Stream) screenEnded() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn := s.onScreenEnded
	s.onScreenEnded = nil
	s.mu.Unlock()
	s.logger.Info().Str("event", "stream.screen_ended").Msg("screen share ended by user")
	if fn != nil {
		fn()
	}
}

// Close releases every track in the stream. Safe to call more than once;
// later calls are no-ops.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.onScreenEnded = nil
	s.mu.Unlock()

	if s.User != nil {
		s.User.Close()
	}
	if s.Screen != nil {
		s.Screen.Close()
	}
	s.logger.Debug().Str("event", "stream.close").Msg("stream released")
}
