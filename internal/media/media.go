// SPDX-License-Identifier: MIT

// Package media models the capture boundary of the studio: devices hand out
// live tracks, the gateway mediates permission, and the composer combines
// camera and screen tracks into a single recordable stream.
package media

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TrackKind identifies a capture input category.
type TrackKind string

const (
	KindCamera     TrackKind = "camera"
	KindMicrophone TrackKind = "microphone"
	KindScreen     TrackKind = "screen"
)

// MimeType is the container and codec used for recorded chunks.
const MimeType = "video/webm;codecs=vp9"

// Track is a single live capture track handed out by a Device. A track may
// stop for two reasons: the application releases it (Stop), or the device
// side ends it, for example the user hitting "stop sharing" in the platform
// chrome (End). Only the latter fires the onEnded callback.
type Track struct {
	ID    string
	Kind  TrackKind
	Label string

	mu      sync.Mutex
	stopped bool
	onEnded func()
}

func newTrack(kind TrackKind, label string) *Track {
	return &Track{ID: uuid.NewString(), Kind: kind, Label: label}
}

// Stop releases the track. Safe to call more than once.
func (t *Track) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.onEnded = nil
	t.mu.Unlock()
}

// End marks the track as ended by the device side and fires the onEnded
// callback exactly once.
func (t *Track) End() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	fn := t.onEnded
	t.onEnded = nil
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnEnded registers a callback for a device-side end of the track.
func (t *Track) OnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.onEnded = fn
	}
}

// Stopped reports whether the track is no longer live.
func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Source is a group of tracks acquired in a single grant.
type Source struct {
	ID     string
	Tracks []*Track

	mu     sync.Mutex
	closed bool
}

func newSource(tracks ...*Track) *Source {
	return &Source{ID: uuid.NewString(), Tracks: tracks}
}

// Close stops every track in the source. Safe to call more than once.
func (s *Source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	for _, t := range s.Tracks {
		t.Stop()
	}
}

// TrackOf returns the first track of the given kind, or nil.
func (s *Source) TrackOf(kind TrackKind) *Track {
	for _, t := range s.Tracks {
		if t.Kind == kind {
			return t
		}
	}
	return nil
}

// Live reports whether any track in the source is still running.
func (s *Source) Live() bool {
	for _, t := range s.Tracks {
		if !t.Stopped() {
			return true
		}
	}
	return false
}

// InputInfo describes an attached capture input.
type InputInfo struct {
	ID    string
	Label string
	Kind  TrackKind
}

// Device is the boundary to the platform capture APIs. Camera and
// microphone are granted together in one prompt; screen capture raises its
// own picker and may be dismissed.
type Device interface {
	Capture(ctx context.Context, kinds ...TrackKind) (*Source, error)
	Enumerate(ctx context.Context) ([]InputInfo, error)
}
