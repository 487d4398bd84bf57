// SPDX-License-Identifier: MIT

package media

import (
	"context"
	"sync"
)

// SimDevice is an in-process Device used by tests and the demo backend. It
// can be configured to deny grants, dismiss the screen picker, or end a
// running screen share the way a user would from the platform chrome.
type SimDevice struct {
	mu            sync.Mutex
	denyCamera    bool
	denyMic       bool
	dismissPicker bool
	detached      map[TrackKind]bool
	screenTracks  []*Track
}

func NewSimDevice() *SimDevice {
	return &SimDevice{detached: make(map[TrackKind]bool)}
}

// DenyCamera makes subsequent camera grants fail with ErrPermissionDenied.
func (d *SimDevice) DenyCamera(deny bool) {
	d.mu.Lock()
	d.denyCamera = deny
	d.mu.Unlock()
}

// DenyMicrophone makes subsequent microphone grants fail with
// ErrPermissionDenied.
func (d *SimDevice) DenyMicrophone(deny bool) {
	d.mu.Lock()
	d.denyMic = deny
	d.mu.Unlock()
}

// DismissPicker makes the next screen captures fail with ErrPickerDismissed.
func (d *SimDevice) DismissPicker(dismiss bool) {
	d.mu.Lock()
	d.dismissPicker = dismiss
	d.mu.Unlock()
}

// Detach simulates unplugging an input of the given kind.
func (d *SimDevice) Detach(kind TrackKind) {
	d.mu.Lock()
	d.detached[kind] = true
	d.mu.Unlock()
}

// EndScreenShare ends every live screen track, as if the user clicked
// "stop sharing" in the platform chrome.
func (d *SimDevice) EndScreenShare() {
	d.mu.Lock()
	tracks := make([]*Track, len(d.screenTracks))
	copy(tracks, d.screenTracks)
	d.screenTracks = nil
	d.mu.Unlock()
	for _, t := range tracks {
		t.End()
	}
}

// Capture implements Device.
func (d *SimDevice) Capture(ctx context.Context, kinds ...TrackKind) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var tracks []*Track
	for _, kind := range kinds {
		if d.detached[kind] {
			return nil, ErrDeviceUnavailable
		}
		switch kind {
		case KindCamera:
			if d.denyCamera {
				return nil, ErrPermissionDenied
			}
			tracks = append(tracks, newTrack(kind, "Simulated Camera"))
		case KindMicrophone:
			if d.denyMic {
				return nil, ErrPermissionDenied
			}
			tracks = append(tracks, newTrack(kind, "Simulated Microphone"))
		case KindScreen:
			if d.dismissPicker {
				return nil, ErrPickerDismissed
			}
			t := newTrack(kind, "Simulated Screen")
			d.screenTracks = append(d.screenTracks, t)
			tracks = append(tracks, t)
		default:
			return nil, ErrDeviceUnavailable
		}
	}
	return newSource(tracks...), nil
}

// Enumerate implements Device.
func (d *SimDevice) Enumerate(ctx context.Context) ([]InputInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	all := []InputInfo{
		{ID: "sim-cam-0", Label: "Simulated Camera", Kind: KindCamera},
		{ID: "sim-mic-0", Label: "Simulated Microphone", Kind: KindMicrophone},
		{ID: "sim-screen-0", Label: "Simulated Screen", Kind: KindScreen},
	}
	out := all[:0]
	for _, in := range all {
		if !d.detached[in.Kind] {
			out = append(out, in)
		}
	}
	return out, nil
}
