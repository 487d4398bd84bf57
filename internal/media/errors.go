// SPDX-License-Identifier: MIT

package media

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the user or platform refuses
	// access to a capture input.
	ErrPermissionDenied = errors.New("media: permission denied")

	// ErrDeviceUnavailable is returned when a requested capture input is
	// missing or already claimed by another process.
	ErrDeviceUnavailable = errors.New("media: device unavailable")

	// ErrPickerDismissed is returned when the user closes the screen
	// picker without choosing a surface. It is recoverable: the caller
	// may retry or fall back to camera-only capture.
	ErrPickerDismissed = errors.New("media: capture picker dismissed")

	// ErrNoInput is returned when a stream is opened without requesting
	// any capture input.
	ErrNoInput = errors.New("media: no capture input requested")
)

// SetupError reports a failed stream composition. All sources acquired
// before the failure have been released by the time it is returned.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("media: stream setup failed at %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
