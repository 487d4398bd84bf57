// SPDX-License-Identifier: MIT

// Package preview provides the live preview helpers: the elapsed timer
// display, picture-in-picture placement and the camera visibility poller.
package preview

import (
	"fmt"
	"time"

	"github.com/loomverse/studio/internal/session"
)

// FormatElapsed renders a duration as zero-padded MM:SS. Minutes keep
// counting past the hour, a 61 minute recording shows as 61:00.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Indicator holds the on-screen status flags for a session state.
type Indicator struct {
	Countdown bool
	Live      bool
	Paused    bool
}

// IndicatorFor derives the status flags shown next to the elapsed timer.
func IndicatorFor(st session.State) Indicator {
	return Indicator{
		Countdown: st == session.StateCountdown,
		Live:      st == session.StateRecording,
		Paused:    st == session.StatePaused,
	}
}

// Default picture-in-picture geometry within the composed frame.
const (
	PiPWidth  = 240
	PiPHeight = 180
	PiPMargin = 16
)

// Corner is a picture-in-picture anchor position within the frame.
type Corner int

const (
	BottomRight Corner = iota
	BottomLeft
	TopLeft
	TopRight
)

func (c Corner) String() string {
	switch c {
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	}
	return "unknown"
}

// Next returns the corner a click moves the overlay to. The cycle runs
// counter-clockwise from the default bottom-right anchor and wraps.
func (c Corner) Next() Corner {
	return (c + 1) % 4
}

// Offset returns the top-left pixel position of a pipW x pipH overlay
// anchored at corner c inside a frameW x frameH frame with the given
// margin.
func Offset(c Corner, frameW, frameH, pipW, pipH, margin int) (x, y int) {
	switch c {
	case BottomRight:
		return frameW - pipW - margin, frameH - pipH - margin
	case BottomLeft:
		return margin, frameH - pipH - margin
	case TopLeft:
		return margin, margin
	case TopRight:
		return frameW - pipW - margin, margin
	}
	return margin, margin
}
