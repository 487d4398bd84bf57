// SPDX-License-Identifier: MIT

// Package output turns a finished capture into a stored artifact and
// enriches it with generated metadata.
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/loomverse/studio/internal/media"
	"github.com/loomverse/studio/internal/session"
)

// ErrEmptyCapture is returned when a capture finishes without any payload,
// for example a stop immediately after the countdown.
var ErrEmptyCapture = errors.New("output: empty capture")

// Artifact is the assembled recording, ready for storage.
type Artifact struct {
	SessionID string
	Title     string
	MimeType  string
	Data      []byte
	Duration  time.Duration
	CreatedAt time.Time
	HasScreen bool
}

// Finalize assembles the ordered chunks of a capture into one artifact.
// Chunks must arrive in strictly increasing sequence order; a capture with
// no payload bytes fails with ErrEmptyCapture.
func Finalize(cap session.Capture) (*Artifact, error) {
	var total int
	for i, c := range cap.Chunks {
		if i > 0 && c.Seq <= cap.Chunks[i-1].Seq {
			return nil, fmt.Errorf("output: chunk %d out of order (seq %d after %d)",
				i, c.Seq, cap.Chunks[i-1].Seq)
		}
		total += len(c.Data)
	}
	if total == 0 {
		return nil, ErrEmptyCapture
	}

	data := make([]byte, 0, total)
	for _, c := range cap.Chunks {
		data = append(data, c.Data...)
	}

	return &Artifact{
		SessionID: cap.SessionID,
		Title:     cap.Title,
		MimeType:  media.MimeType,
		Data:      data,
		Duration:  cap.Duration,
		CreatedAt: cap.CreatedAt,
		HasScreen: cap.HasScreen,
	}, nil
}
