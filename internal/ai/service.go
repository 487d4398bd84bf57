// SPDX-License-Identifier: MIT

// Package ai generates recording metadata: transcription, summary, tags,
// topics and title suggestions. The shipped implementation is a stand-in
// with realistic latency and failure behaviour; a hosted model slots in
// behind the same interface.
package ai

import (
	"context"
	"errors"
	"time"
)

// ErrGeneration is the sentinel wrapped by every failed metadata call.
var ErrGeneration = errors.New("ai: metadata generation failed")

// Service produces metadata for a finished recording. All calls honour the
// context and may block on rate limiting.
type Service interface {
	// Transcribe converts captured audio into a timed transcript.
	Transcribe(ctx context.Context, audio []byte, duration time.Duration) (Transcript, error)

	// Summarize produces a short prose summary of a transcript.
	Summarize(ctx context.Context, transcript string) (string, error)

	// Tags extracts searchable tags from a transcript.
	Tags(ctx context.Context, transcript string) ([]string, error)

	// Topics extracts the main topics covered by a transcript.
	Topics(ctx context.Context, transcript string) ([]string, error)

	// SuggestTitle proposes a title for the recording.
	SuggestTitle(ctx context.Context, transcript string) (string, error)
}
