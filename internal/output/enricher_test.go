// SPDX-License-Identifier: MIT

package output

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/loomverse/studio/internal/ai"
)

// fakeAI counts calls and lets tests inject per-op failures and delays.
type fakeAI struct {
	transcribes atomic.Int32
	delay       time.Duration
	failOp      string

	mu   sync.Mutex
	tags []string
}

func (f *fakeAI) wait(ctx context.Context, op string) error {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.failOp == op {
		return ai.ErrGeneration
	}
	return nil
}

func (f *fakeAI) Transcribe(ctx context.Context, audio []byte, d time.Duration) (ai.Transcript, error) {
	f.transcribes.Add(1)
	if err := f.wait(ctx, "transcribe"); err != nil {
		return ai.Transcript{}, err
	}
	return ai.Transcript{Segments: []ai.Segment{{End: d, Text: "um hello there"}}}, nil
}

func (f *fakeAI) Summarize(ctx context.Context, tr string) (string, error) {
	if err := f.wait(ctx, "summarize"); err != nil {
		return "", err
	}
	return "a summary", nil
}

func (f *fakeAI) Tags(ctx context.Context, tr string) ([]string, error) {
	if err := f.wait(ctx, "tags"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tags != nil {
		return f.tags, nil
	}
	return []string{"demo"}, nil
}

func (f *fakeAI) Topics(ctx context.Context, tr string) ([]string, error) {
	if err := f.wait(ctx, "topics"); err != nil {
		return nil, err
	}
	return []string{"the dashboard"}, nil
}

func (f *fakeAI) SuggestTitle(ctx context.Context, tr string) (string, error) {
	if err := f.wait(ctx, "title"); err != nil {
		return "", err
	}
	return "Suggested title", nil
}

func testArtifact(title string) *Artifact {
	return &Artifact{
		SessionID: "sess-1",
		Title:     title,
		Data:      []byte("payload"),
		Duration:  10 * time.Second,
	}
}

func TestEnrichFullSet(t *testing.T) {
	e := NewEnricher(&fakeAI{})

	meta, err := e.Enrich(context.Background(), testArtifact(""))
	require.NoError(t, err)
	require.Equal(t, "Suggested title", meta.Title)
	require.Equal(t, "um hello there", meta.Transcription)
	require.Equal(t, "a summary", meta.Summary)
	require.Equal(t, []string{"demo"}, meta.Tags)
	require.Equal(t, []string{"the dashboard"}, meta.Topics)
}

func TestEnrichKeepsUserTitle(t *testing.T) {
	e := NewEnricher(&fakeAI{})

	meta, err := e.Enrich(context.Background(), testArtifact("My own title"))
	require.NoError(t, err)
	require.Equal(t, "My own title", meta.Title)
}

func TestEnrichNormalizesTags(t *testing.T) {
	e := NewEnricher(&fakeAI{tags: []string{"Demo", "demo", " HowTo "}})

	meta, err := e.Enrich(context.Background(), testArtifact("x"))
	require.NoError(t, err)
	require.Equal(t, []string{"demo", "howto"}, meta.Tags)
}

func TestEnrichTranscriptionFailureAbortsAll(t *testing.T) {
	e := NewEnricher(&fakeAI{failOp: "transcribe"})

	_, err := e.Enrich(context.Background(), testArtifact("x"))
	require.ErrorIs(t, err, ai.ErrGeneration)
}

func TestEnrichDerivationFailurePropagates(t *testing.T) {
	e := NewEnricher(&fakeAI{failOp: "tags"})

	_, err := e.Enrich(context.Background(), testArtifact("x"))
	require.ErrorIs(t, err, ai.ErrGeneration)
}

func TestEnrichCoalescesConcurrentRequests(t *testing.T) {
	fake := &fakeAI{delay: 50 * time.Millisecond}
	e := NewEnricher(fake)
	art := testArtifact("x")

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Enrich(context.Background(), art)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), fake.transcribes.Load(),
		"concurrent enrichments for one session must share a single generation")
}

func TestEnrichWithStandIn(t *testing.T) {
	svc := ai.NewStandIn(ai.StandInOptions{Seed: 1, Limiter: rate.NewLimiter(rate.Inf, 1)})
	e := NewEnricher(svc)

	meta, err := e.Enrich(context.Background(), testArtifact(""))
	require.NoError(t, err)
	require.NotEmpty(t, meta.Title)
	require.NotEmpty(t, meta.Transcription)
	require.NotEmpty(t, meta.Summary)
	require.NotEmpty(t, meta.Tags)
	require.NotEmpty(t, meta.Topics)
}
