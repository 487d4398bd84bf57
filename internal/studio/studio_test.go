// SPDX-License-Identifier: MIT

package studio

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/loomverse/studio/internal/ai"
	"github.com/loomverse/studio/internal/cache"
	"github.com/loomverse/studio/internal/media"
	"github.com/loomverse/studio/internal/output"
	"github.com/loomverse/studio/internal/session"
	"github.com/loomverse/studio/internal/store"
)

type fixture struct {
	studio *Studio
	dev    *media.SimDevice
	clock  *session.ManualClock
}

func newFixture(t *testing.T, aiOpts ai.StandInOptions, opt ...Options) *fixture {
	t.Helper()

	if aiOpts.Seed == 0 {
		aiOpts.Seed = 42
	}
	if aiOpts.Limiter == nil {
		aiOpts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return newFixtureWithAI(t, ai.NewStandIn(aiOpts), opt...)
}

func newFixtureWithAI(t *testing.T, svc ai.Service, opt ...Options) *fixture {
	t.Helper()

	opts := Options{CountdownTicks: 1, ChunkInterval: time.Second}
	if len(opt) > 0 {
		opts = opt[0]
	}

	dir := t.TempDir()
	repo, err := store.NewSQLiteRepository(filepath.Join(dir, "recordings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	blobs, err := store.NewBlobStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	c := cache.NewMemoryCache(0)
	t.Cleanup(c.Close)

	dev := media.NewSimDevice()
	clock := session.NewManualClock(time.Unix(1700000000, 0))
	st := New(media.NewGateway(dev), repo, blobs,
		output.NewEnricher(svc), c, clock, opts)

	return &fixture{studio: st, dev: dev, clock: clock}
}

func tickUntil(t *testing.T, clock *session.ManualClock, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		clock.Tick()
		return cond()
	}, 2*time.Second, time.Millisecond)
}

// startAndRecord drives a fresh session into recording with at least n
// chunks captured.
func (f *fixture) startAndRecord(t *testing.T, opts StartOptions, n int) *session.Session {
	t.Helper()
	sess, err := f.studio.StartSession(context.Background(), opts)
	require.NoError(t, err)
	tickUntil(t, f.clock, func() bool { return sess.State() == session.StateRecording })
	if n > 0 {
		tickUntil(t, f.clock, func() bool { return sess.Elapsed() >= time.Duration(n)*time.Second })
	}
	return sess
}

func TestFullRecordingFlow(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	ctx := context.Background()

	access := f.studio.CheckAccess(ctx)
	require.True(t, access.Camera)
	require.True(t, access.Microphone)

	f.startAndRecord(t, StartOptions{Video: true, Audio: true, Screen: true}, 3)
	require.NoError(t, f.studio.StopSession())

	rec, err := f.studio.SaveSession(ctx, "weekly demo")
	require.NoError(t, err)
	require.NotEmpty(t, rec.Title)
	require.NotEmpty(t, rec.Transcription)
	require.NotEmpty(t, rec.Summary)
	require.NotEmpty(t, rec.Tags)
	require.Equal(t, "weekly demo", rec.Description)
	require.Equal(t, media.MimeType, rec.MimeType)
	require.Positive(t, rec.Size)
	require.Positive(t, rec.Duration)
	require.True(t, rec.HasScreen)

	list, err := f.studio.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := f.studio.GetRecording(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)

	// served from cache on the second read
	got2, err := f.studio.GetRecording(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, got.Title, got2.Title)

	found, err := f.studio.SearchRecordings(ctx, "WEEKLY")
	require.NoError(t, err)
	require.Len(t, found, 1)

	views, err := f.studio.ViewRecording(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), views)

	data, mime, err := f.studio.Media(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, media.MimeType, mime)
	require.Len(t, data, int(rec.Size))

	require.NoError(t, f.studio.DeleteRecording(ctx, rec.ID))
	_, err = f.studio.GetRecording(ctx, rec.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSecondSessionBlockedWhileActive(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	ctx := context.Background()

	f.startAndRecord(t, StartOptions{}, 1)

	_, err := f.studio.StartSession(ctx, StartOptions{})
	require.ErrorIs(t, err, ErrSessionActive)

	require.NoError(t, f.studio.DiscardSession())

	sess, err := f.studio.StartSession(ctx, StartOptions{})
	require.NoError(t, err)
	require.NoError(t, sess.Cancel())
}

func TestCancelDuringCountdownFreesSlot(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	ctx := context.Background()

	_, err := f.studio.StartSession(ctx, StartOptions{})
	require.NoError(t, err)
	require.NoError(t, f.studio.CancelSession())

	_, err = f.studio.Session()
	require.ErrorIs(t, err, ErrNoSession)

	sess, err := f.studio.StartSession(ctx, StartOptions{})
	require.NoError(t, err)
	require.NoError(t, sess.Cancel())
}

func TestSaveRequiresCompletedCapture(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})

	f.startAndRecord(t, StartOptions{}, 1)

	_, err := f.studio.SaveSession(context.Background(), "")
	require.ErrorIs(t, err, session.ErrNotCompleted)

	require.NoError(t, f.studio.DiscardSession())
}

func TestEmptyCaptureIsNotSaved(t *testing.T) {
	// no countdown and no clock ticks: the capture ends before the first
	// chunk interval ever elapses
	f := newFixture(t, ai.StandInOptions{}, Options{CountdownTicks: 0, ChunkInterval: time.Second})

	sess, err := f.studio.StartSession(context.Background(), StartOptions{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sess.State() == session.StateRecording },
		2*time.Second, time.Millisecond)

	require.NoError(t, f.studio.StopSession())

	_, err = f.studio.SaveSession(context.Background(), "")
	require.ErrorIs(t, err, output.ErrEmptyCapture)

	// the failed save must not strand the session: the slot is free and
	// a fresh recording can start right away
	require.Equal(t, session.StateDiscarded, sess.State())
	_, err = f.studio.Session()
	require.ErrorIs(t, err, ErrNoSession)

	next, err := f.studio.StartSession(context.Background(), StartOptions{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return next.State() == session.StateRecording },
		2*time.Second, time.Millisecond)
	require.NoError(t, f.studio.DiscardSession())
}

func TestEnrichmentFailureStillSaves(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{FailRate: 1})
	ctx := context.Background()

	f.startAndRecord(t, StartOptions{Title: "My demo"}, 2)
	require.NoError(t, f.studio.StopSession())

	rec, err := f.studio.SaveSession(ctx, "")
	require.NoError(t, err, "a failed enrichment must not lose the recording")
	require.Equal(t, "My demo", rec.Title)
	require.Empty(t, rec.Transcription)
	require.Empty(t, rec.Tags)
}

func TestEnrichmentFailureWithoutTitleFallsBack(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{FailRate: 1})

	f.startAndRecord(t, StartOptions{}, 2)
	require.NoError(t, f.studio.StopSession())

	rec, err := f.studio.SaveSession(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "Untitled recording", rec.Title)
}

func TestShareRecording(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	ctx := context.Background()

	f.startAndRecord(t, StartOptions{}, 2)
	require.NoError(t, f.studio.StopSession())
	rec, err := f.studio.SaveSession(ctx, "")
	require.NoError(t, err)
	require.False(t, rec.IsPublic)

	require.NoError(t, f.studio.ShareRecording(ctx, rec.ID))

	got, err := f.studio.GetRecording(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, got.IsPublic)
}

func TestScreenShareEndStopsAndSaves(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	ctx := context.Background()

	sess := f.startAndRecord(t, StartOptions{Video: true, Audio: true, Screen: true}, 2)

	f.dev.EndScreenShare()
	require.Eventually(t, func() bool { return sess.State() == session.StateCompleted },
		2*time.Second, time.Millisecond)

	rec, err := f.studio.SaveSession(ctx, "")
	require.NoError(t, err)
	require.True(t, rec.HasScreen)
}

func TestStartFailureReportsSetupError(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	f.dev.DenyCamera(true)

	_, err := f.studio.StartSession(context.Background(), StartOptions{})
	require.ErrorIs(t, err, media.ErrPermissionDenied)

	var se *media.SetupError
	require.ErrorAs(t, err, &se)
}

func TestScreenOnlySessionWithoutCameraGrant(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	f.dev.DenyCamera(true)
	f.dev.DenyMicrophone(true)

	// screen recording must work without any user-media grant
	sess := f.startAndRecord(t, StartOptions{Screen: true}, 2)
	require.True(t, sess.HasScreen())

	require.NoError(t, f.studio.StopSession())
	rec, err := f.studio.SaveSession(context.Background(), "")
	require.NoError(t, err)
	require.True(t, rec.HasScreen)
}

func TestAudioOnlySession(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	f.dev.DenyCamera(true)

	f.startAndRecord(t, StartOptions{Audio: true}, 2)
	require.NoError(t, f.studio.StopSession())

	rec, err := f.studio.SaveSession(context.Background(), "")
	require.NoError(t, err)
	require.False(t, rec.HasScreen)
	require.Positive(t, rec.Size)
}

// flakyService fails every metadata call while failing is set and delegates
// to the wrapped service otherwise.
type flakyService struct {
	inner   ai.Service
	failing atomic.Bool
}

func (f *flakyService) err() error {
	if f.failing.Load() {
		return fmt.Errorf("flaky: %w", ai.ErrGeneration)
	}
	return nil
}

func (f *flakyService) Transcribe(ctx context.Context, audio []byte, d time.Duration) (ai.Transcript, error) {
	if err := f.err(); err != nil {
		return ai.Transcript{}, err
	}
	return f.inner.Transcribe(ctx, audio, d)
}

func (f *flakyService) Summarize(ctx context.Context, transcript string) (string, error) {
	if err := f.err(); err != nil {
		return "", err
	}
	return f.inner.Summarize(ctx, transcript)
}

func (f *flakyService) Tags(ctx context.Context, transcript string) ([]string, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.inner.Tags(ctx, transcript)
}

func (f *flakyService) Topics(ctx context.Context, transcript string) ([]string, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.inner.Topics(ctx, transcript)
}

func (f *flakyService) SuggestTitle(ctx context.Context, transcript string) (string, error) {
	if err := f.err(); err != nil {
		return "", err
	}
	return f.inner.SuggestTitle(ctx, transcript)
}

func TestEnrichRecordingRetriesDegradedSave(t *testing.T) {
	svc := &flakyService{inner: ai.NewStandIn(ai.StandInOptions{
		Seed:    42,
		Limiter: rate.NewLimiter(rate.Inf, 1),
	})}
	svc.failing.Store(true)
	f := newFixtureWithAI(t, svc)
	ctx := context.Background()

	f.startAndRecord(t, StartOptions{}, 2)
	require.NoError(t, f.studio.StopSession())

	rec, err := f.studio.SaveSession(ctx, "")
	require.NoError(t, err)
	require.Empty(t, rec.Transcription)
	require.Equal(t, "Untitled recording", rec.Title)

	// a retry while generation is still down changes nothing
	_, err = f.studio.EnrichRecording(ctx, rec.ID)
	require.ErrorIs(t, err, ai.ErrGeneration)

	svc.failing.Store(false)
	got, err := f.studio.EnrichRecording(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.NotEmpty(t, got.Transcription)
	require.NotEmpty(t, got.Tags)
	require.NotEqual(t, "Untitled recording", got.Title)

	// enrichment fills the existing record in place, no duplicate
	list, err := f.studio.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotEmpty(t, list[0].Transcription)
}

func TestEnrichRecordingUnknownID(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})

	_, err := f.studio.EnrichRecording(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveFillerWords(t *testing.T) {
	f := newFixture(t, ai.StandInOptions{})
	ctx := context.Background()

	f.startAndRecord(t, StartOptions{}, 2)
	require.NoError(t, f.studio.StopSession())
	rec, err := f.studio.SaveSession(ctx, "")
	require.NoError(t, err)
	require.False(t, rec.FillerWordsRemoved)

	got, err := f.studio.RemoveFillerWords(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, got.FillerWordsRemoved)
	require.Equal(t, ai.RemoveFillers(rec.Transcription), got.EditedTranscription)
	require.Equal(t, rec.Transcription, got.Transcription, "the original transcript is kept")

	// the cleaned text is persisted, not just returned
	stored, err := f.studio.GetRecording(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, stored.FillerWordsRemoved)
	require.Equal(t, got.EditedTranscription, stored.EditedTranscription)
}
