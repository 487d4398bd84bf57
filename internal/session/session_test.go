// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/loomverse/studio/internal/media"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	sess   *Session
	stream *media.Stream
	dev    *media.SimDevice
	clock  *ManualClock
}

func newFixture(t *testing.T, withScreen bool, opts Options) *fixture {
	t.Helper()

	dev := media.NewSimDevice()
	composer := media.NewComposer(media.NewGateway(dev))
	stream, err := composer.Open(context.Background(),
		media.CaptureOptions{Video: true, Audio: true, Screen: withScreen})
	require.NoError(t, err)

	if opts.ChunkInterval == 0 {
		opts.ChunkInterval = time.Second
	}
	clock := NewManualClock(time.Unix(1700000000, 0))
	sess := New(stream, media.NewStreamRecorder(stream, opts.ChunkInterval), clock, opts, Hooks{})

	t.Cleanup(func() {
		switch sess.State() {
		case StateRecording, StatePaused:
			_ = sess.Stop()
		case StateCountdown:
			_ = sess.Cancel()
		}
		<-sess.Done()
		stream.Close()
	})
	return &fixture{sess: sess, stream: stream, dev: dev, clock: clock}
}

// tickUntil drives the manual clock until cond holds.
func tickUntil(t *testing.T, clock *ManualClock, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		clock.Tick()
		return cond()
	}, 2*time.Second, time.Millisecond)
}

func (f *fixture) recordUntilChunks(t *testing.T, n int) {
	t.Helper()
	tickUntil(t, f.clock, func() bool { return len(f.sess.chunkSnapshot()) >= n })
}

func startRecording(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.sess.Start(context.Background()))
	require.Equal(t, StateCountdown, f.sess.State())
	tickUntil(t, f.clock, func() bool { return f.sess.State() == StateRecording })
}

func TestHappyPathRecordAndStop(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 3, Title: "demo"})

	startRecording(t, f)
	f.recordUntilChunks(t, 3)

	require.NoError(t, f.sess.Stop())
	require.Equal(t, StateCompleted, f.sess.State())
	require.False(t, f.stream.Live(), "stream must be released on stop")

	cap, err := f.sess.Result()
	require.NoError(t, err)
	require.Equal(t, "demo", cap.Title)
	require.NotEmpty(t, cap.Chunks)

	// chunk sequence numbers are strictly increasing and duration is the
	// sum of the chunk durations
	var total time.Duration
	for i, c := range cap.Chunks {
		if i > 0 {
			require.Greater(t, c.Seq, cap.Chunks[i-1].Seq)
		}
		total += c.Duration
	}
	require.Equal(t, total, cap.Duration)
}

func TestStopKeepsTickedElapsedTime(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 1})

	startRecording(t, f)
	f.recordUntilChunks(t, 5)
	elapsed := f.sess.Elapsed()

	require.NoError(t, f.sess.Stop())
	require.Equal(t, elapsed, f.sess.Elapsed(), "stop must not add synthetic time")

	cap, err := f.sess.Result()
	require.NoError(t, err)
	require.Equal(t, elapsed, cap.Duration)
}

func TestCountdownCancelReturnsToIdle(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 3})

	require.NoError(t, f.sess.Start(context.Background()))
	f.clock.Tick()

	require.NoError(t, f.sess.Cancel())
	require.Equal(t, StateIdle, f.sess.State())
	require.False(t, f.stream.Live(), "cancel must release the stream")

	_, err := f.sess.Result()
	require.ErrorIs(t, err, ErrNotCompleted)
}

func TestZeroCountdownStartsImmediately(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 0})

	require.NoError(t, f.sess.Start(context.Background()))
	require.Eventually(t, func() bool { return f.sess.State() == StateRecording },
		2*time.Second, time.Millisecond)
}

func TestPauseStopsAccrual(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 1})

	startRecording(t, f)
	f.recordUntilChunks(t, 2)

	require.NoError(t, f.sess.Pause())
	require.Equal(t, StatePaused, f.sess.State())

	chunksBefore := len(f.sess.chunkSnapshot())
	elapsedBefore := f.sess.Elapsed()
	for i := 0; i < 5; i++ {
		f.clock.Tick()
	}
	require.Equal(t, chunksBefore, len(f.sess.chunkSnapshot()), "no chunks while paused")
	require.Equal(t, elapsedBefore, f.sess.Elapsed(), "paused time must not accrue")

	require.NoError(t, f.sess.Resume())
	f.recordUntilChunks(t, chunksBefore+1)
	require.Greater(t, f.sess.Elapsed(), elapsedBefore)

	require.NoError(t, f.sess.Stop())
}

func TestStopWhilePaused(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 1})

	startRecording(t, f)
	f.recordUntilChunks(t, 1)
	require.NoError(t, f.sess.Pause())

	require.NoError(t, f.sess.Stop())
	require.Equal(t, StateCompleted, f.sess.State())
}

func TestDiscardDropsCapture(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 1})

	startRecording(t, f)
	f.recordUntilChunks(t, 2)

	require.NoError(t, f.sess.Discard())
	require.Equal(t, StateDiscarded, f.sess.State())
	require.Empty(t, f.sess.chunkSnapshot())
	require.Zero(t, f.sess.Elapsed())
	require.False(t, f.stream.Live())
}

func TestShareRequiresCompletion(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 1})

	require.Error(t, f.sess.Share())

	startRecording(t, f)
	f.recordUntilChunks(t, 1)
	require.Error(t, f.sess.Share(), "cannot share while recording")

	require.NoError(t, f.sess.Stop())
	require.NoError(t, f.sess.Share())
	require.Equal(t, StateShared, f.sess.State())

	_, err := f.sess.Result()
	require.NoError(t, err, "result stays available after sharing")
}

func TestScreenShareEndStopsCapture(t *testing.T) {
	f := newFixture(t, true, Options{CountdownTicks: 1})

	startRecording(t, f)
	f.recordUntilChunks(t, 2)

	f.dev.EndScreenShare()
	require.Eventually(t, func() bool { return f.sess.State() == StateCompleted },
		2*time.Second, time.Millisecond)

	cap, err := f.sess.Result()
	require.NoError(t, err)
	require.True(t, cap.HasScreen)
	require.NotEmpty(t, cap.Chunks)
}

func TestScreenShareEndDuringCountdownCancels(t *testing.T) {
	f := newFixture(t, true, Options{CountdownTicks: 5})

	require.NoError(t, f.sess.Start(context.Background()))
	f.dev.EndScreenShare()

	require.Eventually(t, func() bool { return f.sess.State() == StateIdle },
		2*time.Second, time.Millisecond)
}

func TestInvalidCommandsRejected(t *testing.T) {
	f := newFixture(t, false, Options{CountdownTicks: 1})

	require.Error(t, f.sess.Pause(), "pause before start")
	require.Error(t, f.sess.Stop(), "stop before start")
	require.Error(t, f.sess.Resume(), "resume before start")

	startRecording(t, f)
	require.Error(t, f.sess.Start(context.Background()), "double start")
	require.Error(t, f.sess.Cancel(), "cancel after countdown")

	require.NoError(t, f.sess.Stop())
	require.Error(t, f.sess.Stop(), "double stop")
}

func TestCountdownTickHook(t *testing.T) {
	dev := media.NewSimDevice()
	composer := media.NewComposer(media.NewGateway(dev))
	stream, err := composer.Open(context.Background(), media.CaptureOptions{Video: true, Audio: true})
	require.NoError(t, err)

	clock := NewManualClock(time.Unix(1700000000, 0))
	var seen []int
	done := make(chan struct{})
	sess := New(stream, media.NewStreamRecorder(stream, time.Second), clock,
		Options{CountdownTicks: 3}, Hooks{
			OnCountdownTick: func(remaining int) {
				seen = append(seen, remaining)
				if remaining == 0 {
					close(done)
				}
			},
		})

	require.NoError(t, sess.Start(context.Background()))
	tickUntil(t, clock, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	})

	require.Equal(t, []int{2, 1, 0}, seen)

	require.Eventually(t, func() bool { return sess.State() == StateRecording },
		2*time.Second, time.Millisecond)
	require.NoError(t, sess.Stop())
	<-sess.Done()
}
