// SPDX-License-Identifier: MIT

package media

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openStream(t *testing.T) *Stream {
	t.Helper()
	c, _ := newComposer()
	st, err := c.Open(context.Background(), CaptureOptions{Video: true, Audio: true})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestRecorderChunkOrdering(t *testing.T) {
	r := NewStreamRecorder(openStream(t), time.Second)
	require.NoError(t, r.Start())

	for want := 0; want < 5; want++ {
		c, err := r.Cut()
		require.NoError(t, err)
		require.Equal(t, want, c.Seq)
		require.NotEmpty(t, c.Data)
		require.Equal(t, time.Second, c.Duration)
	}

	final, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, 5, final.Seq)
	require.Empty(t, final.Data)
	require.Zero(t, final.Duration)
}

func TestStopAddsNoRecordedTime(t *testing.T) {
	r := NewStreamRecorder(openStream(t), time.Second)
	require.NoError(t, r.Start())

	var total time.Duration
	for i := 0; i < 3; i++ {
		c, err := r.Cut()
		require.NoError(t, err)
		total += c.Duration
	}

	// only fully elapsed intervals carry payload; stopping must not
	// fabricate a partial chunk on top of them
	final, err := r.Stop()
	require.NoError(t, err)
	require.Zero(t, final.Duration)
	require.Equal(t, 3*time.Second, total+final.Duration)
}

func TestRecorderLifecycle(t *testing.T) {
	r := NewStreamRecorder(openStream(t), time.Second)

	_, err := r.Cut()
	require.ErrorIs(t, err, errRecorderState)

	require.NoError(t, r.Start())
	require.Error(t, r.Start(), "double start must fail")

	_, err = r.Stop()
	require.NoError(t, err)

	_, err = r.Cut()
	require.ErrorIs(t, err, errRecorderState)
	_, err = r.Stop()
	require.ErrorIs(t, err, errRecorderState)
}

func TestRecorderRequiresLiveStream(t *testing.T) {
	st := openStream(t)
	st.Close()

	r := NewStreamRecorder(st, time.Second)
	require.ErrorIs(t, r.Start(), ErrDeviceUnavailable)
}
