// SPDX-License-Identifier: MIT

package media

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Chunk is one timed slice of encoded capture data. Sequence numbers start
// at zero and are strictly increasing for the life of a recorder.
type Chunk struct {
	Seq      int
	Data     []byte
	Duration time.Duration
}

// Recorder cuts a composed stream into ordered chunks. The caller drives
// the cadence: Cut is invoked once per chunk interval and Stop closes the
// sequence.
type Recorder interface {
	Start() error
	Cut() (Chunk, error)
	Stop() (Chunk, error)
}

var errRecorderState = errors.New("media: recorder not recording")

// approximate VP9 webm rate used to size synthetic chunk payloads
const bytesPerSecond = 96 * 1024

// StreamRecorder encodes a composed stream into webm chunks. The encoder is
// synthetic, payload bytes stand in for real VP9 output, but the chunk
// sequencing and lifecycle mirror a platform media recorder with a fixed
// timeslice.
type StreamRecorder struct {
	stream   *Stream
	interval time.Duration

	mu        sync.Mutex
	recording bool
	seq       int
	rng       *rand.Rand
}

func NewStreamRecorder(stream *Stream, interval time.Duration) *StreamRecorder {
	return &StreamRecorder{
		stream:   stream,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins encoding. The stream must still be live.
func (r *StreamRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return errors.New("media: recorder already started")
	}
	if !r.stream.Live() {
		return fmt.Errorf("media: cannot record: %w", ErrDeviceUnavailable)
	}
	r.recording = true
	r.seq = 0
	return nil
}

// Cut emits the chunk covering the last full interval.
func (r *StreamRecorder) Cut() (Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return Chunk{}, errRecorderState
	}
	return r.emitLocked(r.interval), nil
}

// Stop ends the recording and emits the closing chunk. Payload only exists
// for fully elapsed intervals, so the closing chunk carries no data and no
// duration: the recorded time is exactly the sum of the cut chunks, and a
// recording stopped before its first full interval carries no data at all.
func (r *StreamRecorder) Stop() (Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return Chunk{}, errRecorderState
	}
	r.recording = false
	c := Chunk{Seq: r.seq}
	r.seq++
	return c, nil
}

func (r *StreamRecorder) emitLocked(d time.Duration) Chunk {
	size := int(float64(bytesPerSecond) * d.Seconds())
	if size < 1 {
		size = 1
	}
	data := make([]byte, size)
	r.rng.Read(data)

	c := Chunk{Seq: r.seq, Data: data, Duration: d}
	r.seq++
	return c
}
