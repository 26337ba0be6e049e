package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync/atomic"
	"time"
)

type Recorder struct {
	dev InputDevice

	// OnStatus, when set, is called from the recording goroutine for every
	// non-zero device status.
	OnStatus func(StreamStatus)
}

func NewRecorder(dev InputDevice) *Recorder {
	return &Recorder{dev: dev}
}

// Record captures exactly d of mono audio at sampleRate. The device callback
// feeds a bounded queue; the caller drains BlockCount(d, sampleRate) frames
// and the stream is closed on every return path.
func (r *Recorder) Record(ctx context.Context, d time.Duration, sampleRate int) (clip Clip, err error) {
	if d <= 0 || sampleRate <= 0 {
		return Clip{}, fmt.Errorf("%w: duration=%s rate=%d", ErrInvalidRequest, d, sampleRate)
	}

	blocks := BlockCount(d, sampleRate)
	want := SampleCount(d, sampleRate)

	q := newCaptureQueue(blocks)

	stream, err := r.dev.OpenInput(float64(sampleRate), BlockSize, q.push)
	if err != nil {
		return Clip{}, &DeviceError{Op: "open", Err: err}
	}
	defer func() {
		q.shut()
		if cerr := closeStream(stream); cerr != nil {
			log.Warn("Failed to close input stream", "err", cerr)
			if err == nil {
				clip, err = Clip{}, &DeviceError{Op: "close", Err: cerr}
			}
		}
		if n := q.dropped.Load(); n > 0 {
			log.Debug("Dropped late frames", "count", n)
		}
	}()

	if err := stream.Start(); err != nil {
		return Clip{}, &DeviceError{Op: "start", Err: err}
	}

	samples := make([]float32, 0, blocks*BlockSize)
	for got := 0; got < blocks; {
		select {
		case <-ctx.Done():
			return Clip{}, fmt.Errorf("%w: %d/%d blocks: %w", ErrIncompleteClip, got, blocks, ctx.Err())
		case st := <-q.statuses:
			r.report(st)
		case f := <-q.frames:
			samples = append(samples, f...)
			got++
		}
	}

	for drained := false; !drained; {
		select {
		case st := <-q.statuses:
			r.report(st)
		default:
			drained = true
		}
	}

	if len(samples) > want {
		samples = samples[:want]
	}

	return Clip{
		Samples:    samples,
		SampleRate: sampleRate,
		Blocks:     blocks,
	}, nil
}

func (r *Recorder) report(st StreamStatus) {
	log.Warn("Audio input status", "status", st.String())
	if r.OnStatus != nil {
		r.OnStatus(st)
	}
}

func closeStream(s InputStream) error {
	return errors.Join(s.Stop(), s.Close())
}

// captureQueue is the hand-off between the device callback and Record.
// push never blocks: frames beyond capacity or after shut are dropped.
type captureQueue struct {
	frames   chan Frame
	statuses chan StreamStatus
	closed   atomic.Bool
	dropped  atomic.Int64
}

func newCaptureQueue(blocks int) *captureQueue {
	return &captureQueue{
		frames:   make(chan Frame, blocks),
		statuses: make(chan StreamStatus, 16),
	}
}

func (q *captureQueue) push(in []float32, st StreamStatus) {
	if q.closed.Load() {
		q.dropped.Add(1)
		return
	}

	if st != 0 {
		select {
		case q.statuses <- st:
		default:
		}
	}

	f := make(Frame, len(in))
	copy(f, in)

	select {
	case q.frames <- f:
	default:
		q.dropped.Add(1)
	}
}

func (q *captureQueue) shut() {
	q.closed.Store(true)
}
