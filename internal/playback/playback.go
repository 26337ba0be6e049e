// Package playback plays mp3 audio on the default output device.
package playback

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const SampleRate = beep.SampleRate(44100)

// Speaker owns the process-wide beep speaker. The speaker is initialised
// once on first use.
type Speaker struct {
	once sync.Once
	err  error
}

func NewSpeaker() *Speaker { return &Speaker{} }

func (s *Speaker) init() error {
	s.once.Do(func() {
		if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
			s.err = fmt.Errorf("speaker init: %w", err)
		}
	})
	return s.err
}

// PlayMP3 decodes r and blocks until playback ends or ctx is done.
// volume is linear, 1.0 is unchanged, 0 mutes.
func (s *Speaker) PlayMP3(ctx context.Context, r io.Reader, volume float64) error {
	if err := s.init(); err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(readCloser(r))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		src = beep.Resample(4, format.SampleRate, SampleRate, src)
	}

	vol := &effects.Volume{Streamer: src, Base: 2}
	if volume <= 0 {
		vol.Silent = true
	} else {
		vol.Volume = math.Log2(volume)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func readCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}
