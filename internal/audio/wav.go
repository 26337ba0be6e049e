package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// WriteWAV encodes the clip as 16-bit PCM mono.
func WriteWAV(w io.WriteSeeker, clip Clip) error {
	if clip.SampleRate <= 0 {
		return errors.New("clip has no sample rate")
	}

	enc := wav.NewEncoder(w, clip.SampleRate, wavBitDepth, 1, 1)

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		data[i] = int(math.Round(float64(clamp(s)) * math.MaxInt16))
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  clip.SampleRate,
		},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

func SaveWAV(path string, clip Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteWAV(f, clip); err != nil {
		return err
	}
	return f.Sync()
}

func clamp(x float32) float32 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}
