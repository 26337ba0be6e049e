package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	clip := Clip{
		Samples:    []float32{0, 0.5, -0.5, 1, -1, 2},
		SampleRate: 16000,
	}

	require.NoError(t, SaveWAV(path, clip))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 16000, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	require.Len(t, buf.Data, len(clip.Samples))
	assert.Equal(t, 0, buf.Data[0])
	assert.Equal(t, 32767, buf.Data[3])
	assert.Equal(t, 32767, buf.Data[5], "out of range samples are clamped")
}

func TestWriteWAVRequiresRate(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	require.NoError(t, err)
	defer f.Close()

	assert.Error(t, WriteWAV(f, Clip{Samples: []float32{0}}))
}
