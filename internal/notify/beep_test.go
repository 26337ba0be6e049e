package notify

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	got    []byte
	volume float64
	err    error
}

func (p *fakePlayer) PlayMP3(_ context.Context, r io.Reader, volume float64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.got = b
	p.volume = volume
	return p.err
}

func TestCuePlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3-bytes"), 0o644))

	p := &fakePlayer{}
	require.NoError(t, NewCue(path, 0.8, p).Play(context.Background()))
	assert.Equal(t, []byte("mp3-bytes"), p.got)
	assert.Equal(t, 0.8, p.volume)
}

func TestCueMissingFile(t *testing.T) {
	p := &fakePlayer{}
	err := NewCue(filepath.Join(t.TempDir(), "nope.mp3"), 1, p).Play(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, p.got)
}

func TestCuePlayerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	boom := errors.New("no output device")
	err := NewCue(path, 1, &fakePlayer{err: boom}).Play(context.Background())
	assert.ErrorIs(t, err, boom)
}
