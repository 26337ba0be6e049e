package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingEngine struct {
	said   []string
	err    error
	closed bool
}

func (e *recordingEngine) Say(_ context.Context, text string) error {
	e.said = append(e.said, text)
	return e.err
}

func (e *recordingEngine) Close() error {
	e.closed = true
	return nil
}

func TestSpeakPassesTrimmedText(t *testing.T) {
	e := &recordingEngine{}
	v := NewVocalizer(e)

	assert.NoError(t, v.Speak(context.Background(), "  I am Scing.\n"))
	assert.Equal(t, []string{"I am Scing."}, e.said)
}

func TestSpeakSkipsEmptyText(t *testing.T) {
	e := &recordingEngine{}
	v := NewVocalizer(e)

	assert.NoError(t, v.Speak(context.Background(), "   "))
	assert.Empty(t, e.said)
}

func TestSpeakPropagatesEngineError(t *testing.T) {
	boom := errors.New("audio device busy")
	v := NewVocalizer(&recordingEngine{err: boom})

	err := v.Speak(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
}

func TestCloseClosesEngine(t *testing.T) {
	e := &recordingEngine{}
	assert.NoError(t, NewVocalizer(e).Close())
	assert.True(t, e.closed)
}
