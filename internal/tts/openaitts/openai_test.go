package openaitts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scing/internal/config"
	"scing/internal/tts"
)

type capturePlayer struct {
	data   []byte
	volume float64
}

func (p *capturePlayer) PlayMP3(_ context.Context, r io.Reader, volume float64) error {
	b, err := io.ReadAll(r)
	p.data = b
	p.volume = volume
	return err
}

func newServer(t *testing.T, handler http.HandlerFunc) (config.Gateway, *http.Client, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return config.Gateway{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, srv.Client(), &hits
}

func TestSaySendsRequestAndPlays(t *testing.T) {
	cfg, client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model          string  `json:"model"`
			Input          string  `json:"input"`
			Voice          string  `json:"voice"`
			ResponseFormat string  `json:"response_format"`
			Speed          float64 `json:"speed"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tts-1", req.Model)
		assert.Equal(t, "I am Scing.", req.Input)
		assert.Equal(t, "nova", req.Voice)
		assert.Equal(t, "mp3", req.ResponseFormat)
		assert.Equal(t, 2.0, req.Speed)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3"))
	})

	player := &capturePlayer{}
	e := New(cfg, "", tts.Settings{Rate: 350, Volume: 0.5, Voice: "nova"}, client, player)

	require.NoError(t, e.Say(context.Background(), "I am Scing."))
	assert.Equal(t, []byte("ID3fake-mp3"), player.data)
	assert.Equal(t, 0.5, player.volume)
}

func TestSayReturnsAPIErrorWithoutRetry(t *testing.T) {
	cfg, client, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`)
	})

	player := &capturePlayer{}
	e := New(cfg, "", tts.Settings{}, client, player)

	err := e.Say(context.Background(), "hello")
	require.Error(t, err)

	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
	assert.Nil(t, player.data)
}

func TestVoice(t *testing.T) {
	tests := []struct {
		name string
		want openai.AudioSpeechNewParamsVoice
	}{
		{"ash", "ash"},
		{"nova", "nova"},
		{"onyx", "onyx"},
		{"cedar", "cedar"},
		{"en", DefaultVoice},
		{"en-us", DefaultVoice},
		{"", DefaultVoice},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Voice(tt.name), "%q", tt.name)
	}
}

func TestNewKeepsOpenAIVoice(t *testing.T) {
	e := New(config.Gateway{}, "", tts.Settings{Voice: "ash"}, nil, nil)
	assert.Equal(t, openai.AudioSpeechNewParamsVoiceAsh, e.voice)
	assert.Equal(t, DefaultModel, e.model)
}

func TestSpeed(t *testing.T) {
	assert.Equal(t, 1.0, Speed(0))
	assert.Equal(t, 1.0, Speed(175))
	assert.Equal(t, 0.25, Speed(10))
	assert.Equal(t, 4.0, Speed(2000))
}
