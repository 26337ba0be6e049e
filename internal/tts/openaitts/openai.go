// Package openaitts synthesizes speech with the OpenAI speech endpoint and
// plays the returned mp3.
package openaitts

import (
	"context"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go/v3"

	"scing/internal/config"
	"scing/internal/gateway"
	"scing/internal/tts"
)

const (
	DefaultModel = openai.SpeechModelTTS1
	DefaultVoice = openai.AudioSpeechNewParamsVoiceAlloy

	// normalRate is the speaking rate, in words per minute, that maps to speed 1.0.
	normalRate = 175
)

// voices accepted by the speech endpoint. Anything else, such as an espeak
// language code, falls back to DefaultVoice.
var voices = map[string]bool{
	"alloy": true, "ash": true, "ballad": true, "coral": true, "echo": true,
	"fable": true, "onyx": true, "nova": true, "sage": true, "shimmer": true,
	"verse": true, "marin": true, "cedar": true,
}

// Player plays an mp3 stream to completion.
type Player interface {
	PlayMP3(ctx context.Context, r io.Reader, volume float64) error
}

type Engine struct {
	client openai.Client
	model  openai.SpeechModel
	voice  openai.AudioSpeechNewParamsVoice
	speed  float64
	volume float64
	player Player
}

// New builds the engine on the same client options as the chat gateway.
// An empty model selects tts-1.
func New(cfg config.Gateway, model string, s tts.Settings, httpClient *http.Client, player Player) *Engine {
	if model == "" {
		model = DefaultModel
	}

	return &Engine{
		client: openai.NewClient(gateway.ClientOptions(cfg, httpClient)...),
		model:  model,
		voice:  Voice(s.Voice),
		speed:  Speed(s.Rate),
		volume: s.Volume,
		player: player,
	}
}

// Voice maps a configured voice name to an OpenAI voice.
func Voice(name string) openai.AudioSpeechNewParamsVoice {
	if voices[name] {
		return openai.AudioSpeechNewParamsVoice(name)
	}
	return DefaultVoice
}

// Speed converts a words-per-minute rate to the endpoint's 0.25-4.0 range.
func Speed(rate int) float64 {
	if rate <= 0 {
		return 1.0
	}
	return min(max(float64(rate)/normalRate, 0.25), 4.0)
}

func (e *Engine) Say(ctx context.Context, text string) error {
	resp, err := e.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          e.model,
		Voice:          e.voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(e.speed),
	})
	if err != nil {
		return fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	return e.player.PlayMP3(ctx, resp.Body, e.volume)
}

func (e *Engine) Close() error { return nil }
