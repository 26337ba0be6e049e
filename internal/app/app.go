// Package app wires the concrete collaborators shared by the scing commands.
package app

import (
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	"scing/internal/audio"
	"scing/internal/audio/device"
	"scing/internal/config"
	"scing/internal/gateway"
	"scing/internal/metrics"
	"scing/internal/playback"
	"scing/internal/proxy"
	"scing/internal/tts"
	"scing/internal/tts/espeak"
	"scing/internal/tts/openaitts"
	"scing/pkg/stt"
	"scing/pkg/stt/whisper"
)

const httpTimeout = 120 * time.Second

// HTTPClient returns the client used for remote calls, optionally through a
// SOCKS5 proxy.
func HTTPClient(proxyAddr string) (*http.Client, error) {
	client, err := proxy.NewSocksClient(proxyAddr, httpTimeout)
	if err != nil {
		return nil, err
	}
	if proxyAddr != "" {
		log.Debug("Using socks proxy", "proxy", proxyAddr)
	}
	return client, nil
}

func Gateway(cfg config.Gateway, client *http.Client, m *metrics.Metrics) *gateway.Gateway {
	return gateway.New(cfg, gateway.NewOpenAIBackend(cfg, client), m)
}

// Recorder opens PortAudio. The returned func terminates it.
func Recorder(m *metrics.Metrics) (*audio.Recorder, func(), error) {
	pa := device.NewPortAudio()
	if err := pa.Init(); err != nil {
		return nil, nil, fmt.Errorf("init audio: %w", err)
	}

	rec := audio.NewRecorder(pa)
	rec.OnStatus = func(st audio.StreamStatus) { m.Device(st.String()) }
	return rec, pa.Close, nil
}

// Transcriber returns the lazily loaded whisper model and a transcriber over it.
func Transcriber(cfg config.TranscriptionConfig) (*stt.Handle, *stt.Transcriber) {
	handle := stt.NewHandle(cfg.Model, whisper.Loader(cfg.ModelDir))
	return handle, stt.NewTranscriber(handle, stt.Options{
		Language: cfg.Language,
		Threads:  cfg.Threads,
	})
}

// Vocalizer creates the configured speech engine once.
func Vocalizer(cfg config.SpeechConfig, gw config.Gateway, client *http.Client, spk *playback.Speaker) (*tts.Vocalizer, error) {
	settings := tts.Settings{Rate: cfg.Rate, Volume: cfg.Volume, Voice: cfg.Voice}

	switch cfg.Engine {
	case "openai":
		engine := openaitts.New(gw, "", settings, client, spk)
		return tts.NewVocalizer(engine), nil
	case "espeak", "":
		engine, err := espeak.New(settings)
		if err != nil {
			return nil, err
		}
		return tts.NewVocalizer(engine), nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}

// Ducker returns nil when ducking is disabled.
func Ducker(cfg config.DuckingConfig) *audio.Ducker {
	if !cfg.Enabled {
		return nil
	}
	return audio.NewDucker(audio.PactlMixer{}, []string{"scing"}, cfg.Factor, cfg.Fade, cfg.MinVolume)
}
