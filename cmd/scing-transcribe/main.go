package main

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"scing/internal/app"
	"scing/internal/audio"
	"scing/internal/config"
	"scing/internal/logging"
	"scing/pkg/audioconv"
)

func main() {
	cfgFile := cli.StringP("config", "c", "", "YAML session config")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	file := cli.StringP("file", "f", "", "Transcribe an audio file (wav, mp3, ogg, opus) instead of the microphone")
	saveWAV := cli.String("save-wav", "", "Write the captured clip to this WAV file")
	duration := cli.DurationP("duration", "d", 0, "Capture duration (overrides config)")
	cli.Parse()

	logging.Setup(os.Stdout, *logLevel)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *duration > 0 {
		cfg.Capture.Duration = *duration
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clip audio.Clip
	if *file != "" {
		samples, err := audioconv.DecodeFile(ctx, *file, audioconv.Options{SampleRate: audioconv.DefaultSampleRate})
		if err != nil {
			log.Error("Failed to decode file", "file", *file, "err", err)
			os.Exit(1)
		}
		clip = audio.Clip{Samples: samples, SampleRate: audioconv.DefaultSampleRate}
	} else {
		rec, closeAudio, err := app.Recorder(nil)
		if err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer closeAudio()

		log.Info("Listening", "duration", cfg.Capture.Duration)
		clip, err = rec.Record(ctx, cfg.Capture.Duration, cfg.Capture.SampleRate)
		if err != nil {
			log.Error("Failed to record", "err", err)
			os.Exit(1)
		}
	}

	log.Info("Recorded", "samples", len(clip.Samples), "duration", clip.Duration(), "rms", clip.RMS())

	if *saveWAV != "" {
		if err := audio.SaveWAV(*saveWAV, clip); err != nil {
			log.Error("Failed to save clip", "path", *saveWAV, "err", err)
			os.Exit(1)
		}
		log.Info("Saved clip", "path", *saveWAV)
	}

	handle, tr := app.Transcriber(cfg.Transcription)
	defer handle.Close()

	text, err := tr.Transcribe(ctx, clip)
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		os.Exit(1)
	}

	fmt.Println(text)
}
