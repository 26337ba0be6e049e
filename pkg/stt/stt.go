package stt

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"

	"scing/internal/audio"
	"scing/pkg/audioconv/resample"
)

// ModelSampleRate is the rate every speech model expects.
const ModelSampleRate = 16000

// ErrBackendUnavailable is returned for every transcription once the model
// failed to load.
var ErrBackendUnavailable = errors.New("transcription backend unavailable")

type Options struct {
	Language      string // e.g. "auto", "en", "ru"
	TranslateToEn bool
	Threads       int    // <=0 => NumCPU()
	InitialPrompt string // optional prefix prompt
	BeamSize      int    // 0 = greedy
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced
}

// Model is a loaded speech-to-text model. pcm16k is mono float32 in [-1, 1].
type Model interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error)
	Close() error
}

// Loader loads a model by name, e.g. "base".
type Loader func(name string) (Model, error)

// Handle loads its model on first use and hands out the same instance after.
type Handle struct {
	name string
	load Loader

	once  sync.Once
	model Model
	err   error
}

func NewHandle(name string, load Loader) *Handle {
	return &Handle{name: name, load: load}
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) Get() (Model, error) {
	h.once.Do(func() {
		log.Debug("Loading speech model", "model", h.name)
		m, err := h.load(h.name)
		if err != nil {
			h.err = fmt.Errorf("%w: load %q: %w", ErrBackendUnavailable, h.name, err)
			return
		}
		h.model = m
	})
	return h.model, h.err
}

// Close releases the model if it was ever loaded.
func (h *Handle) Close() error {
	h.once.Do(func() { h.err = errors.New("speech model handle closed") })
	if h.model == nil {
		return nil
	}
	return h.model.Close()
}

type Transcriber struct {
	handle *Handle
	opt    Options
}

func NewTranscriber(handle *Handle, opt Options) *Transcriber {
	return &Transcriber{handle: handle, opt: opt}
}

// Transcribe runs the model over the whole clip. A result with no text is
// returned as "" without error.
func (t *Transcriber) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	model, err := t.handle.Get()
	if err != nil {
		return "", err
	}

	if len(clip.Samples) == 0 {
		return "", nil
	}

	pcm := resample.Linear(clip.Samples, clip.SampleRate, ModelSampleRate)

	res, err := model.TranscribePCM(ctx, pcm, t.opt)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	return strings.TrimSpace(res.Text), nil
}
