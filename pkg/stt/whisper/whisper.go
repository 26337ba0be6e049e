// Package whisper runs whisper.cpp models through the official Go bindings.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"scing/pkg/stt"
)

// ModelPath maps a model name such as "base" to <dir>/ggml-base.bin.
// Names that already look like a path are returned unchanged.
func ModelPath(dir, name string) string {
	if strings.ContainsRune(name, filepath.Separator) || strings.HasSuffix(name, ".bin") {
		return name
	}
	return filepath.Join(dir, "ggml-"+name+".bin")
}

// Loader returns an stt.Loader resolving model names inside dir.
func Loader(dir string) stt.Loader {
	return func(name string) (stt.Model, error) {
		path := ModelPath(dir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		m, err := whisper.New(path)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		return &model{m: m}, nil
	}
}

type model struct {
	m whisper.Model
}

func (w *model) Close() error {
	return w.m.Close()
}

// TranscribePCM decodes the whole buffer in one pass; whisper.cpp runs in
// its default full-precision CPU mode.
func (w *model) TranscribePCM(ctx context.Context, pcm16k []float32, opt stt.Options) (stt.Result, error) {
	if len(pcm16k) == 0 {
		return stt.Result{}, errors.New("no audio samples provided")
	}

	wctx, err := w.m.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("new context: %w", err)
	}

	lang := opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return stt.Result{}, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("process: %w", err)
	}

	var (
		segs  []stt.Segment
		texts []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return stt.Result{}, err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("next segment: %w", err)
		}

		segs = append(segs, stt.Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
		if t := strings.TrimSpace(s.Text); t != "" {
			texts = append(texts, t)
		}
	}

	lang = wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}

	return stt.Result{
		Text:     strings.Join(texts, " "),
		Segments: segs,
		Language: lang,
	}, nil
}
