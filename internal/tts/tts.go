package tts

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"
)

// Settings are applied once when an engine is created.
type Settings struct {
	Rate   int     // words per minute
	Volume float64 // 0..1
	Voice  string
}

// Engine speaks text and returns once playback has finished.
type Engine interface {
	Say(ctx context.Context, text string) error
	Close() error
}

// Vocalizer speaks replies on an engine that lives for the whole process.
type Vocalizer struct {
	engine Engine
}

func NewVocalizer(engine Engine) *Vocalizer {
	return &Vocalizer{engine: engine}
}

// Speak blocks until the text has been played. Engine errors are returned
// unchanged to the caller.
func (v *Vocalizer) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	start := time.Now()
	if err := v.engine.Say(ctx, text); err != nil {
		return fmt.Errorf("speak: %w", err)
	}

	log.Debug("Spoke reply", "chars", len(text), "took", time.Since(start))
	return nil
}

func (v *Vocalizer) Close() error {
	return v.engine.Close()
}
