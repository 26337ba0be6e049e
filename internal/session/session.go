// Package session runs the listen, transcribe, respond, speak loop.
package session

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scing/internal/audio"
	"scing/internal/gateway"
	"scing/internal/metrics"
	"scing/internal/tts"
	"scing/pkg/stt"
)

type Capturer interface {
	Record(ctx context.Context, d time.Duration, sampleRate int) (audio.Clip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (string, error)
}

// Responder never fails; degraded replies are still replies.
type Responder interface {
	Respond(ctx context.Context, text string) gateway.Reply
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Cue interface {
	Play(ctx context.Context) error
}

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, t Turn) error
}

// Config of the loop. Timeouts of 0 leave the step unbounded.
type Config struct {
	ClipDuration time.Duration
	SampleRate   int
	ExitPhrases  []string

	CaptureTimeout    time.Duration
	TranscribeTimeout time.Duration
	RespondTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		ClipDuration: 5 * time.Second,
		SampleRate:   16000,
		ExitPhrases:  []string{"exit", "quit"},
	}
}

// Resources are loaded once per session and shared by every turn.
type Resources struct {
	Model *stt.Handle
	Voice *tts.Vocalizer
}

func (r Resources) Close() error {
	var errs []error
	if r.Model != nil {
		if err := r.Model.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close model: %w", err))
		}
	}
	if r.Voice != nil {
		if err := r.Voice.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close voice: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Deps are the collaborators of a Loop. Cue, Ducker, Publisher and Metrics
// are optional.
type Deps struct {
	Capture    Capturer
	Transcribe Transcriber
	Respond    Responder
	Speak      Speaker

	Cue       Cue
	Ducker    Ducker
	Publisher Publisher
	Metrics   *metrics.Metrics

	Resources Resources
}

// Turn is one completed exchange.
type Turn struct {
	ID        uuid.UUID     `json:"id"`
	Utterance string        `json:"utterance"`
	Reply     string        `json:"reply"`
	Model     string        `json:"model,omitempty"`
	Attempts  int           `json:"attempts"`
	Degraded  bool          `json:"degraded"`
	Started   time.Time     `json:"started"`
	Elapsed   time.Duration `json:"elapsed"`
}

type Loop struct {
	cfg   Config
	deps  Deps
	state atomic.Int32
}

func New(cfg Config, deps Deps) *Loop {
	return &Loop{cfg: cfg, deps: deps}
}

// State may be called from any goroutine.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	l.deps.Metrics.SetState(int(s))
	log.Debug("Session state", "state", s)
}

// Run repeats turns until an exit phrase is heard, ctx is cancelled or a
// component fails. Cancellation is a normal stop and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			l.cancelled()
			return nil
		}

		t, exit, err := l.Turn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.cancelled()
				return nil
			}
			l.setState(Idle)
			l.deps.Metrics.Turn("error")
			return err
		}
		if exit {
			log.Info("Exit phrase heard, stopping", "utterance", t.Utterance)
			return nil
		}
	}
}

func (l *Loop) cancelled() {
	l.setState(Cancelled)
	log.Info("Session cancelled")
}

// Turn runs a single iteration. exit is true when the utterance was an exit
// phrase; in that case no reply is requested or spoken.
func (l *Loop) Turn(ctx context.Context) (t Turn, exit bool, err error) {
	t = Turn{ID: uuid.New(), Started: time.Now()}
	defer func() { t.Elapsed = time.Since(t.Started) }()

	clip, err := l.listen(ctx)
	if err != nil {
		return t, false, err
	}

	l.setState(Transcribing)
	text, err := l.transcribe(ctx, clip)
	if err != nil {
		return t, false, fmt.Errorf("transcribe: %w", err)
	}
	t.Utterance = text
	log.Info("Transcribed", "text", text)

	if IsExitPhrase(text, l.cfg.ExitPhrases) {
		l.setState(ExitRequested)
		l.deps.Metrics.Turn("exit")
		return t, true, nil
	}

	if text == "" {
		l.setState(Idle)
		l.deps.Metrics.Turn("empty")
		return t, false, nil
	}

	l.setState(Responding)
	reply := l.respond(ctx, text)
	if err := ctx.Err(); err != nil {
		return t, false, err
	}
	t.Reply = reply.Text
	t.Model = reply.Model
	t.Attempts = reply.Attempts
	t.Degraded = reply.Degraded
	log.Info("Reply", "text", reply.Text, "model", reply.Model, "attempts", reply.Attempts)

	l.setState(Speaking)
	start := time.Now()
	if err := l.deps.Speak.Speak(ctx, reply.Text); err != nil {
		return t, false, err
	}
	l.deps.Metrics.ObserveStage("speak", time.Since(start))

	l.setState(Idle)
	if reply.Degraded {
		l.deps.Metrics.Turn("degraded")
	} else {
		l.deps.Metrics.Turn("ok")
	}

	if l.deps.Publisher != nil {
		t.Elapsed = time.Since(t.Started)
		if err := l.deps.Publisher.Publish(ctx, t); err != nil {
			log.Warn("Failed to publish turn", "id", t.ID, "err", err)
		}
	}

	return t, false, nil
}

func (l *Loop) listen(ctx context.Context) (audio.Clip, error) {
	l.setState(Listening)

	if l.deps.Cue != nil {
		if err := l.deps.Cue.Play(ctx); err != nil {
			if ctx.Err() != nil {
				return audio.Clip{}, ctx.Err()
			}
			log.Warn("Failed to play cue", "err", err)
		}
	}

	if l.deps.Ducker != nil {
		if err := l.deps.Ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck playback", "err", err)
		}
		defer func() {
			if err := l.deps.Ducker.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore playback", "err", err)
			}
		}()
	}

	cctx, cancel := withTimeout(ctx, l.cfg.CaptureTimeout)
	defer cancel()

	start := time.Now()
	clip, err := l.deps.Capture.Record(cctx, l.cfg.ClipDuration, l.cfg.SampleRate)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("capture: %w", err)
	}
	l.deps.Metrics.ObserveStage("capture", time.Since(start))
	log.Debug("Recorded", "samples", len(clip.Samples), "rms", clip.RMS())

	return clip, nil
}

func (l *Loop) transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	tctx, cancel := withTimeout(ctx, l.cfg.TranscribeTimeout)
	defer cancel()

	start := time.Now()
	text, err := l.deps.Transcribe.Transcribe(tctx, clip)
	l.deps.Metrics.ObserveStage("transcribe", time.Since(start))
	return text, err
}

func (l *Loop) respond(ctx context.Context, text string) gateway.Reply {
	rctx, cancel := withTimeout(ctx, l.cfg.RespondTimeout)
	defer cancel()

	start := time.Now()
	reply := l.deps.Respond.Respond(rctx, text)
	l.deps.Metrics.ObserveStage("respond", time.Since(start))
	return reply
}

// Close releases the session resources.
func (l *Loop) Close() error {
	return l.deps.Resources.Close()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// IsExitPhrase matches text against phrases ignoring case, surrounding
// whitespace and trailing punctuation ("Exit." is an exit phrase).
func IsExitPhrase(text string, phrases []string) bool {
	norm := normalize(text)
	if norm == "" {
		return false
	}
	for _, p := range phrases {
		if norm == normalize(p) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(strings.TrimRight(s, ".!?,;: "))
}
