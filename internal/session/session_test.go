package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scing/internal/audio"
	"scing/internal/gateway"
	"scing/internal/metrics"
)

type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, s)
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeCapture struct {
	ev     *events
	calls  int
	states []State
	loop   *Loop
	// onCall may replace the result of the n-th call (1-based).
	onCall func(n int) error
}

func (c *fakeCapture) Record(ctx context.Context, d time.Duration, rate int) (audio.Clip, error) {
	c.calls++
	c.ev.add("record")
	if c.loop != nil {
		c.states = append(c.states, c.loop.State())
	}
	if c.onCall != nil {
		if err := c.onCall(c.calls); err != nil {
			return audio.Clip{}, err
		}
	}
	return audio.Clip{
		Samples:    make([]float32, audio.SampleCount(d, rate)),
		SampleRate: rate,
		Blocks:     audio.BlockCount(d, rate),
	}, nil
}

type fakeTranscriber struct {
	texts []string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, audio.Clip) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	i := f.calls
	f.calls++
	if i >= len(f.texts) {
		return "exit", nil
	}
	return f.texts[i], nil
}

type fakeResponder struct {
	reply     gateway.Reply
	got       []string
	onRespond func()
}

func (f *fakeResponder) Respond(_ context.Context, text string) gateway.Reply {
	f.got = append(f.got, text)
	if f.onRespond != nil {
		f.onRespond()
	}
	return f.reply
}

type fakeSpeaker struct {
	ev      *events
	said    []string
	err     error
	onSpeak func(ctx context.Context) error
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.ev.add("speak")
	if f.onSpeak != nil {
		if err := f.onSpeak(ctx); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	f.said = append(f.said, text)
	return nil
}

type fakeCue struct{ ev *events }

func (c fakeCue) Play(context.Context) error {
	c.ev.add("cue")
	return nil
}

type fakeDucker struct{ ev *events }

func (d fakeDucker) Duck(context.Context) error {
	d.ev.add("duck")
	return nil
}

func (d fakeDucker) Restore(context.Context) error {
	d.ev.add("restore")
	return nil
}

type fakePublisher struct{ turns []Turn }

func (p *fakePublisher) Publish(_ context.Context, t Turn) error {
	p.turns = append(p.turns, t)
	return nil
}

type harness struct {
	ev      *events
	capture *fakeCapture
	stt     *fakeTranscriber
	gw      *fakeResponder
	voice   *fakeSpeaker
	loop    *Loop
}

func newHarness(texts ...string) *harness {
	ev := &events{}
	h := &harness{
		ev:      ev,
		capture: &fakeCapture{ev: ev},
		stt:     &fakeTranscriber{texts: texts},
		gw:      &fakeResponder{reply: gateway.Reply{Text: "I am Scing.", Model: "gpt-4o-mini", Attempts: 1}},
		voice:   &fakeSpeaker{ev: ev},
	}
	h.loop = New(DefaultConfig(), Deps{
		Capture:    h.capture,
		Transcribe: h.stt,
		Respond:    h.gw,
		Speak:      h.voice,
	})
	h.capture.loop = h.loop
	return h
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness("What are you?", "exit")

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, []string{"What are you?"}, h.gw.got)
	assert.Equal(t, []string{"I am Scing."}, h.voice.said)
	assert.Equal(t, 2, h.capture.calls, "loop returns to capture after speaking")
	assert.Equal(t, []State{Listening, Listening}, h.capture.states)
	assert.Equal(t, ExitRequested, h.loop.State())
}

func TestExitPhraseSkipsGatewayAndVoice(t *testing.T) {
	for _, text := range []string{"  Exit ", "Exit.", "QUIT", "quit!"} {
		t.Run(text, func(t *testing.T) {
			h := newHarness(text)

			require.NoError(t, h.loop.Run(context.Background()))

			assert.Empty(t, h.gw.got)
			assert.Empty(t, h.voice.said)
			assert.Equal(t, 1, h.capture.calls)
			assert.Equal(t, ExitRequested, h.loop.State())
		})
	}
}

func TestIsExitPhrase(t *testing.T) {
	phrases := []string{"exit", "quit"}
	tests := []struct {
		text string
		want bool
	}{
		{"exit", true},
		{" Exit. ", true},
		{"QUIT?", true},
		{"exit now", false},
		{"", false},
		{"...", false},
		{"Quitting", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsExitPhrase(tt.text, phrases), "%q", tt.text)
	}
}

// Silence transcribes to "", which would otherwise cost a model call and a
// spoken reply to nothing. The loop goes straight back to listening.
func TestEmptyUtteranceSkipsGateway(t *testing.T) {
	h := newHarness("", "", "quit")

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Empty(t, h.gw.got)
	assert.Empty(t, h.voice.said)
	assert.Equal(t, 3, h.capture.calls)
}

func TestCancelledBeforeStart(t *testing.T) {
	h := newHarness("hello")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.loop.Run(ctx))

	assert.Zero(t, h.capture.calls)
	assert.Equal(t, Cancelled, h.loop.State())
}

func TestCancelDuringCapture(t *testing.T) {
	h := newHarness("hello", "hello again")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.capture.onCall = func(n int) error {
		if n == 2 {
			cancel()
			return fmt.Errorf("%w: %w", audio.ErrIncompleteClip, ctx.Err())
		}
		return nil
	}

	require.NoError(t, h.loop.Run(ctx))

	assert.Equal(t, 2, h.capture.calls)
	assert.Equal(t, []string{"I am Scing."}, h.voice.said)
	assert.Equal(t, Cancelled, h.loop.State())
}

func TestCancelDuringRespondSkipsSpeaking(t *testing.T) {
	h := newHarness("What are you?", "exit")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the reply still arrives, as the gateway never fails
	h.gw.onRespond = cancel

	require.NoError(t, h.loop.Run(ctx))

	assert.Equal(t, []string{"What are you?"}, h.gw.got)
	assert.Empty(t, h.voice.said)
	assert.Equal(t, 1, h.capture.calls)
	assert.Equal(t, Cancelled, h.loop.State())
}

func TestCancelDuringSpeaking(t *testing.T) {
	h := newHarness("What are you?", "exit")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.voice.onSpeak = func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}

	require.NoError(t, h.loop.Run(ctx))

	assert.Empty(t, h.voice.said)
	assert.Equal(t, 1, h.capture.calls)
	assert.Equal(t, Cancelled, h.loop.State())
}

func TestComponentErrorsEndRun(t *testing.T) {
	boom := errors.New("boom")

	t.Run("capture", func(t *testing.T) {
		h := newHarness("hello")
		devErr := &audio.DeviceError{Op: "open", Err: boom}
		h.capture.onCall = func(int) error { return devErr }

		err := h.loop.Run(context.Background())
		var de *audio.DeviceError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "open", de.Op)
		assert.Equal(t, Idle, h.loop.State())
	})

	t.Run("transcribe", func(t *testing.T) {
		h := newHarness("hello")
		h.stt.err = boom

		err := h.loop.Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, h.gw.got)
	})

	t.Run("vocalizer", func(t *testing.T) {
		h := newHarness("hello")
		h.voice.err = boom

		err := h.loop.Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"hello"}, h.gw.got)
		assert.Equal(t, 1, h.capture.calls)
	})
}

func TestDegradedReplyIsSpoken(t *testing.T) {
	h := newHarness("hello", "exit")
	h.gw.reply = gateway.Reply{Text: gateway.TroubleConnectingReply, Attempts: 2, Degraded: true}

	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, []string{gateway.TroubleConnectingReply}, h.voice.said)
}

func TestCueAndDuckingWrapCapture(t *testing.T) {
	h := newHarness("hello", "exit")
	h.loop.deps.Cue = fakeCue{ev: h.ev}
	h.loop.deps.Ducker = fakeDucker{ev: h.ev}

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, []string{
		"cue", "duck", "record", "restore", "speak",
		"cue", "duck", "record", "restore",
	}, h.ev.all())
}

func TestTurnIsPublished(t *testing.T) {
	h := newHarness("What are you?", "exit")
	pub := &fakePublisher{}
	h.loop.deps.Publisher = pub

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, pub.turns, 1)
	turn := pub.turns[0]
	assert.Equal(t, "What are you?", turn.Utterance)
	assert.Equal(t, "I am Scing.", turn.Reply)
	assert.Equal(t, "gpt-4o-mini", turn.Model)
	assert.Equal(t, 1, turn.Attempts)
	assert.NotZero(t, turn.ID)
	assert.False(t, turn.Started.IsZero())
}

func TestTurnMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	h := newHarness("hello", "", "exit")
	h.loop.deps.Metrics = m

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("exit")))
	assert.Equal(t, float64(ExitRequested), testutil.ToFloat64(m.SessionState))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "listening", Listening.String())
	assert.Equal(t, "exit_requested", ExitRequested.String())
	assert.Equal(t, "unknown", State(42).String())
}
