// Package gateway turns a transcribed utterance into a spoken reply using a
// chat model, retrying once on a fallback model when the primary is out of
// quota. Callers always get a speakable reply; backend errors are only logged.
package gateway

import (
	"context"
	log "log/slog"

	"scing/internal/config"
	"scing/internal/metrics"
)

const (
	Persona = "You are Scing, a friendly voice assistant. " +
		"Answer in one to three short sentences that sound natural when spoken aloud. " +
		"Do not use markdown, lists or code."

	Temperature = 0.7

	MissingCredentialReply = "I can't reach my language model because no OpenAI API key is configured. " +
		"Please set OPENAI_API_KEY and try again."
	TroubleConnectingReply = "Sorry, I'm having trouble connecting right now. Please try again in a moment."
)

type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
}

// Backend performs one chat completion. Errors should carry enough detail
// for IsQuotaExceeded to classify them.
type Backend interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

type Reply struct {
	Text     string
	Model    string // model that produced Text; empty when degraded
	Attempts int
	Degraded bool
}

type Gateway struct {
	cfg     config.Gateway
	backend Backend
	metrics *metrics.Metrics
}

func New(cfg config.Gateway, backend Backend, m *metrics.Metrics) *Gateway {
	if cfg.Debug {
		log.Info("Resolved language model", "model", cfg.Model, "fallback", cfg.FallbackModel)
	}
	return &Gateway{cfg: cfg, backend: backend, metrics: m}
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeQuota
	outcomeFailure
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSuccess:
		return "success"
	case outcomeQuota:
		return "quota"
	default:
		return "failure"
	}
}

type outcome struct {
	kind outcomeKind
	text string
	err  error
}

func (g *Gateway) call(ctx context.Context, model, text string) outcome {
	out, err := g.backend.Complete(ctx, ChatRequest{
		Model:       model,
		System:      Persona,
		User:        text,
		Temperature: Temperature,
	})

	var o outcome
	switch {
	case err == nil:
		o = outcome{kind: outcomeSuccess, text: out}
	case IsQuotaExceeded(err):
		o = outcome{kind: outcomeQuota, err: err}
	default:
		o = outcome{kind: outcomeFailure, err: err}
	}

	g.metrics.GatewayAttempt(model, o.kind.String())
	return o
}

// Respond never fails: missing credentials and backend failures are mapped
// to fixed replies.
func (g *Gateway) Respond(ctx context.Context, text string) Reply {
	if !g.cfg.HasCredential() {
		log.Warn("OPENAI_API_KEY not set, skipping language model call")
		g.metrics.Degraded("missing_credential")
		return Reply{Text: MissingCredentialReply, Degraded: true}
	}

	primary := g.call(ctx, g.cfg.Model, text)
	if primary.kind == outcomeSuccess {
		return Reply{Text: primary.text, Model: g.cfg.Model, Attempts: 1}
	}

	if primary.kind != outcomeQuota || !g.hasFallback() {
		log.Error("Language model call failed", "model", g.cfg.Model, "kind", primary.kind, "err", primary.err)
		return g.degrade(1)
	}

	log.Warn("Quota exceeded, retrying on fallback model",
		"model", g.cfg.Model, "fallback", g.cfg.FallbackModel, "err", primary.err)

	fallback := g.call(ctx, g.cfg.FallbackModel, text)
	if fallback.kind == outcomeSuccess {
		return Reply{Text: fallback.text, Model: g.cfg.FallbackModel, Attempts: 2}
	}

	log.Error("Fallback model call failed", "model", g.cfg.FallbackModel, "kind", fallback.kind, "err", fallback.err)
	return g.degrade(2)
}

func (g *Gateway) hasFallback() bool {
	return g.cfg.FallbackModel != "" && g.cfg.FallbackModel != g.cfg.Model
}

func (g *Gateway) degrade(attempts int) Reply {
	g.metrics.Degraded("trouble_connecting")
	return Reply{Text: TroubleConnectingReply, Attempts: attempts, Degraded: true}
}
