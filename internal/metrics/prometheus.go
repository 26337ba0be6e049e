package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the Prometheus metrics of the voice session.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Turns         *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	SessionState  prometheus.Gauge

	GatewayAttempts *prometheus.CounterVec
	GatewayDegraded *prometheus.CounterVec

	DeviceStatus *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scing_turns_total",
			Help: "Session turns by outcome",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scing_stage_duration_seconds",
			Help:    "Time spent in each turn stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage"}),
		SessionState: f.NewGauge(prometheus.GaugeOpts{
			Name: "scing_session_state",
			Help: "Current session state as its numeric code",
		}),
		GatewayAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scing_gateway_attempts_total",
			Help: "Language model calls by model and result",
		}, []string{"model", "result"}),
		GatewayDegraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scing_gateway_degraded_total",
			Help: "Replies replaced by a fixed degraded message",
		}, []string{"reason"}),
		DeviceStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scing_audio_device_status_total",
			Help: "Non-ok status flags reported by the input device",
		}, []string{"status"}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Turn(outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) SetState(code int) {
	if m == nil {
		return
	}
	m.SessionState.Set(float64(code))
}

func (m *Metrics) GatewayAttempt(model, result string) {
	if m == nil {
		return
	}
	m.GatewayAttempts.WithLabelValues(model, result).Inc()
}

func (m *Metrics) Degraded(reason string) {
	if m == nil {
		return
	}
	m.GatewayDegraded.WithLabelValues(reason).Inc()
}

func (m *Metrics) Device(status string) {
	if m == nil {
		return
	}
	m.DeviceStatus.WithLabelValues(status).Inc()
}
