package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the agent's Prometheus instruments. A nil *Metrics is
// valid and turns every observation into a no-op, so wiring stays optional.
type Metrics struct {
	TurnsTotal         *prometheus.CounterVec
	TurnDuration       prometheus.Histogram
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration prometheus.Histogram
	ToolCallsTotal     *prometheus.CounterVec
	ToolCallDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cierre_agent_turns_total",
				Help: "Conversation turns processed",
			},
			[]string{"status"},
		),
		TurnDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cierre_agent_turn_duration_seconds",
				Help:    "End-to-end turn duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		LLMRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cierre_agent_llm_requests_total",
				Help: "Language model invocations",
			},
			[]string{"status"},
		),
		LLMRequestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cierre_agent_llm_request_duration_seconds",
				Help:    "Language model invocation duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		ToolCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cierre_agent_tool_calls_total",
				Help: "Tool invocations dispatched by the registry",
			},
			[]string{"tool", "status"},
		),
		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cierre_agent_tool_call_duration_seconds",
				Help:    "Tool invocation duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"tool"},
		),
	}
}

func (m *Metrics) ObserveTurn(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(statusLabel(failed)).Inc()
	m.TurnDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveLLM(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(statusLabel(failed)).Inc()
	m.LLMRequestDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveTool(tool string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, statusLabel(failed)).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func statusLabel(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
