package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utopium/chatflow/pkg/domain"
)

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	registry *prometheus.Registry

	Inputs       *prometheus.CounterVec
	StepEntries  *prometheus.CounterVec
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		Inputs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utopium_inputs_total",
				Help: "User inputs accepted, by the flow that handled them",
			},
			[]string{"flow"},
		),
		StepEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utopium_step_entries_total",
				Help: "Conversation positions entered",
			},
			[]string{"flow", "step"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utopium_tool_calls_total",
				Help: "Side-effects completed, by outcome",
			},
			[]string{"tool", "outcome"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "utopium_tool_duration_seconds",
				Help:    "Duration of side-effect executions",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"tool"},
		),
	}
	reg.MustRegister(m.Inputs, m.StepEntries, m.ToolCalls, m.ToolDuration)
	return m
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInput: func(_ context.Context, e *domain.InputEvent) {
			m.Inputs.WithLabelValues(string(e.Flow)).Inc()
		},
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.StepEntries.WithLabelValues(string(e.Flow), e.Step).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.ToolCalls.WithLabelValues(e.ToolName, outcome).Inc()
			m.ToolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
