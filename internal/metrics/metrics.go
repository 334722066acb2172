// Package metrics exposes Prometheus collectors for the planner server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry  *prometheus.Registry
	toolCalls *prometheus.CounterVec
	sessions  prometheus.Gauge
	feedSkips prometheus.Counter
}

// New builds a private registry so tests can create as many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lineup",
			Name:      "tool_calls_total",
			Help:      "MCP tool invocations by tool and result.",
		}, []string{"tool", "result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lineup",
			Name:      "sessions_open",
			Help:      "Planner sessions currently open.",
		}),
		feedSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lineup",
			Name:      "feed_records_skipped_total",
			Help:      "Malformed snapshot records excluded while opening sessions.",
		}),
	}
	m.registry.MustRegister(
		m.toolCalls,
		m.sessions,
		m.feedSkips,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveTool counts one call. A nil err counts as "ok".
func (m *Metrics) ObserveTool(tool string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.toolCalls.WithLabelValues(tool, result).Inc()
}

func (m *Metrics) SetSessions(n int) { m.sessions.Set(float64(n)) }

func (m *Metrics) AddFeedSkips(n int) { m.feedSkips.Add(float64(n)) }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
