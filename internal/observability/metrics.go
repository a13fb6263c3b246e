// Package observability holds the runtime's Prometheus metrics, scoped to
// the Agent Loop, Mesh Coordinator, and LLM Proxy — the three workers
// named in spec.md §5. Grounded on haasonsaas/nexus's
// internal/observability/metrics.go promauto construction pattern.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide metric set, safe for concurrent use from
// all three workers.
type Metrics struct {
	// LLMRequestCounter counts provider calls. Labels: provider, model, status.
	LLMRequestCounter *prometheus.CounterVec

	// LLMRequestDuration measures provider call latency in seconds.
	// Labels: provider, model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed tracks token consumption. Labels: provider, model, kind (prompt|completion).
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool dispatches. Labels: tool, status.
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool dispatch latency in seconds. Labels: tool.
	ToolExecutionDuration *prometheus.HistogramVec

	// MeshDispatchCounter counts Captain-side dispatches. Labels: tool, node, status.
	MeshDispatchCounter *prometheus.CounterVec

	// MeshDispatchDuration measures Captain-side dispatch latency in seconds. Labels: tool.
	MeshDispatchDuration *prometheus.HistogramVec

	// MeshHealthyNodes gauges the current count of healthy Crew nodes.
	MeshHealthyNodes prometheus.Gauge

	// ProxyRequestCounter counts proxy requests. Labels: route, status_code.
	ProxyRequestCounter *prometheus.CounterVec

	// ProxyRequestDuration measures proxy request latency in seconds. Labels: route.
	ProxyRequestDuration *prometheus.HistogramVec

	// ProxyBudgetRejections counts 429s issued for exceeded daily budgets. Labels: caller.
	ProxyBudgetRejections *prometheus.CounterVec
}

// NewMetrics registers and returns the full metric set against the
// default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fathom_llm_requests_total",
				Help: "Total number of LLM provider calls by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fathom_llm_request_duration_seconds",
				Help:    "Duration of LLM provider calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),
		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fathom_llm_tokens_total",
				Help: "Total tokens consumed by provider, model, and kind",
			},
			[]string{"provider", "model", "kind"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fathom_tool_executions_total",
				Help: "Total tool dispatches by tool name and status",
			},
			[]string{"tool", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fathom_tool_execution_duration_seconds",
				Help:    "Duration of tool dispatches in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool"},
		),
		MeshDispatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fathom_mesh_dispatches_total",
				Help: "Total Captain-side mesh dispatches by tool, node, and status",
			},
			[]string{"tool", "node", "status"},
		),
		MeshDispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fathom_mesh_dispatch_duration_seconds",
				Help:    "Duration of Captain-side mesh dispatches in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		MeshHealthyNodes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fathom_mesh_healthy_nodes",
				Help: "Current count of healthy Crew nodes",
			},
		),
		ProxyRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fathom_proxy_requests_total",
				Help: "Total proxy requests by route and status code",
			},
			[]string{"route", "status_code"},
		),
		ProxyRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fathom_proxy_request_duration_seconds",
				Help:    "Duration of proxy requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"route"},
		),
		ProxyBudgetRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fathom_proxy_budget_rejections_total",
				Help: "Total 429 responses issued for exceeded daily token budgets",
			},
			[]string{"caller"},
		),
	}
}
