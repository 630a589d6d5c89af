package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickchristie/gentloop"
)

// Namespace prefixes every metric name.
const Namespace = "gentloop"

// MetricsSubscriber turns loop events into Prometheus metrics on its own
// registry. Subagent loops are labelled with depth "child".
type MetricsSubscriber struct {
	registry *prometheus.Registry

	loops           *prometheus.CounterVec
	steps           *prometheus.CounterVec
	toolCalls       *prometheus.CounterVec
	rejectedCalls   prometheus.Counter
	budgetExhausted prometheus.Counter
	tokens          *prometheus.CounterVec
	loopDuration    *prometheus.HistogramVec
	toolDuration    *prometheus.HistogramVec
}

// NewMetricsSubscriber creates the subscriber and registers its collectors.
func NewMetricsSubscriber() *MetricsSubscriber {
	m := &MetricsSubscriber{
		registry: prometheus.NewRegistry(),
		loops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "loops_total",
			Help:      "Loop runs by terminal status.",
		}, []string{"status", "depth"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "steps_total",
			Help:      "Completed steps by decision kind.",
		}, []string{"decision"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		rejectedCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rejected_calls_total",
			Help:      "Proposed tool calls that failed validation.",
		}),
		budgetExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "budget_exhausted_total",
			Help:      "Loops suspended by their budget.",
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by drivers.",
		}, []string{"direction"}),
		loopDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "loop_duration_seconds",
			Help:      "Wall-clock duration of loop runs.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"depth"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	m.registry.MustRegister(
		m.loops, m.steps, m.toolCalls, m.rejectedCalls,
		m.budgetExhausted, m.tokens, m.loopDuration, m.toolDuration,
	)
	return m
}

// Registry returns the registry holding the subscriber's collectors.
func (m *MetricsSubscriber) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *MetricsSubscriber) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func depth(parentAgentID string) string {
	if parentAgentID == "" {
		return "root"
	}
	return "child"
}

func (m *MetricsSubscriber) OnStep(e *gentloop.StepEvent) {
	kind := string(e.Step.Decision.Kind)
	if kind == "" {
		kind = "none"
	}
	m.steps.WithLabelValues(kind).Inc()
	m.tokens.WithLabelValues("input").Add(float64(e.Step.Usage.InputTokens))
	m.tokens.WithLabelValues("output").Add(float64(e.Step.Usage.OutputTokens))
}

func (m *MetricsSubscriber) OnToolExecution(e *gentloop.ToolExecutionEvent) {
	outcome := "ok"
	switch {
	case gentloop.IsFatal(e.Execution.Err):
		outcome = "fatal"
	case e.Execution.HasError():
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(e.Execution.Call.Name, outcome).Inc()
	m.toolDuration.WithLabelValues(e.Execution.Call.Name).Observe(e.Duration.Seconds())
}

func (m *MetricsSubscriber) OnCallRejected(*gentloop.CallRejectedEvent) {
	m.rejectedCalls.Inc()
}

func (m *MetricsSubscriber) OnBudgetExhausted(*gentloop.BudgetExhaustedEvent) {
	m.budgetExhausted.Inc()
}

func (m *MetricsSubscriber) OnLoopEnd(e *gentloop.LoopEndEvent) {
	d := depth(e.ParentAgentID)
	m.loops.WithLabelValues(string(e.Status), d).Inc()
	m.loopDuration.WithLabelValues(d).Observe(e.Duration.Seconds())
}
