// Package metrics exports budget activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/agentguard/budget"
)

// Collector is a budget.Observer that records Prometheus metrics. One
// Collector can observe any number of budgets.
type Collector struct {
	steps            prometheus.Counter
	toolCalls        prometheus.Counter
	tokens           prometheus.Counter
	usageUnavailable prometheus.Counter
	terminations     *prometheus.CounterVec
	exhausted        *prometheus.CounterVec
	overshoot        prometheus.Histogram
}

var _ budget.Observer = (*Collector)(nil)

// NewCollector registers the budget metrics on reg under namespace.
// Registration panics on duplicate metrics, like promauto.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		steps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "steps_total",
			Help:      "Total number of guarded model calls that passed the budget checks",
		}),
		toolCalls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "tool_calls_total",
			Help:      "Total number of recorded tool calls",
		}),
		tokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "tokens_total",
			Help:      "Total number of tokens reported by providers",
		}),
		usageUnavailable: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "usage_unavailable_total",
			Help:      "Successful calls whose response carried no usable token usage",
		}),
		terminations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "terminations_total",
			Help:      "Executions terminated after crossing a limit",
		}, []string{"reason"}),
		exhausted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "exhausted_total",
			Help:      "Budget errors returned to callers",
		}, []string{"reason"}),
		overshoot: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "token_overshoot",
			Help:      "Tokens used beyond max_tokens when the token limit was crossed",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}
}

// StepConsumed implements budget.Observer.
func (c *Collector) StepConsumed(budget.Snapshot) { c.steps.Inc() }

// UsageRecorded implements budget.Observer.
func (c *Collector) UsageRecorded(_ budget.Snapshot, tokens int, available bool) {
	if !available {
		c.usageUnavailable.Inc()
		return
	}
	c.tokens.Add(float64(tokens))
}

// ToolCallRecorded implements budget.Observer.
func (c *Collector) ToolCallRecorded(budget.Snapshot) { c.toolCalls.Inc() }

// TerminationRecorded implements budget.Observer.
func (c *Collector) TerminationRecorded(reason budget.Reason, s budget.Snapshot) {
	c.terminations.WithLabelValues(string(reason)).Inc()
	c.overshoot.Observe(float64(s.Overshoot))
}

// Exhausted implements budget.Observer.
func (c *Collector) Exhausted(err *budget.Error) {
	c.exhausted.WithLabelValues(string(err.Reason)).Inc()
}
