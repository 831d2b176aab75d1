// Package metrics records pipeline outcomes for monitoring: the final
// result code of every action and how long invocations take.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fatalapps/pageactor/pkg/actor/result"
)

// Metrics holds the pipeline's instruments. A nil *Metrics is a valid
// no-op recorder.
type Metrics struct {
	actionResults  *prometheus.CounterVec
	actionDuration prometheus.Histogram
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actionResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pageactor",
			Subsystem: "engine",
			Name:      "action_results_total",
			Help:      "Final result codes of executed actions, by action kind.",
		}, []string{"action", "code"}),
		actionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pageactor",
			Subsystem: "engine",
			Name:      "action_duration_seconds",
			Help:      "Wall time from action start to completion.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	reg.MustRegister(m.actionResults, m.actionDuration)
	return m
}

// RecordResult counts one completed action.
func (m *Metrics) RecordResult(action string, code result.Code) {
	if m == nil {
		return
	}
	m.actionResults.WithLabelValues(action, code.String()).Inc()
}

// ObserveDuration records one action's wall time.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.actionDuration.Observe(d.Seconds())
}
