package multisend

import (
	"time"

	"github.com/iov-one/multisend/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects dispatch statistics.
type Metrics struct {
	submissions    *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	submitDuration prometheus.Histogram
}

// NewMetrics returns metrics registered with given registerer. Nil registerer
// creates metrics that are collected but never exposed.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multisend",
			Name:      "submissions_total",
			Help:      "Number of batch submission attempts, by result.",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multisend",
			Name:      "batch_outcomes_total",
			Help:      "Number of batches that reached a terminal state, by result.",
		}, []string{"result"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multisend",
			Name:      "decisions_total",
			Help:      "Number of decisions made for failed batches, by decision.",
		}, []string{"decision"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "multisend",
			Name:      "submit_duration_seconds",
			Help:      "Time it takes to sign, broadcast and confirm a batch.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.submissions, m.outcomes, m.decisions, m.submitDuration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrapf(errors.ErrState, "register collector: %s", err)
		}
	}
	return m, nil
}

// nopMetrics returns metrics that are not registered anywhere.
func nopMetrics() *Metrics {
	m, _ := NewMetrics(nil)
	return m
}

func (m *Metrics) submitted(success bool, took time.Duration) {
	m.submissions.WithLabelValues(resultLabel(success)).Inc()
	m.submitDuration.Observe(took.Seconds())
}

func (m *Metrics) outcome(success bool) {
	m.outcomes.WithLabelValues(resultLabel(success)).Inc()
}

func (m *Metrics) decided(d Decision) {
	m.decisions.WithLabelValues(d.String()).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
