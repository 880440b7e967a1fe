// Package metrics exposes the Prometheus counters of the access backend.
// Every method is safe on a nil *Metrics so components can run without
// instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "folio"

type Metrics struct {
	actions     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	codesIssued prometheus.Counter
	emails      *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	reports     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		actions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Dispatched actions by outcome.",
			},
			[]string{"action", "outcome"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Time spent handling an action.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		codesIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codes_issued_total",
			Help:      "Access codes allocated.",
		}),
		emails: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Outbound emails by kind and status.",
			},
			[]string{"kind", "status"},
		),
		rateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter.",
			},
			[]string{"action"},
		),
		reports: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "daily_reports_total",
				Help:      "Daily report runs by status.",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) ObserveAction(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Metrics) CodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

func (m *Metrics) EmailSent(kind string, err error) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(kind, status(err)).Inc()
}

func (m *Metrics) RateLimited(action string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(action).Inc()
}

func (m *Metrics) ReportSent(err error) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
