package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all prometheus metrics for the impact service.
// uses a custom registry to avoid polluting the global namespace.
type Metrics struct {
	Registry *prometheus.Registry

	// http_request_duration_seconds - histogram for api latency
	HTTPRequestDuration *prometheus.HistogramVec

	// impact_score_submissions_total - counter for accepted submissions per dimension
	ScoreSubmissionsTotal *prometheus.CounterVec

	// impact_update_conflicts_total - counter for optimistic concurrency retries
	UpdateConflictsTotal prometheus.Counter

	// impact_score_update_duration_seconds - histogram for the full update path
	ScoreUpdateDuration prometheus.Histogram
}

// New creates and registers all prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	// add standard go runtime and process collectors
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		ScoreSubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "impact_score_submissions_total",
				Help: "Total number of accepted score submissions",
			},
			[]string{"dimension"},
		),

		UpdateConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "impact_update_conflicts_total",
			Help: "Total number of score update transactions retried after a version conflict",
		}),

		ScoreUpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "impact_score_update_duration_seconds",
			Help:    "Duration of score update requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
	}

	// register all custom metrics
	reg.MustRegister(
		m.HTTPRequestDuration,
		m.ScoreSubmissionsTotal,
		m.UpdateConflictsTotal,
		m.ScoreUpdateDuration,
	)

	return m
}

// RecordHTTPRequest records the duration of an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}

// RecordScoreSubmission increments the submissions counter for a dimension.
func (m *Metrics) RecordScoreSubmission(dimension string) {
	m.ScoreSubmissionsTotal.WithLabelValues(dimension).Inc()
}

// RecordUpdateConflict increments the conflict retry counter.
func (m *Metrics) RecordUpdateConflict() {
	m.UpdateConflictsTotal.Inc()
}

// RecordScoreUpdate records the duration of a full score update.
func (m *Metrics) RecordScoreUpdate(durationSeconds float64) {
	m.ScoreUpdateDuration.Observe(durationSeconds)
}
