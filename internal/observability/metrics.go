package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for budget series requests.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	stages    *prometheus.HistogramVec
	points    prometheus.Histogram
	timeouts  prometheus.Counter
	isTimeout func(error) bool
}

// NewMetrics initialises the registry and series metrics. isTimeout classifies errors as
// statement timeouts; nil disables the timeout counter.
func NewMetrics(isTimeout func(error) bool) *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_series_requests_total",
		Help: "Series requests partitioned by normalization mode and status.",
	}, []string{"mode", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "budget_series_duration_seconds",
		Help:    "End-to-end duration of series requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "budget_series_stage_duration_seconds",
		Help:    "Duration of each series stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	points := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "budget_series_points",
		Help:    "Number of periods returned per series.",
		Buckets: []float64{1, 4, 12, 24, 60, 120, 240},
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "budget_series_statement_timeouts_total",
		Help: "Series queries cancelled by statement_timeout.",
	})
	registry.MustRegister(requests, duration, stages, points, timeouts)
	return &Metrics{
		registry:  registry,
		requests:  requests,
		duration:  duration,
		stages:    stages,
		points:    points,
		timeouts:  timeouts,
		isTimeout: isTimeout,
	}
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Gatherer exposes the registry for dumping or scraping.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

// Tracker instruments a single series request.
type Tracker struct {
	metrics *Metrics
	mode    string
	start   time.Time
}

// Track starts a tracker for a request in the given normalization mode.
func (m *Metrics) Track(mode string) *Tracker {
	if mode == "" {
		mode = "total"
	}
	return &Tracker{metrics: m, mode: mode, start: time.Now()}
}

// Stage records how long one stage took.
func (t *Tracker) Stage(stage string, d time.Duration) {
	if t == nil || t.metrics == nil {
		return
	}
	t.metrics.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// End records the outcome and returns err untouched.
func (t *Tracker) End(points int, err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		if t.metrics.isTimeout != nil && t.metrics.isTimeout(err) {
			t.metrics.timeouts.Inc()
		}
	} else {
		t.metrics.points.Observe(float64(points))
	}
	t.finish(status)
	return err
}

// Reject records a request refused before reaching the database and returns err untouched.
func (t *Tracker) Reject(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	t.finish("invalid")
	return err
}

func (t *Tracker) finish(status string) {
	t.metrics.requests.WithLabelValues(t.mode, status).Inc()
	t.metrics.duration.WithLabelValues(t.mode).Observe(time.Since(t.start).Seconds())
}
