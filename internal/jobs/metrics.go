package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	clusters  *prometheus.CounterVec
	conflicts *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddClusters increments the discovered-cluster counter for the algorithm.
func (m *Metrics) AddClusters(algorithm string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.clusters.WithLabelValues(algorithm).Add(float64(count))
}

// AddConflicts increments the flagged separation-of-duties conflict counter.
func (m *Metrics) AddConflicts(severity string, count int) {
	if m == nil || count <= 0 {
		return
	}
	if severity == "" {
		severity = "unknown"
	}
	m.conflicts.WithLabelValues(severity).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentinel_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	clusters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_mining_clusters_total",
		Help: "Role clusters discovered by completed mining runs, by algorithm.",
	}, []string{"algorithm"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_mining_sod_conflicts_total",
		Help: "Separation-of-duties conflicts flagged inside discovered clusters.",
	}, []string{"severity"})
	registerer.MustRegister(runs, failures, duration, clusters, conflicts)
	return &Metrics{runs: runs, failures: failures, duration: duration, clusters: clusters, conflicts: conflicts}
}
