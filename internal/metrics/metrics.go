package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName groups pushed series in the Pushgateway.
const JobName = "bps_kpi_ingest"

// Recorder collects the metrics of ingestion runs on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	requests    *prometheus.CounterVec
	rows        *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bps_kpi_runs_total",
				Help: "Ingestion runs by outcome",
			},
			[]string{"status"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bps_kpi_endpoint_requests_total",
				Help: "KPI endpoint calls by outcome",
			},
			[]string{"kpi", "status"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bps_kpi_rows_total",
				Help: "Rows normalized per KPI",
			},
			[]string{"kpi"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bps_kpi_run_duration_seconds",
				Help:    "Duration of a full ingestion run",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bps_kpi_last_success_timestamp_seconds",
				Help: "Unix time of the last successful upload",
			},
		),
	}

	r.registry.MustRegister(r.runs, r.requests, r.rows, r.duration, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveRequest(kpi, status string) {
	r.requests.WithLabelValues(kpi, status).Inc()
}

func (r *Recorder) ObserveRows(kpi string, n int) {
	r.rows.WithLabelValues(kpi).Add(float64(n))
}

// ObserveRun records the outcome of one run. finishedAt is only used
// on success.
func (r *Recorder) ObserveRun(status string, d time.Duration, finishedAt time.Time) {
	r.runs.WithLabelValues(status).Inc()
	r.duration.Observe(d.Seconds())
	if status == StatusSuccess {
		r.lastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// Push sends every collected series to the Pushgateway at url.
func (r *Recorder) Push(ctx context.Context, url string) error {
	return push.New(url, JobName).Gatherer(r.registry).PushContext(ctx)
}

// Run and request outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)
