package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsSubmitted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "mediafetch_jobs_submitted_total", Help: "Jobs accepted for processing"})
	JobsFinished   = prometheus.NewCounter(prometheus.CounterOpts{Name: "mediafetch_jobs_finished_total", Help: "Jobs whose every URL was fetched"})
	JobsFailed     = prometheus.NewCounter(prometheus.CounterOpts{Name: "mediafetch_jobs_failed_total", Help: "Jobs that ended in the error state"})
	ItemsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mediafetch_items_completed_total", Help: "URLs fetched successfully"}, []string{"format"})
	JobsEvicted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "mediafetch_jobs_evicted_total", Help: "Jobs removed by the cleaner after their TTL"})
	RateLimited    = prometheus.NewCounter(prometheus.CounterOpts{Name: "mediafetch_submissions_rate_limited_total", Help: "Submissions rejected by the rate limiter"})
	JobsRunning    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "mediafetch_jobs_running", Help: "Jobs currently being fetched"})
	FetchDuration  = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediafetch_fetch_duration_seconds",
		Help:    "Time spent fetching a single URL",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"format", "outcome"})
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			JobsSubmitted,
			JobsFinished,
			JobsFailed,
			ItemsCompleted,
			JobsEvicted,
			RateLimited,
			JobsRunning,
			FetchDuration,
		)
	})
}

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
