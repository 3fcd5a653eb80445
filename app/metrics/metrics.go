package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	tasksTotalCounter        *prometheus.CounterVec
	fetchFailuresCounter     *prometheus.CounterVec
	pipelineDurationMetric   prometheus.Histogram
	recordsDeliveredGaugeVec *prometheus.GaugeVec
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		tasksTotalCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quake_tasks_total",
				Help: "Total number of load task transitions by state.",
			},
			[]string{"state"},
		)

		fetchFailuresCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quake_fetch_failures_total",
				Help: "Total number of failed pipeline runs by failure kind.",
			},
			[]string{"kind"},
		)

		pipelineDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quake_pipeline_duration_seconds",
				Help:    "Duration of fetch and decode runs in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		recordsDeliveredGaugeVec = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quake_records_delivered",
				Help: "Number of records in the last delivered batch per feed.",
			},
			[]string{"feed"},
		)

		prometheus.MustRegister(
			tasksTotalCounter,
			fetchFailuresCounter,
			pipelineDurationMetric,
			recordsDeliveredGaugeVec,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, state := range []string{"running", "delivered", "cancelled"} {
			tasksTotalCounter.WithLabelValues(state)
		}
		for _, kind := range []string{"invalid_url", "bad_status", "io_failure", "malformed_json"} {
			fetchFailuresCounter.WithLabelValues(kind)
		}
	})
}

func IncTaskState(state string) {
	Init()
	tasksTotalCounter.WithLabelValues(state).Inc()
}

func IncFetchFailure(kind string) {
	Init()
	fetchFailuresCounter.WithLabelValues(kind).Inc()
}

func ObservePipelineDuration(d time.Duration) {
	Init()
	pipelineDurationMetric.Observe(d.Seconds())
}

func SetRecordsDelivered(feed string, n int) {
	Init()
	recordsDeliveredGaugeVec.WithLabelValues(feed).Set(float64(n))
}
