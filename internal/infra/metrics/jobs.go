package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsEnqueuedTotal, jobsProcessedTotal, jobsInFlight, jobsReclaimedTotal) }

var jobsEnqueuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "askline_jobs_enqueued_total",
		Help: "Jobs accepted at ingestion, labeled by channel.",
	},
	[]string{"channel"},
)

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "askline_jobs_processed_total",
		Help: "Jobs driven to a terminal status, labeled by status and channel.",
	},
	[]string{"status", "channel"}, // 'completed', 'failed'
)

var jobsInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "askline_jobs_in_flight",
		Help: "Jobs currently held in this worker's processing set.",
	},
)

var jobsReclaimedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "askline_jobs_reclaimed_total",
		Help: "Expired job records removed by the retention sweep.",
	},
)

func IncJobEnqueued(channel string) {
	jobsEnqueuedTotal.WithLabelValues(norm(channel)).Inc()
}

func IncJobProcessed(status, channel string) {
	jobsProcessedTotal.WithLabelValues(norm(status), norm(channel)).Inc()
}

func SetJobsInFlight(n int) { jobsInFlight.Set(float64(n)) }

func AddJobsReclaimed(n int64) { jobsReclaimedTotal.Add(float64(n)) }
