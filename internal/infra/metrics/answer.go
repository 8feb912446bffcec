package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(answerLatencyMs) }

var answerLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "askline_answer_latency_ms",
		Help:    "Answer service call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"provider", "model", "success"},
)

func ObserveAnswer(provider, model string, latencyMs int64, success bool) {
	answerLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
