package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(deliveriesTotal, pushTokensEvicted) }

var deliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "askline_deliveries_total",
		Help: "Response delivery attempts, labeled by channel, kind (success/failure message) and outcome.",
	},
	[]string{"channel", "kind", "outcome"},
)

var pushTokensEvicted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "askline_push_tokens_evicted_total",
		Help: "Stored push tokens removed after the gateway reported them invalid.",
	},
)

func IncDelivery(channel, kind, outcome string) {
	deliveriesTotal.WithLabelValues(norm(channel), norm(kind), norm(outcome)).Inc()
}

func IncPushTokenEvicted() { pushTokensEvicted.Inc() }
