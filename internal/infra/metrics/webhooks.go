package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(webhooksTotal) }

var webhooksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Inbound renderer webhooks, labeled by kind and outcome.",
	},
	[]string{"kind", "outcome"}, // kind: 'progress'|'complete'; outcome: 'applied'|'duplicate'|'unauthorized'|'malformed'|'error'
)

func IncWebhook(kind, outcome string) {
	webhooksTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}
