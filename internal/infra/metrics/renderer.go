package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(renderSubmitLatencyMs, renderSubmitRetries, renderJobsFinishedTotal, queueDepth)
}

var renderSubmitLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "render_submit_latency_ms",
		Help:    "Latency of renderer submissions in milliseconds, including retries.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	},
	[]string{"success"},
)

var renderSubmitRetries = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "render_submit_retries_total",
		Help: "Retried renderer submission attempts after transient failures.",
	},
)

var renderJobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "render_jobs_finished_total",
		Help: "Render jobs reaching a terminal status via webhook.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "render_queue_depth",
		Help: "Render jobs per status as last tallied.",
	},
	[]string{"status"},
)

func ObserveRenderSubmit(d time.Duration, success bool) {
	renderSubmitLatencyMs.WithLabelValues(strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}

func IncRenderSubmitRetry() {
	renderSubmitRetries.Inc()
}

func IncRenderJobFinished(status string) {
	renderJobsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func SetQueueDepth(status string, n int) {
	queueDepth.WithLabelValues(norm(status)).Set(float64(n))
}
