package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsCreatedTotal, jobTransitionsTotal, jobsCleanedTotal, jobsStuck)
}

var jobsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_created_total",
		Help: "Total number of jobs created, labeled by job type.",
	},
	[]string{"type"},
)

var jobTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_transitions_total",
		Help: "Job status transitions, labeled by from/to status.",
	},
	[]string{"from", "to"},
)

var jobsCleanedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "jobs_cleaned_total",
		Help: "Terminal jobs removed by retention cleanup.",
	},
)

var jobsStuck = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "jobs_requiring_attention",
		Help: "Jobs processing for longer than the attention window.",
	},
)

func IncJobCreated(jobType string) {
	jobsCreatedTotal.WithLabelValues(norm(jobType)).Inc()
}

func IncJobTransition(from, to string) {
	jobTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func AddJobsCleaned(n int) {
	jobsCleanedTotal.Add(float64(n))
}

func SetJobsStuck(n int) {
	jobsStuck.Set(float64(n))
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
