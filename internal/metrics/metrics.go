// Package metrics exposes pipeline collectors on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/competitive-intel/internal/model"
)

const namespace = "compintel"

// Collectors holds every metric the service records. A nil *Collectors is
// valid and records nothing.
type Collectors struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageOutcomes *prometheus.CounterVec
	jobOutcomes   *prometheus.CounterVec
	jobsInFlight  prometheus.Gauge
	checkpoints   prometheus.Counter
	abandoned     prometheus.Counter
}

// New creates and registers the collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		stageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_outcomes_total",
			Help:      "Stage completions by outcome (ok, degraded, failed).",
		}, []string{"stage", "outcome"}),
		jobOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Jobs reaching a terminal status.",
		}, []string{"status"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Jobs currently being run by this process.",
		}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_checkpoints_total",
			Help:      "Partial analysis text writes.",
		}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_abandoned_total",
			Help:      "Stale jobs failed by the reconciler.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.stageDuration,
		c.stageOutcomes,
		c.jobOutcomes,
		c.jobsInFlight,
		c.checkpoints,
		c.abandoned,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage run.
func (c *Collectors) ObserveStage(stage model.Stage, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	c.stageOutcomes.WithLabelValues(string(stage), outcome).Inc()
}

// JobStarted bumps the in-flight gauge.
func (c *Collectors) JobStarted() {
	if c == nil {
		return
	}
	c.jobsInFlight.Inc()
}

// JobFinished records a terminal status and drops the in-flight gauge.
func (c *Collectors) JobFinished(status model.JobStatus) {
	if c == nil {
		return
	}
	c.jobsInFlight.Dec()
	c.jobOutcomes.WithLabelValues(string(status)).Inc()
}

// Checkpoint counts one partial analysis write.
func (c *Collectors) Checkpoint() {
	if c == nil {
		return
	}
	c.checkpoints.Inc()
}

// Abandoned counts one job failed by the reconciler.
func (c *Collectors) Abandoned() {
	if c == nil {
		return
	}
	c.abandoned.Inc()
}
