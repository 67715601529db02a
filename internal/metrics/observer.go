// Package metrics exports lifecycle events as Prometheus metrics and serves
// them over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/five82/reel/internal/lifecycle"
)

var (
	recordsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_records_started_total",
		Help: "Records that entered the lifecycle",
	}, []string{"model"})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_submissions_total",
		Help: "Requests accepted by the queue",
	}, []string{"model"})

	outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_outcomes_total",
		Help: "Finished records by result and error kind",
	}, []string{"model", "result", "error_kind"})

	statusRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reel_status_retries_total",
		Help: "Status fetches retried after a transport failure",
	})

	progress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reel_generation_progress_percent",
		Help: "Diffusion progress of the record currently in flight",
	})

	queuePosition = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reel_queue_position",
		Help: "Last reported queue position of the record currently in flight",
	})

	lifecycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reel_lifecycle_duration_seconds",
		Help:    "Time from submission to fetched artifact or failure",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
	}, []string{"model", "result"})
)

// Observer records lifecycle events in the default Prometheus registry.
type Observer struct{}

var _ lifecycle.Observer = Observer{}

// Observe implements lifecycle.Observer.
func (Observer) Observe(e lifecycle.Event) {
	switch e.Kind {
	case lifecycle.EventStarted:
		recordsStarted.WithLabelValues(e.Model).Inc()
		progress.Set(0)
	case lifecycle.EventSubmitted:
		submissions.WithLabelValues(e.Model).Inc()
		if e.QueuePosition != nil {
			queuePosition.Set(float64(*e.QueuePosition))
		}
	case lifecycle.EventStatus:
		if e.QueuePosition != nil {
			queuePosition.Set(float64(*e.QueuePosition))
		} else {
			queuePosition.Set(0)
		}
	case lifecycle.EventProgress:
		progress.Set(float64(e.Progress))
	case lifecycle.EventRetry:
		statusRetries.Inc()
	case lifecycle.EventCompleted:
		progress.Set(100)
	case lifecycle.EventFetched:
		outcomes.WithLabelValues(e.Model, "completed", "").Inc()
		lifecycleDuration.WithLabelValues(e.Model, "completed").Observe(e.Elapsed.Seconds())
	case lifecycle.EventFailed:
		outcomes.WithLabelValues(e.Model, "failed", lifecycle.KindName(e.Err)).Inc()
		lifecycleDuration.WithLabelValues(e.Model, "failed").Observe(e.Elapsed.Seconds())
	}
}
