package fal

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_fal_request_total",
			Help: "Total number of queue API requests",
		},
		[]string{"method", "endpoint", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reel_fal_request_duration_seconds",
			Help:    "Duration of queue API requests until response headers",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 9),
		},
		[]string{"method", "endpoint", "status_class"},
	)
	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_fal_request_errors_total",
			Help: "Number of queue API requests that failed or returned a non-2xx status",
		},
		[]string{"method", "endpoint", "status_class"},
	)
)

func statusClass(err error, status int) string {
	if err != nil {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

// endpointLabel maps a queue URL onto a small fixed label set so request IDs
// never end up in metric labels.
func endpointLabel(method string, u *url.URL) string {
	path := strings.TrimRight(u.Path, "/")
	switch {
	case strings.HasSuffix(path, "/status/stream"):
		return "stream"
	case strings.HasSuffix(path, "/status"):
		return "status"
	case strings.HasSuffix(path, "/cancel"):
		return "cancel"
	case method == http.MethodPost:
		return "submit"
	default:
		return "result"
	}
}

func recordRequestMetrics(method, endpoint string, status int, duration time.Duration, err error) {
	class := statusClass(err, status)
	requestTotal.WithLabelValues(method, endpoint, class).Inc()
	requestDuration.WithLabelValues(method, endpoint, class).Observe(duration.Seconds())
	if class != "2xx" {
		requestErrors.WithLabelValues(method, endpoint, class).Inc()
	}
}
