package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salesdesk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "salesdesk",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func observeRequest(method string, path string, status int, elapsed time.Duration) {
	route := normalizeRoute(path)
	requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// normalizeRoute collapses path parameters so metric cardinality stays
// bounded regardless of how many sales exist.
func normalizeRoute(path string) string {
	if !strings.HasPrefix(path, "/api/v1/sales/") {
		return path
	}
	tail := strings.Trim(strings.TrimPrefix(path, "/api/v1/sales/"), "/")
	if tail == "" {
		return "/api/v1/sales"
	}
	segments := strings.Split(tail, "/")
	switch {
	case len(segments) == 1:
		return "/api/v1/sales/{id}"
	case len(segments) == 2 && segments[1] == "cancel":
		return "/api/v1/sales/{id}/cancel"
	case len(segments) == 4 && segments[1] == "items" && segments[3] == "cancel":
		return "/api/v1/sales/{id}/items/{item_id}/cancel"
	}
	return "/api/v1/sales/unknown"
}
