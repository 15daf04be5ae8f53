// Package metrics exposes Prometheus instrumentation for the security
// pipeline. Collectors are package-level and registered on the default
// registry; the /metrics handler in the API serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts pipeline runs by agent and final security status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backstop",
		Name:      "requests_total",
		Help:      "Secure pipeline runs by agent and security status.",
	}, []string{"agent", "status"})

	// ThreatsTotal counts reported threats by type.
	ThreatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backstop",
		Name:      "threats_total",
		Help:      "Threats reported to the rate limiter by type.",
	}, []string{"type"})

	// RequestDuration tracks end-to-end pipeline latency per agent,
	// including the wrapped agent call.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "backstop",
		Name:      "request_duration_seconds",
		Help:      "Secure pipeline latency by agent.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"agent"})
)
