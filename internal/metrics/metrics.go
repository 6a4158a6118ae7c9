// Package metrics exposes Prometheus instrumentation for hunts. Collectors
// are registered at init via promauto and recorded through small helpers so
// callers never touch label ordering.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osinthound_scans_total",
		Help: "Total scanner probes by scanner name and outcome.",
	}, []string{"scanner", "outcome"})

	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "osinthound_scan_duration_seconds",
		Help:    "Scanner probe latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
	}, []string{"scanner"})

	sitelistChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osinthound_sitelist_checks_total",
		Help: "Total catalogue site checks by catalogue and outcome.",
	}, []string{"catalogue", "outcome"})

	profilesDiscoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osinthound_profiles_discovered_total",
		Help: "Confirmed profiles discovered per network.",
	}, []string{"network"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osinthound_ai_requests_total",
		Help: "AI analysis attempts by final outcome.",
	}, []string{"outcome"})

	aiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osinthound_ai_retries_total",
		Help: "AI analysis retries by trigger reason.",
	}, []string{"reason"})

	huntsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "osinthound_hunts_in_flight",
		Help: "Hunts currently executing.",
	})
)

// Scan outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// RecordScan counts one scanner probe and observes its latency.
func RecordScan(scanner, outcome string, elapsed time.Duration) {
	scansTotal.WithLabelValues(scanner, outcome).Inc()
	scanDuration.WithLabelValues(scanner).Observe(elapsed.Seconds())
}

// RecordSitelistCheck counts one catalogue site check.
func RecordSitelistCheck(catalogue, outcome string) {
	sitelistChecksTotal.WithLabelValues(catalogue, outcome).Inc()
}

// RecordProfileDiscovered counts one confirmed profile.
func RecordProfileDiscovered(network string) {
	profilesDiscoveredTotal.WithLabelValues(network).Inc()
}

// RecordAIRequest counts one completed AI analysis attempt.
func RecordAIRequest(outcome string) {
	aiRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordAIRetry counts one retry of the AI provider loop.
func RecordAIRetry(reason string) {
	aiRetriesTotal.WithLabelValues(reason).Inc()
}

// HuntStarted marks a hunt as running until the returned func is called.
func HuntStarted() func() {
	huntsInFlight.Inc()
	return huntsInFlight.Dec
}
