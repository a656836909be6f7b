// Package metrics provides Prometheus metrics for the portal backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocSpaceRequestsTotal tracks outbound platform API requests
	DocSpaceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "docspace",
			Name:      "requests_total",
			Help:      "Total number of outbound DocSpace API requests",
		},
		[]string{"method", "status_code"},
	)

	// DocSpaceRequestDuration tracks outbound platform API request duration
	DocSpaceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "docspace",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound DocSpace API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// FillSignResolutionsTotal tracks reconciliation passes
	FillSignResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "fillsign",
			Name:      "resolutions_total",
			Help:      "Total number of fill-and-sign reconciliation passes by outcome",
		},
		[]string{"outcome"},
	)

	// FillSignResolutionDuration tracks the duration of a reconciliation pass
	FillSignResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "fillsign",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of fill-and-sign reconciliation passes in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// FillSignAssignmentsTotal tracks resolved assignments by status
	FillSignAssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "fillsign",
			Name:      "assignments_total",
			Help:      "Total number of resolved assignments by status",
		},
		[]string{"status"},
	)

	// FillSignLookupFailures tracks platform lookups that degraded to empty results
	FillSignLookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "fillsign",
			Name:      "lookup_failures_total",
			Help:      "Total number of swallowed platform lookup failures by kind",
		},
		[]string{"kind"},
	)

	// StoreFlushesTotal tracks write-buffer flushes
	StoreFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "storage",
			Name:      "flushes_total",
			Help:      "Total number of store snapshot flushes by status",
		},
		[]string{"status"},
	)

	// ExportRowsTotal tracks rows embedded into export scripts
	ExportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Total number of rows embedded into spreadsheet export scripts",
		},
	)
)

// RecordDocSpaceRequest records an outbound platform request metric
func RecordDocSpaceRequest(method, statusCode string, durationSeconds float64) {
	DocSpaceRequestsTotal.WithLabelValues(method, statusCode).Inc()
	DocSpaceRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordResolution records a reconciliation pass
func RecordResolution(outcome string, durationSeconds float64) {
	FillSignResolutionsTotal.WithLabelValues(outcome).Inc()
	FillSignResolutionDuration.Observe(durationSeconds)
}

// RecordAssignment records one resolved assignment
func RecordAssignment(status string) {
	FillSignAssignmentsTotal.WithLabelValues(status).Inc()
}

// RecordLookupFailure records a platform lookup that was treated as empty
func RecordLookupFailure(kind string) {
	FillSignLookupFailures.WithLabelValues(kind).Inc()
}

// RecordFlush records a store flush
func RecordFlush(status string) {
	StoreFlushesTotal.WithLabelValues(status).Inc()
}
