package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Deletion subsystem metrics
var (
	// DeletionsTotal counts executor outcomes (deleted, not_found, error)
	DeletionsTotal *prometheus.CounterVec

	// BytesDeletedTotal tracks bytes of files removed, measured before removal
	BytesDeletedTotal prometheus.Counter

	// DeleteDuration tracks how long a single existence check plus delete takes
	DeleteDuration prometheus.Histogram

	// ScheduledTotal counts requests by kind (immediate, delayed, batch)
	ScheduledTotal *prometheus.CounterVec

	// RequestedDelay tracks the delays callers ask for
	RequestedDelay prometheus.Histogram

	// PendingDeletions is the number of delayed requests waiting or running
	PendingDeletions prometheus.Gauge
)

func initReaperMetrics() {
	DeletionsTotal = NewCounterVec(
		"filereaper_deletions_total",
		"Deletion attempts by outcome.",
		[]string{"outcome"},
	)

	BytesDeletedTotal = NewCounter(
		"filereaper_bytes_deleted_total",
		"Total bytes of files deleted.",
	)

	DeleteDuration = NewHistogram(
		"filereaper_delete_duration_seconds",
		"Duration of a single deletion attempt in seconds.",
		DeleteBuckets,
	)

	ScheduledTotal = NewCounterVec(
		"filereaper_requests_total",
		"Deletion requests accepted, by kind.",
		[]string{"kind"},
	)

	RequestedDelay = NewHistogram(
		"filereaper_requested_delay_seconds",
		"Delay requested for delayed deletions in seconds.",
		DelayBuckets,
	)

	PendingDeletions = NewGauge(
		"filereaper_pending_deletions",
		"Delayed deletion requests not yet finished.",
	)
}

func registerReaperMetrics() {
	prometheus.MustRegister(DeletionsTotal)
	prometheus.MustRegister(BytesDeletedTotal)
	prometheus.MustRegister(DeleteDuration)
	prometheus.MustRegister(ScheduledTotal)
	prometheus.MustRegister(RequestedDelay)
	prometheus.MustRegister(PendingDeletions)
}

// RecordOutcome records one executor outcome. No-op before Init.
func RecordOutcome(outcome string, bytes int64, took time.Duration) {
	if DeletionsTotal == nil {
		return
	}
	DeletionsTotal.WithLabelValues(outcome).Inc()
	DeleteDuration.Observe(took.Seconds())
	if bytes > 0 {
		BytesDeletedTotal.Add(float64(bytes))
	}
}

// RecordRequest records an accepted request of the given kind
func RecordRequest(kind string, delay time.Duration) {
	if ScheduledTotal == nil {
		return
	}
	ScheduledTotal.WithLabelValues(kind).Inc()
	if kind != "immediate" {
		RequestedDelay.Observe(delay.Seconds())
	}
}

// SetPending updates the pending delayed deletion gauge
func SetPending(n int64) {
	if PendingDeletions == nil {
		return
	}
	PendingDeletions.Set(float64(n))
}
