package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks errors outside the deletion path (history writes, server, pruning)
	ErrorsTotal prometheus.Counter

	// HistoryPrunedTotal counts history rows removed by retention
	HistoryPrunedTotal prometheus.Counter
)

func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"filereaper_daemon_errors_total",
		"Total number of daemon errors outside the deletion path.",
	)

	HistoryPrunedTotal = NewCounter(
		"filereaper_history_pruned_total",
		"Total number of history rows removed by retention.",
	)
}

func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(HistoryPrunedTotal)
}

// RecordError increments the daemon error counter. No-op before Init.
func RecordError() {
	if ErrorsTotal == nil {
		return
	}
	ErrorsTotal.Inc()
}
