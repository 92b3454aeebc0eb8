package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server

	globalHealthChecker *HealthChecker
	healthMutex         sync.RWMutex
)

// Init initializes all metrics subsystems and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initReaperMetrics()
		initDaemonMetrics()
		initAPIMetrics()
		initHealthMetrics()

		registerReaperMetrics()
		registerDaemonMetrics()
		registerAPIMetrics()
		registerHealthMetrics()

		// Seed the outcome series so they appear in /metrics before the first deletion
		for _, outcome := range []string{"deleted", "not_found", "error"} {
			DeletionsTotal.WithLabelValues(outcome).Add(0)
		}
		PendingDeletions.Set(0)
	})
}

// Handler builds the HTTP handler exposing /metrics and /health.
// When api is non-nil it is mounted under /api/.
func Handler(api http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	if api != nil {
		mux.Handle("/api/", api)
	}
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	healthMutex.RLock()
	hc := globalHealthChecker
	healthMutex.RUnlock()

	if hc != nil && !hc.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","healthy":false}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","healthy":true}`))
}

// StartServer starts the metrics HTTP server on the specified address
func StartServer(addr string, handler http.Handler, logger zerolog.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Warn().Str("addr", currentSrv.Addr).Msg("metrics server already running")
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	currentSrv = srv

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown gracefully shuts down the metrics server and the health checker
func Shutdown(ctx context.Context, logger zerolog.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	healthMutex.Lock()
	if globalHealthChecker != nil {
		globalHealthChecker.Stop()
		globalHealthChecker = nil
	}
	healthMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}

// SetHealthChecker sets the global health checker instance
func SetHealthChecker(hc *HealthChecker) {
	healthMutex.Lock()
	defer healthMutex.Unlock()
	globalHealthChecker = hc
}
