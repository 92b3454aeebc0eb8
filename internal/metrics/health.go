package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ServiceHealthy indicates overall daemon health status
	ServiceHealthy prometheus.Gauge

	// ServiceStartTime records daemon start timestamp
	ServiceStartTime prometheus.Gauge

	// ComponentHealthy tracks individual component health
	ComponentHealthy *prometheus.GaugeVec

	// HealthCheckDuration tracks health check execution time
	HealthCheckDuration *prometheus.HistogramVec

	// HealthCheckFailures counts consecutive failures per component
	HealthCheckFailures *prometheus.GaugeVec

	// HealthCheckTimeouts counts checks that exceeded their timeout
	HealthCheckTimeouts prometheus.Counter
)

var errHealthCheckTimeout = errors.New("health check timeout")

// HealthChecker runs registered component checks on an interval
type HealthChecker struct {
	mu            sync.RWMutex
	startTime     time.Time
	components    map[string]*ComponentHealth
	checkInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	started       bool
}

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name         string
	LastCheck    time.Time
	Healthy      bool
	CheckFunc    func() error
	FailureCount int
	Timeout      time.Duration
}

func initHealthMetrics() {
	ServiceHealthy = NewGauge(
		"filereaper_daemon_healthy",
		"Daemon health status (1=healthy, 0=unhealthy).",
	)

	ServiceStartTime = NewGauge(
		"filereaper_daemon_start_timestamp_seconds",
		"Unix timestamp when daemon started.",
	)

	ComponentHealthy = NewGaugeVec(
		"filereaper_component_healthy",
		"Individual component health status (1=healthy, 0=unhealthy).",
		[]string{"component"},
	)

	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filereaper_health_check_duration_seconds",
			Help:    "Time taken to execute health checks.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"component"},
	)

	HealthCheckFailures = NewGaugeVec(
		"filereaper_health_check_failures_consecutive",
		"Consecutive health check failures per component.",
		[]string{"component"},
	)

	HealthCheckTimeouts = NewCounter(
		"filereaper_health_check_timeouts_total",
		"Total number of health check timeouts.",
	)
}

func registerHealthMetrics() {
	prometheus.MustRegister(ServiceHealthy)
	prometheus.MustRegister(ServiceStartTime)
	prometheus.MustRegister(ComponentHealthy)
	prometheus.MustRegister(HealthCheckDuration)
	prometheus.MustRegister(HealthCheckFailures)
	prometheus.MustRegister(HealthCheckTimeouts)
}

// NewHealthChecker creates a new health checker with specified check interval
func NewHealthChecker(interval time.Duration) *HealthChecker {
	hc := &HealthChecker{
		startTime:     time.Now(),
		components:    make(map[string]*ComponentHealth),
		checkInterval: interval,
	}

	ServiceStartTime.Set(float64(hc.startTime.Unix()))
	ServiceHealthy.Set(1)

	return hc
}

// RegisterComponent adds a component health check.
// timeout of 0 means the check runs without a deadline.
func (hc *HealthChecker) RegisterComponent(name string, checkFunc func() error, timeout time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.components[name] = &ComponentHealth{
		Name:      name,
		CheckFunc: checkFunc,
		Healthy:   true,
		Timeout:   timeout,
	}

	ComponentHealthy.WithLabelValues(name).Set(1)
	HealthCheckFailures.WithLabelValues(name).Set(0)
}

// Start begins periodic health checking
func (hc *HealthChecker) Start() {
	hc.mu.Lock()
	if hc.started {
		hc.mu.Unlock()
		return
	}
	hc.started = true
	stop := make(chan struct{})
	hc.stopCh = stop
	hc.mu.Unlock()

	hc.wg.Add(1)
	go hc.loop(stop)
}

// Stop halts health checking and waits for completion
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	if !hc.started {
		hc.mu.Unlock()
		return
	}
	hc.started = false
	stop := hc.stopCh
	hc.mu.Unlock()

	close(stop)
	hc.wg.Wait()
}

func (hc *HealthChecker) loop(stop <-chan struct{}) {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	hc.RunChecks()

	for {
		select {
		case <-ticker.C:
			hc.RunChecks()
		case <-stop:
			return
		}
	}
}

// RunChecks executes all registered health checks once
func (hc *HealthChecker) RunChecks() {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	overallHealthy := true

	for name, comp := range hc.components {
		start := time.Now()

		var err error
		if comp.Timeout > 0 {
			err = runWithTimeout(comp.CheckFunc, comp.Timeout)
		} else {
			err = comp.CheckFunc()
		}

		HealthCheckDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		comp.LastCheck = time.Now()

		if err != nil {
			comp.Healthy = false
			comp.FailureCount++
			overallHealthy = false

			ComponentHealthy.WithLabelValues(name).Set(0)
			HealthCheckFailures.WithLabelValues(name).Set(float64(comp.FailureCount))
			ErrorsTotal.Inc()
			continue
		}

		comp.Healthy = true
		comp.FailureCount = 0
		ComponentHealthy.WithLabelValues(name).Set(1)
		HealthCheckFailures.WithLabelValues(name).Set(0)
	}

	if overallHealthy {
		ServiceHealthy.Set(1)
	} else {
		ServiceHealthy.Set(0)
	}
}

func runWithTimeout(fn func() error, timeout time.Duration) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(timeout):
		HealthCheckTimeouts.Inc()
		return errHealthCheckTimeout
	}
}

// GetHealth returns current health status of all components
func (hc *HealthChecker) GetHealth() map[string]bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	health := make(map[string]bool)
	for name, comp := range hc.components {
		health[name] = comp.Healthy
	}
	return health
}

// IsHealthy returns true if all components are healthy
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	for _, comp := range hc.components {
		if !comp.Healthy {
			return false
		}
	}
	return true
}

// GetUptime returns daemon uptime in seconds
func (hc *HealthChecker) GetUptime() float64 {
	return time.Since(hc.startTime).Seconds()
}
