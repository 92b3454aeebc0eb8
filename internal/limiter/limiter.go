package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiter keeps one token bucket per client key
type ClientLimiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a limiter allowing r requests per second with the given burst
// per client. Clients idle for longer than idleTTL are forgotten.
func NewClientLimiter(r float64, burst int, idleTTL time.Duration) *ClientLimiter {
	l := &ClientLimiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(r),
		burst:   burst,
		idleTTL: idleTTL,
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether the client identified by key may proceed now
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()

	return c.limiter.Allow()
}

// Len returns the number of tracked clients
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop ends the cleanup goroutine
func (l *ClientLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *ClientLimiter) cleanupLoop() {
	interval := l.idleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.evictIdle(time.Now())
		}
	}
}

func (l *ClientLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}
}
