package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowEnforcesBurstPerClient(t *testing.T) {
	l := NewClientLimiter(1, 2, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "third request within burst window must be rejected")

	assert.True(t, l.Allow("b"), "clients are limited independently")
	assert.Equal(t, 2, l.Len())
}

func TestEvictIdle(t *testing.T) {
	l := NewClientLimiter(1, 1, time.Minute)
	defer l.Stop()

	l.Allow("stale")
	l.Allow("fresh")

	l.mu.Lock()
	l.clients["stale"].lastSeen = time.Now().Add(-2 * time.Minute)
	l.mu.Unlock()

	l.evictIdle(time.Now())
	assert.Equal(t, 1, l.Len())
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewClientLimiter(1, 1, 0)
	l.Stop()
	l.Stop()
}
