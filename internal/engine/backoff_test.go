package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayDoubles(t *testing.T) {
	cfg := Config{BaseBackoff: 30 * time.Second, MaxBackoff: 15 * time.Minute}

	assert.Equal(t, 30*time.Second, BackoffDelay(cfg, 1))
	assert.Equal(t, 60*time.Second, BackoffDelay(cfg, 2))
	assert.Equal(t, 120*time.Second, BackoffDelay(cfg, 3))
	assert.Equal(t, 240*time.Second, BackoffDelay(cfg, 4))
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := Config{BaseBackoff: 30 * time.Second, MaxBackoff: 2 * time.Minute}

	assert.Equal(t, 2*time.Minute, BackoffDelay(cfg, 5))
	assert.Equal(t, 2*time.Minute, BackoffDelay(cfg, 50))
}

func TestBackoffDelayJitterStaysInBounds(t *testing.T) {
	cfg := Config{BaseBackoff: time.Second, MaxBackoff: time.Minute, JitterFraction: 0.2}

	for i := 0; i < 100; i++ {
		d := BackoffDelay(cfg, 1)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestBackoffDelayZeroAttempts(t *testing.T) {
	cfg := Config{BaseBackoff: time.Second, MaxBackoff: time.Minute}

	assert.Equal(t, time.Second, BackoffDelay(cfg, 0))
}
