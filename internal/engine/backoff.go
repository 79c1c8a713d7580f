package engine

import (
	"math/rand"
	"time"
)

// BackoffDelay returns how long to wait before the next attempt, given
// how many attempts have already completed. The delay doubles per
// attempt, is capped at MaxBackoff and gets +/- JitterFraction of
// random jitter so retries from many requests do not align.
func BackoffDelay(cfg Config, attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	delay := cfg.BaseBackoff
	for i := 1; i < attemptsMade; i++ {
		delay *= 2
		if delay >= cfg.MaxBackoff {
			delay = cfg.MaxBackoff
			break
		}
	}
	if delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}
	if cfg.JitterFraction > 0 {
		span := float64(delay) * cfg.JitterFraction
		delay += time.Duration(span * (2*rand.Float64() - 1))
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
