// Package ratelimit implements the token bucket throttles that pace catalog
// and document requests.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/boe-sumario-crawler/internal/metrics"
)

// Lanes used by the pipeline.
const (
	LaneDay  = "day"
	LaneItem = "item"
)

// Config holds throttle configuration.
type Config struct {
	// Lane labels wait metrics.
	Lane string
	// Interval is the minimum spacing between two released units. Zero or
	// negative disables throttling.
	Interval time.Duration
}

// Limiter spaces units of work by a fixed interval. The bucket holds a single
// token which is spent at construction, so every Wait, including the first,
// releases at least Interval after the previous release.
type Limiter struct {
	lane    string
	limiter *rate.Limiter
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Every(cfg.Interval)
	if cfg.Interval <= 0 {
		r = rate.Inf
	}
	limiter := rate.NewLimiter(r, 1)
	limiter.Allow()
	return &Limiter{
		lane:    cfg.Lane,
		limiter: limiter,
	}
}

// Wait blocks until the next unit may proceed, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle %s wait: %w", l.lane, err)
	}
	if duration := time.Since(start); duration > time.Millisecond {
		metrics.ObserveThrottleDelay(l.lane, duration)
	}
	return nil
}
