package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the pause range used when none is configured.
var DefaultDelay = DelayRange{Min: 1200 * time.Millisecond, Max: 2500 * time.Millisecond}

// DelayRange is an inclusive [Min, Max] pause window.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// ParseDelayRange parses "min-max" in milliseconds, e.g. "1200-2500". A single
// number yields a fixed delay.
func ParseDelayRange(s string) (DelayRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDelay, nil
	}

	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}
	minMs, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return DelayRange{}, fmt.Errorf("invalid delay %q: %w", s, err)
	}
	maxMs, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return DelayRange{}, fmt.Errorf("invalid delay %q: %w", s, err)
	}

	r := DelayRange{Min: time.Duration(minMs) * time.Millisecond, Max: time.Duration(maxMs) * time.Millisecond}
	if err := r.Validate(); err != nil {
		return DelayRange{}, err
	}
	return r, nil
}

// Validate rejects negative bounds and inverted ranges.
func (r DelayRange) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("delay bounds must not be negative: %s", r)
	}
	if r.Min > r.Max {
		return fmt.Errorf("delay minimum exceeds maximum: %s", r)
	}
	return nil
}

// Pick returns a uniformly random duration in [Min, Max].
func (r DelayRange) Pick() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rand.Int63n(int64(r.Max-r.Min)+1))
}

func (r DelayRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min.Milliseconds(), r.Max.Milliseconds())
}

// Pacer spaces out network-visible actions of one account job. An optional
// ceiling, shared across jobs, bounds the process-wide request rate.
type Pacer struct {
	delay   DelayRange
	ceiling *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer. ceiling may be nil.
func NewPacer(delay DelayRange, ceiling *rate.Limiter) *Pacer {
	return &Pacer{delay: delay, ceiling: ceiling, sleep: sleepContext}
}

// NewCeiling returns a limiter admitting requestsPerMinute with the given
// burst, or nil when requestsPerMinute is not positive.
func NewCeiling(requestsPerMinute, burst int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
}

// Delay suspends for a random duration within the range. It returns early
// with ctx's error when ctx is done.
func (p *Pacer) Delay(ctx context.Context) error {
	return p.sleep(ctx, p.delay.Pick())
}

// Acquire blocks until the shared ceiling admits one more request.
func (p *Pacer) Acquire(ctx context.Context) error {
	if p == nil || p.ceiling == nil {
		return nil
	}
	return p.ceiling.Wait(ctx)
}

// Range returns the configured delay window.
func (p *Pacer) Range() DelayRange {
	return p.delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
