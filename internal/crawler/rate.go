package crawler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limit headers read from responses. Lookups are case-insensitive.
const (
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// Delay bounds applied by Adjust.
const (
	// MinDelay is the floor after any adjustment.
	MinDelay = 100 * time.Millisecond

	// QuotaExhaustedDelay is the floor once the server reports no remaining quota.
	QuotaExhaustedDelay = 1000 * time.Millisecond
)

// RateController holds the politeness delay shared by every fetch of a
// session and paces requests so that consecutive fetches start at least
// one delay apart.
//
// Design decision: pacing uses a token bucket with burst 1 whose interval
// is the current delay. Adjust updates the interval in place, so the
// scheduler never sleeps and the delay only governs request spacing.
type RateController struct {
	mu      sync.Mutex
	delay   time.Duration
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRateController creates a RateController with the given initial delay.
func NewRateController(initial time.Duration) *RateController {
	if initial < 0 {
		initial = 0
	}
	return &RateController{
		delay:   initial,
		limiter: rate.NewLimiter(rate.Every(initial), 1),
		now:     time.Now,
	}
}

// Delay returns the current delay.
func (c *RateController) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}

// Wait blocks until the next request may start or ctx is done.
func (c *RateController) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Adjust updates the delay from response headers and returns the new value.
//
// X-RateLimit-Remaining of zero doubles the delay with a floor of one
// second; any other number halves it. Retry-After then raises the delay to
// at least the requested wait. Once either header is understood the delay
// is at least MinDelay. Missing or unparseable headers leave it unchanged.
func (c *RateController) Adjust(header http.Header) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if header == nil {
		return c.delay
	}

	delay := c.delay
	adjusted := false
	if remaining, ok := parseRemaining(header.Get(HeaderRateLimitRemaining)); ok {
		adjusted = true
		if remaining == 0 {
			delay = max(double(delay), QuotaExhaustedDelay)
		} else {
			delay /= 2
		}
	}
	if wait, ok := parseRetryAfter(header.Get(HeaderRetryAfter), c.now()); ok {
		adjusted = true
		delay = max(delay, wait)
	}
	if adjusted {
		delay = max(delay, MinDelay)
	}

	if delay != c.delay {
		c.delay = delay
		c.limiter.SetLimit(rate.Every(delay))
	}
	return c.delay
}

// double returns 2d, saturating at the largest Duration.
func double(d time.Duration) time.Duration {
	if d > math.MaxInt64/2 {
		return math.MaxInt64
	}
	return d * 2
}

// parseRemaining parses a non-negative integer quota.
func parseRemaining(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseRetryAfter accepts delay-seconds or an HTTP-date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int64(math.MaxInt64/int64(time.Second)) {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0), true
	}
	return 0, false
}
