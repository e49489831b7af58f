package crawler

import (
	"time"
)

// Default retry settings.
const (
	// DefaultRetryBaseDelay is the backoff before the first retry.
	DefaultRetryBaseDelay = 100 * time.Millisecond

	// DefaultMaxBackoff caps the exponential backoff.
	DefaultMaxBackoff = 30 * time.Second
)

// RetryDecision is what the session should do with a failed URL.
type RetryDecision int

const (
	// RetryScheduled means the URL should be requeued after the backoff.
	RetryScheduled RetryDecision = iota

	// RetryExhausted means the URL has just reached the retry limit and was
	// recorded as failed.
	RetryExhausted

	// RetryIgnored means the URL was already recorded as failed. Nothing changed.
	RetryIgnored
)

// String returns the decision name used in logs.
func (d RetryDecision) String() string {
	switch d {
	case RetryScheduled:
		return "scheduled"
	case RetryExhausted:
		return "exhausted"
	case RetryIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// RetryOutcome is the result of HandleFailure.
type RetryOutcome struct {
	Decision RetryDecision

	// Attempts is the failure count after this call.
	Attempts int

	// Backoff is how long to wait before requeueing. Zero unless Decision
	// is RetryScheduled.
	Backoff time.Duration
}

// RetryManager counts failures per URL and decides whether a URL is retried
// or given up on.
//
// Once a URL's count reaches the limit it is recorded as failed with that
// count, and further failures for it change nothing. With a limit of zero
// the first failure is recorded with a count of zero.
//
// RetryManager is not safe for concurrent use.
type RetryManager struct {
	maxRetries int
	baseDelay  time.Duration
	maxBackoff time.Duration
	attempts   map[string]int
	failed     map[string]int
}

// NewRetryManager creates a RetryManager. Non-positive delays fall back to
// the defaults.
func NewRetryManager(maxRetries int, baseDelay, maxBackoff time.Duration) *RetryManager {
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	return &RetryManager{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxBackoff: maxBackoff,
		attempts:   make(map[string]int),
		failed:     make(map[string]int),
	}
}

// HandleFailure records one failure of rawURL and returns what to do next.
func (m *RetryManager) HandleFailure(rawURL string) RetryOutcome {
	count := m.attempts[rawURL]

	if count >= m.maxRetries {
		if _, recorded := m.failed[rawURL]; recorded {
			return RetryOutcome{Decision: RetryIgnored, Attempts: count}
		}
		m.failed[rawURL] = count
		return RetryOutcome{Decision: RetryExhausted, Attempts: count}
	}

	count++
	m.attempts[rawURL] = count
	if count >= m.maxRetries {
		m.failed[rawURL] = count
		return RetryOutcome{Decision: RetryExhausted, Attempts: count}
	}

	return RetryOutcome{
		Decision: RetryScheduled,
		Attempts: count,
		Backoff:  m.Backoff(count),
	}
}

// Backoff returns base*2^attempt, capped at the maximum backoff.
func (m *RetryManager) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := m.baseDelay
	for range attempt {
		d *= 2
		if d >= m.maxBackoff || d <= 0 {
			return m.maxBackoff
		}
	}
	return min(d, m.maxBackoff)
}

// Attempts returns the number of failures recorded for rawURL.
func (m *RetryManager) Attempts(rawURL string) int {
	return m.attempts[rawURL]
}

// IsFailed reports whether rawURL has been given up on.
func (m *RetryManager) IsFailed(rawURL string) bool {
	_, ok := m.failed[rawURL]
	return ok
}

// Failed returns a copy of the failed set: URL to failure count.
func (m *RetryManager) Failed() map[string]int {
	out := make(map[string]int, len(m.failed))
	for k, v := range m.failed {
		out[k] = v
	}
	return out
}
