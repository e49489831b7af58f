package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
)

// Default session settings.
const (
	DefaultMaxConcurrency = 5
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = 100 * time.Millisecond
)

// Fetcher retrieves one URL. Implementations must bound every call with a
// timeout and return a *fetcher.FetchError carrying the response headers
// when the server answered with an error status.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

// Sink receives the results of a session once it has finished.
// links maps every successfully fetched URL to its unique outgoing links;
// failed maps every URL that exhausted its retries to its failure count.
type Sink interface {
	Store(ctx context.Context, links map[string][]string, failed map[string]int) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, links map[string][]string, failed map[string]int) error

// Store calls f.
func (f SinkFunc) Store(ctx context.Context, links map[string][]string, failed map[string]int) error {
	return f(ctx, links, failed)
}

// Result is the outcome of a session.
type Result struct {
	Seed   string
	Domain string

	// Links maps each successfully fetched URL to its unique outgoing links
	// in order of first appearance.
	Links map[string][]string

	// Failed maps each URL that exhausted its retries to its failure count.
	Failed map[string]int

	Stats model.CrawlStats

	// FinalDelay is the politeness delay when the session ended.
	FinalDelay time.Duration

	StartedAt  time.Time
	FinishedAt time.Time

	// Interrupted is true when the context was cancelled before the
	// frontier drained.
	Interrupted bool
}

// Duration returns how long the session ran.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Session crawls every page reachable from a seed URL on the seed's host.
type Session struct {
	seed   string
	domain string

	fetcher        Fetcher
	extractor      *LinkExtractor
	sink           Sink
	logger         *slog.Logger
	clock          clock.Clock
	maxConcurrency int
	maxRetries     int
	initialDelay   time.Duration
	retryBaseDelay time.Duration
	maxBackoff     time.Duration
	maxPages       int
	maxDepth       int
	filter         pathFilter

	frontier *Frontier
	retries  *RetryManager
	rate     *RateController
	status   map[string]urlStatus
	links    map[string][]string
	stats    model.CrawlStats
	started  bool
}

// Option configures a Session.
type Option func(*Session)

// WithMaxConcurrency sets the maximum number of fetches in flight.
func WithMaxConcurrency(n int) Option {
	return func(s *Session) {
		s.maxConcurrency = n
	}
}

// WithMaxRetries sets how many failures a URL may accumulate before it is
// recorded as failed.
func WithMaxRetries(n int) Option {
	return func(s *Session) {
		s.maxRetries = n
	}
}

// WithInitialDelay sets the starting politeness delay.
func WithInitialDelay(d time.Duration) Option {
	return func(s *Session) {
		s.initialDelay = d
	}
}

// WithRetryBackoff sets the base delay and the cap of the retry backoff.
func WithRetryBackoff(base, maxBackoff time.Duration) Option {
	return func(s *Session) {
		s.retryBaseDelay = base
		s.maxBackoff = maxBackoff
	}
}

// WithMaxPages stops dispatching new URLs after n distinct pages. Zero means unlimited.
func WithMaxPages(n int) Option {
	return func(s *Session) {
		s.maxPages = n
	}
}

// WithMaxDepth stops following links more than n hops from the seed.
// Zero means unlimited.
func WithMaxDepth(n int) Option {
	return func(s *Session) {
		s.maxDepth = n
	}
}

// WithIgnorePatterns sets path globs that are never scheduled.
func WithIgnorePatterns(patterns []string) Option {
	return func(s *Session) {
		s.filter.ignore = patterns
	}
}

// WithFollowPatterns restricts scheduling to paths matching at least one glob.
func WithFollowPatterns(patterns []string) Option {
	return func(s *Session) {
		s.filter.follow = patterns
	}
}

// WithSink sets where results are delivered when the session ends.
func WithSink(sink Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for retry backoff and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewSession validates the seed and options and creates a session. On
// error no crawl state is allocated; the error is a *ConstructionError
// wrapping ErrInvalidConfiguration or ErrInvalidURL.
func NewSession(seed string, f Fetcher, opts ...Option) (*Session, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, &ConstructionError{Reason: "seed URL is required", Err: ErrInvalidConfiguration}
	}

	u, err := url.Parse(seed)
	if err != nil {
		return nil, &ConstructionError{Seed: seed, Reason: err.Error(), Err: ErrInvalidURL}
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil, &ConstructionError{Seed: seed, Reason: "scheme must be http or https", Err: ErrInvalidURL}
	}
	if u.Hostname() == "" {
		return nil, &ConstructionError{Seed: seed, Reason: "missing hostname", Err: ErrInvalidURL}
	}

	s := &Session{
		seed:           seed,
		domain:         strings.ToLower(u.Hostname()),
		fetcher:        f,
		extractor:      NewLinkExtractor(),
		logger:         slog.Default(),
		clock:          clock.WallClock,
		maxConcurrency: DefaultMaxConcurrency,
		maxRetries:     DefaultMaxRetries,
		initialDelay:   DefaultInitialDelay,
		retryBaseDelay: DefaultRetryBaseDelay,
		maxBackoff:     DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	s.frontier = NewFrontier()
	s.frontier.Enqueue(seed, 0)
	s.retries = NewRetryManager(s.maxRetries, s.retryBaseDelay, s.maxBackoff)
	s.rate = NewRateController(s.initialDelay)
	s.status = make(map[string]urlStatus)
	s.links = make(map[string][]string)

	return s, nil
}

func (s *Session) validate() error {
	invalid := func(reason string) error {
		return &ConstructionError{Seed: s.seed, Reason: reason, Err: ErrInvalidConfiguration}
	}
	switch {
	case s.fetcher == nil:
		return invalid("fetcher is required")
	case s.maxConcurrency < 1:
		return invalid(fmt.Sprintf("max concurrency must be at least 1, got %d", s.maxConcurrency))
	case s.maxRetries < 0:
		return invalid(fmt.Sprintf("max retries must not be negative, got %d", s.maxRetries))
	case s.initialDelay < 0:
		return invalid(fmt.Sprintf("initial delay must not be negative, got %v", s.initialDelay))
	case s.maxPages < 0 || s.maxDepth < 0:
		return invalid("page and depth limits must not be negative")
	}
	return nil
}

// Domain returns the lowercase hostname every crawled URL shares.
func (s *Session) Domain() string {
	return s.domain
}

// Delay returns the current politeness delay.
func (s *Session) Delay() time.Duration {
	return s.rate.Delay()
}
