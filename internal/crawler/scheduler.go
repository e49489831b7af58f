package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/juju/clock"
)

// urlStatus tracks a URL through its dispatches. A URL without an entry
// has not been dispatched yet.
type urlStatus int

const (
	statusInFlight urlStatus = iota + 1
	statusRetryPending
	statusSucceeded
	statusFailed
	statusAbandoned
)

// retryDue is sent by a backoff timer when a failed URL may be requeued.
type retryDue struct {
	id     int
	entry  Entry
	header http.Header
}

// Run crawls until the frontier is empty, nothing is in flight and no
// retry is waiting on its backoff. Fetch and extraction errors never stop
// the session; they are retried or recorded as failed.
//
// If ctx is cancelled Run stops dispatching, abandons pending retries,
// waits for in-flight fetches to return and hands the partial result to
// the sink. The partial result is returned together with ctx.Err().
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.started {
		return nil, ErrSessionStarted
	}
	s.started = true

	startedAt := s.clock.Now()
	s.logger.Info("crawl started",
		"seed", s.seed,
		"max_concurrency", s.maxConcurrency,
		"max_retries", s.maxRetries,
		"initial_delay", s.initialDelay)

	fetchCtx, cancelFetches := context.WithCancel(ctx)
	defer cancelFetches()

	outcomes := make(chan fetchOutcome)
	due := make(chan retryDue)
	stop := make(chan struct{})
	defer close(stop)

	var (
		inFlight int
		nextID   int
		timers   = make(map[int]clock.Timer)
		done     = ctx.Done()
	)

	for {
		if ctx.Err() == nil {
			inFlight += s.dispatch(fetchCtx, outcomes, s.maxConcurrency-inFlight)
		}
		if inFlight == 0 && len(timers) == 0 && (s.frontier.Len() == 0 || ctx.Err() != nil) {
			break
		}

		select {
		case o := <-outcomes:
			inFlight--
			backoff, retry := s.complete(ctx, o)
			if !retry || ctx.Err() != nil {
				continue
			}
			nextID++
			r := retryDue{id: nextID, entry: o.entry, header: o.header}
			timers[r.id] = s.clock.AfterFunc(backoff, func() {
				select {
				case due <- r:
				case <-stop:
				}
			})

		case r := <-due:
			delete(timers, r.id)
			if ctx.Err() != nil {
				s.status[visitKey(r.entry.URL)] = statusAbandoned
				continue
			}
			delay := s.rate.Adjust(r.header)
			s.frontier.Requeue(r.entry.URL, r.entry.Depth)
			s.logger.Debug("retry requeued", "url", r.entry.URL, "delay", delay)

		case <-done:
			done = nil
			cancelFetches()
			for id, t := range timers {
				if t.Stop() {
					delete(timers, id)
				}
			}
			for key, st := range s.status {
				if st == statusRetryPending {
					s.status[key] = statusAbandoned
				}
			}
			s.logger.Warn("crawl interrupted", "seed", s.seed, "in_flight", inFlight, "queued", s.frontier.Len())
		}
	}

	result := s.result(startedAt, ctx.Err() != nil)
	s.logger.Info("crawl finished",
		"seed", s.seed,
		"pages", result.Stats.Succeeded,
		"failed", result.Stats.Failed,
		"retries", result.Stats.Retries,
		"duration", result.Duration(),
		"interrupted", result.Interrupted)

	if s.sink != nil {
		if err := s.sink.Store(context.WithoutCancel(ctx), result.Links, result.Failed); err != nil {
			if ctx.Err() != nil {
				s.logger.Error("failed to store partial results", "seed", s.seed, "error", err)
				return result, ctx.Err()
			}
			return result, fmt.Errorf("failed to store crawl results: %w", err)
		}
	}

	return result, ctx.Err()
}

// dispatch starts up to free fetches and returns how many it started.
func (s *Session) dispatch(ctx context.Context, outcomes chan<- fetchOutcome, free int) int {
	started := 0
	for started < free && s.frontier.Len() > 0 {
		entry, ok := s.frontier.AcceptNext()
		if !ok {
			s.stats.DuplicatesSkipped++
			continue
		}

		key := visitKey(entry.URL)
		if entry.Retry {
			if s.status[key] != statusRetryPending {
				s.stats.DuplicatesSkipped++
				continue
			}
			s.stats.Retries++
		} else {
			if s.maxPages > 0 && s.frontier.VisitedCount() >= s.maxPages {
				s.stats.LimitSkipped++
				continue
			}
			s.frontier.MarkVisited(entry.URL)
			s.stats.Dispatched++
		}

		s.status[key] = statusInFlight
		s.logger.Debug("dispatching", "url", entry.URL, "depth", entry.Depth, "retry", entry.Retry)
		go s.fetch(ctx, entry, outcomes)
		started++
	}
	return started
}

// complete applies a fetch outcome to the session state. It reports whether
// the URL should be requeued and after how long.
func (s *Session) complete(ctx context.Context, o fetchOutcome) (backoff time.Duration, retry bool) {
	key := visitKey(o.entry.URL)

	if o.err != nil {
		if ctx.Err() != nil {
			s.status[key] = statusAbandoned
			return 0, false
		}

		out := s.retries.HandleFailure(o.entry.URL)
		switch out.Decision {
		case RetryScheduled:
			s.status[key] = statusRetryPending
			s.logger.Debug("fetch failed, retrying",
				"url", o.entry.URL, "attempt", out.Attempts, "backoff", out.Backoff, "error", o.err)
			return out.Backoff, true
		case RetryExhausted:
			s.status[key] = statusFailed
			s.stats.Failed++
			s.logger.Warn("giving up on url", "url", o.entry.URL, "attempts", out.Attempts, "error", o.err)
		case RetryIgnored:
			s.status[key] = statusFailed
		}
		return 0, false
	}

	s.status[key] = statusSucceeded
	s.stats.Succeeded++
	s.stats.InvalidLinks += o.skipped
	if _, exists := s.links[o.entry.URL]; !exists {
		s.links[o.entry.URL] = uniqueLinks(o.links)
	}
	s.rate.Adjust(o.header)

	for _, link := range o.links {
		if !sameHost(s.domain, link) {
			s.stats.ExternalLinks++
			continue
		}
		if s.maxDepth > 0 && o.entry.Depth+1 > s.maxDepth {
			s.stats.FilteredLinks++
			continue
		}
		if !s.filter.allow(link) {
			s.stats.FilteredLinks++
			continue
		}
		s.frontier.Enqueue(link, o.entry.Depth+1)
	}
	return 0, false
}

func (s *Session) result(startedAt time.Time, interrupted bool) *Result {
	links := make(map[string][]string, len(s.links))
	for k, v := range s.links {
		links[k] = v
	}
	return &Result{
		Seed:        s.seed,
		Domain:      s.domain,
		Links:       links,
		Failed:      s.retries.Failed(),
		Stats:       s.stats,
		FinalDelay:  s.rate.Delay(),
		StartedAt:   startedAt,
		FinishedAt:  s.clock.Now(),
		Interrupted: interrupted,
	}
}
