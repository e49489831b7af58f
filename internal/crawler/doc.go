// Package crawler implements a same-host crawl session.
//
// # Architecture
//
// A Session starts from one seed URL and fetches every reachable page whose
// hostname equals the seed's hostname. It is built from four parts, each
// owned by the session rather than kept as package state:
//
//   - Frontier: FIFO queue of pending URLs plus the visited gate
//   - RetryManager: per-URL attempt counts and the backoff formula
//   - RateController: the shared politeness delay, adjusted from
//     X-RateLimit-Remaining and Retry-After response headers
//   - LinkExtractor: resolves every <a href> of a page against the page URL
//
// # Scheduling
//
// A single control goroutine owns all mutable session state. Fetches run in
// their own goroutines, at most MaxConcurrency at a time, and report back
// over a channel, so a freed slot is reused as soon as the fetch completes.
// Spacing between requests is enforced separately: every fetch waits on the
// rate controller's pacer before it hits the network.
//
// # Retries
//
// A failed URL is retried after base*2^attempt of backoff until it has
// failed MaxRetries times, at which point it is recorded in the failed set
// and never dispatched again. Retried URLs re-enter the frontier as retry
// entries that bypass the first-visit gate; every URL carries a status
// (in flight, retry pending, succeeded, failed) so only a URL that is
// really waiting for a retry can be dispatched through that path.
//
// # Usage
//
//	f, _ := fetcher.New(fetcher.WithTimeout(30 * time.Second))
//	session, err := crawler.NewSession("https://example.com", f,
//		crawler.WithMaxConcurrency(5),
//		crawler.WithMaxRetries(3),
//	)
//	if err != nil {
//		return err
//	}
//	result, err := session.Run(ctx)
package crawler
