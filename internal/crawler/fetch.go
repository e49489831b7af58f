package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nao1215/sitecrawl/internal/fetcher"
)

// fetchOutcome is what a fetch goroutine reports back to the session.
type fetchOutcome struct {
	entry Entry

	// links are the extracted links in document order, duplicates included.
	links   []string
	skipped int

	// header holds the response headers, or the error response headers on failure.
	header http.Header
	err    error
}

// fetch waits for the pacer, retrieves entry.URL and extracts its links.
// It always sends exactly one outcome.
func (s *Session) fetch(ctx context.Context, entry Entry, outcomes chan<- fetchOutcome) {
	o := fetchOutcome{entry: entry}
	defer func() {
		if r := recover(); r != nil {
			o.err = fmt.Errorf("panic while crawling %s: %v", entry.URL, r)
		}
		outcomes <- o
	}()

	if err := s.rate.Wait(ctx); err != nil {
		o.err = err
		return
	}

	resp, err := s.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		o.err = err
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			o.header = fetchErr.Header
		}
		return
	}
	o.header = resp.Header

	if !resp.IsHTML() {
		return
	}

	base, err := url.Parse(entry.URL)
	if err != nil {
		o.err = fmt.Errorf("failed to parse page URL: %w", err)
		return
	}
	extraction, err := s.extractor.Extract(bytes.NewReader(resp.Body), base)
	if err != nil {
		o.err = err
		return
	}
	o.links = extraction.Links
	o.skipped = len(extraction.Skipped)
	for _, skipped := range extraction.Skipped {
		s.logger.Debug("skipped link", "page", entry.URL, "href", skipped.Href, "error", skipped.Err)
	}
}
