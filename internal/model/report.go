package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// CrawlReport is the result of crawling one seed URL.
//
// Links and Failed are the two result sets of a session: every page that
// was fetched with the unique links found on it, and every page that was
// given up on with its failure count. A URL never appears in both.
type CrawlReport struct {
	// ID identifies the session in the database and in reports.
	ID string `json:"id"`

	// Seed is the URL the crawl started from, as given.
	Seed string `json:"seed"`

	// Domain is the lowercase hostname shared by every crawled page.
	Domain string `json:"domain"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl ended. Zero until the crawl step ran.
	FinishedAt time.Time `json:"finished_at"`

	// Links maps each crawled page to its outgoing links in document order.
	Links map[string][]string `json:"links"`

	// Failed maps each page that exhausted its retries to its failure count.
	Failed map[string]int `json:"failed"`

	Stats CrawlStats `json:"stats"`

	// FinalDelay is the politeness delay when the crawl ended.
	FinalDelay time.Duration `json:"final_delay"`

	// Interrupted is true if the crawl was cancelled before it finished.
	Interrupted bool `json:"interrupted"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the first error recorded by the pipeline, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a string, for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewCrawlReport creates an empty report with a fresh session ID.
func NewCrawlReport(seed string) *CrawlReport {
	return &CrawlReport{
		ID:        uuid.NewString(),
		Seed:      seed,
		StartedAt: time.Now(),
		Links:     make(map[string][]string),
		Failed:    make(map[string]int),
	}
}

// AddPage records a crawled page. The first record for a URL wins.
func (r *CrawlReport) AddPage(url string, links []string) {
	if _, exists := r.Links[url]; exists {
		return
	}
	r.Links[url] = links
}

// AddFailure records a page that could not be fetched.
func (r *CrawlReport) AddFailure(url string, attempts int) {
	r.Failed[url] = attempts
}

// SetError records err and its message. Later errors are ignored.
func (r *CrawlReport) SetError(err error) {
	if err == nil || r.Error != nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Duration returns how long the crawl ran.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pages returns the crawled URLs in sorted order.
func (r *CrawlReport) Pages() []string {
	pages := make([]string, 0, len(r.Links))
	for url := range r.Links {
		pages = append(pages, url)
	}
	slices.Sort(pages)
	return pages
}

// FailedPages returns the failed URLs in sorted order.
func (r *CrawlReport) FailedPages() []string {
	pages := make([]string, 0, len(r.Failed))
	for url := range r.Failed {
		pages = append(pages, url)
	}
	slices.Sort(pages)
	return pages
}
