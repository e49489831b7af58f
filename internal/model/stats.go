package model

// CrawlStats counts what happened during a crawl session.
type CrawlStats struct {
	// Dispatched is the number of distinct URLs fetched at least once.
	Dispatched int `json:"dispatched"`

	// Retries is the number of retry dispatches.
	Retries int `json:"retries"`

	// Succeeded is the number of URLs fetched successfully.
	Succeeded int `json:"succeeded"`

	// Failed is the number of URLs that exhausted their retries.
	Failed int `json:"failed"`

	// DuplicatesSkipped counts queued entries dropped because the URL had
	// already been dispatched.
	DuplicatesSkipped int `json:"duplicates_skipped"`

	// ExternalLinks counts discovered links to other hosts.
	ExternalLinks int `json:"external_links"`

	// FilteredLinks counts same-host links rejected by path patterns or
	// the depth limit.
	FilteredLinks int `json:"filtered_links"`

	// LimitSkipped counts URLs not fetched because the page limit was reached.
	LimitSkipped int `json:"limit_skipped"`

	// InvalidLinks counts hrefs that could not be resolved to a crawlable URL.
	InvalidLinks int `json:"invalid_links"`
}

// Add accumulates other into s.
func (s *CrawlStats) Add(other CrawlStats) {
	s.Dispatched += other.Dispatched
	s.Retries += other.Retries
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.DuplicatesSkipped += other.DuplicatesSkipped
	s.ExternalLinks += other.ExternalLinks
	s.FilteredLinks += other.FilteredLinks
	s.LimitSkipped += other.LimitSkipped
	s.InvalidLinks += other.InvalidLinks
}
