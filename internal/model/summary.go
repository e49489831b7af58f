package model

import (
	"cmp"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultTopLinked is how many pages Summarize lists as most linked.
const DefaultTopLinked = 10

// Summary is a condensed view of a CrawlReport.
type Summary struct {
	ID          string        `json:"id"`
	Seed        string        `json:"seed"`
	Domain      string        `json:"domain"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Pages       int           `json:"pages"`
	FailedPages int           `json:"failed_pages"`

	// InternalLinks and ExternalLinks count the distinct link targets on
	// and off the crawled host.
	InternalLinks int `json:"internal_links"`
	ExternalLinks int `json:"external_links"`

	// TopLinked lists the pages with the most incoming links from other pages.
	TopLinked []LinkCount `json:"top_linked,omitempty"`

	Interrupted bool   `json:"interrupted"`
	Error       string `json:"error,omitempty"`
}

// LinkCount is a URL with the number of crawled pages linking to it.
type LinkCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Summarize computes a Summary listing at most top most-linked pages.
func (r *CrawlReport) Summarize(top int) *Summary {
	s := &Summary{
		ID:          r.ID,
		Seed:        r.Seed,
		Domain:      r.Domain,
		StartedAt:   r.StartedAt,
		Duration:    r.Duration(),
		Pages:       len(r.Links),
		FailedPages: len(r.Failed),
		Interrupted: r.Interrupted,
		Error:       r.ErrorMessage,
	}

	inbound := make(map[string]int)
	external := make(map[string]struct{})
	for page, links := range r.Links {
		for _, link := range links {
			if !isOnHost(link, r.Domain) {
				external[link] = struct{}{}
				continue
			}
			if link == page {
				if _, ok := inbound[link]; !ok {
					inbound[link] = 0
				}
				continue
			}
			inbound[link]++
		}
	}
	s.InternalLinks = len(inbound)
	s.ExternalLinks = len(external)

	counts := make([]LinkCount, 0, len(inbound))
	for link, n := range inbound {
		counts = append(counts, LinkCount{URL: link, Count: n})
	}

	slices.SortFunc(counts, func(a, b LinkCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})
	if top > 0 && len(counts) > top {
		counts = counts[:top]
	}
	if top > 0 {
		s.TopLinked = counts
	}
	return s
}

func isOnHost(rawURL, domain string) bool {
	if domain == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), domain)
}
