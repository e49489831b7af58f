package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Extraction is the result of extracting links from one page.
type Extraction struct {
	// Links holds the absolute, normalized targets of every <a href> in
	// document order. Duplicates are kept.
	Links []string

	// Skipped holds the hrefs that could not be turned into a crawlable URL.
	Skipped []*LinkResolutionError
}

// LinkExtractor turns an HTML document into absolute links.
type LinkExtractor struct{}

// NewLinkExtractor creates a LinkExtractor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// Extract parses r as HTML and resolves every anchor href against base.
// Malformed markup is tolerated; only a read failure is returned as an error.
func (e *LinkExtractor) Extract(r io.Reader, base *url.URL) (*Extraction, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &Extraction{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := getAttr(n, "href"); ok {
				link, rerr := resolveHref(base, href)
				switch {
				case rerr != nil:
					result.Skipped = append(result.Skipped, rerr)
				case link != "":
					result.Links = append(result.Links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// resolveHref resolves href against base. It returns an empty string and no
// error for hrefs that are silently dropped: empty values and references to
// a fragment of the current document.
func resolveHref(base *url.URL, href string) (string, *LinkResolutionError) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", &LinkResolutionError{Href: href, Err: err}
	}

	abs := base.ResolveReference(ref)
	switch strings.ToLower(abs.Scheme) {
	case "http", "https":
	default:
		return "", &LinkResolutionError{Href: href, Err: ErrUnsupportedScheme}
	}
	if abs.Hostname() == "" {
		return "", &LinkResolutionError{Href: href, Err: ErrMissingHost}
	}

	return normalizeURL(abs).String(), nil
}

// getAttr returns the value of the named attribute.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val, true
		}
	}
	return "", false
}

// uniqueLinks returns links with later duplicates removed, keeping the
// order of first occurrence.
func uniqueLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}
