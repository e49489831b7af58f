package crawler

import (
	"net/url"
	"strings"
)

// normalizeURL returns a copy of u in the form used for deduplication:
// lowercase scheme and host, no fragment, and "/" for an empty path, so
// that http://example.com and http://example.com/ are the same page.
func normalizeURL(u *url.URL) *url.URL {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	if n.Path == "" && n.Opaque == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return &n
}

// visitKey is the key of the visited set and of per-URL status.
func visitKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return normalizeURL(u).String()
}

// sameHost reports whether rawURL's hostname equals host, ignoring case
// and port.
func sameHost(host, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), host)
}
