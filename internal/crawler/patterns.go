package crawler

import (
	"net/url"
	"path"
	"strings"
)

// pathFilter decides whether a same-host URL may be scheduled based on
// glob patterns matched against its path.
//
// Pattern syntax:
//   - "*" matches any sequence of characters within a path segment
//   - "/admin/*" matches "/admin/users" but not "/admin/users/1"
//   - "/admin/**" matches everything under /admin/
//   - "*.pdf" matches any path ending in .pdf
type pathFilter struct {
	ignore []string
	follow []string
}

// allow reports whether rawURL passes the filter. Ignore patterns win over
// follow patterns; with no follow patterns every path is followed.
func (f pathFilter) allow(rawURL string) bool {
	if len(f.ignore) == 0 && len(f.follow) == 0 {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range f.ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern reports whether urlPath matches a glob pattern.
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	// Extension patterns apply to the last segment at any depth.
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(urlPath, pattern[1:])
	}
	matched, err := path.Match(pattern, urlPath)
	if err != nil {
		return false
	}
	return matched
}
