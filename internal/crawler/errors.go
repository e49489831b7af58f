package crawler

import (
	"errors"
	"fmt"
)

// Construction errors. Both are reported before any crawl state exists.
var (
	// ErrInvalidConfiguration is returned when the seed URL is missing or a
	// session option is out of range.
	ErrInvalidConfiguration = errors.New("invalid crawl configuration")

	// ErrInvalidURL is returned when the seed URL cannot be parsed into a
	// scheme and a hostname.
	ErrInvalidURL = errors.New("invalid seed URL")

	// ErrSessionStarted is returned when Run is called twice on the same session.
	ErrSessionStarted = errors.New("crawl session already started")
)

// Link resolution errors, recorded per href during extraction.
var (
	// ErrUnsupportedScheme marks hrefs that resolve to something other than http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrMissingHost marks hrefs that resolve to a URL without a host.
	ErrMissingHost = errors.New("resolved URL has no host")
)

// ConstructionError is returned by NewSession. It wraps ErrInvalidConfiguration
// or ErrInvalidURL so callers can tell a missing seed from a malformed one
// with errors.Is.
type ConstructionError struct {
	Seed   string
	Reason string
	Err    error
}

// Error implements error.
func (e *ConstructionError) Error() string {
	if e.Seed == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%v %q: %s", e.Err, e.Seed, e.Reason)
}

// Unwrap returns the sentinel error.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// LinkResolutionError describes an href that was dropped during extraction.
// It never aborts extraction of the remaining links on the page.
type LinkResolutionError struct {
	Href string
	Err  error
}

// Error implements error.
func (e *LinkResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve href %q: %v", e.Href, e.Err)
}

// Unwrap returns the cause.
func (e *LinkResolutionError) Unwrap() error {
	return e.Err
}
