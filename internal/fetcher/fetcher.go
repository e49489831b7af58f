// Package fetcher implements the HTTP GET capability used by crawl sessions.
//
// A Fetcher returns the decoded body and headers of a successful response,
// or a *FetchError carrying whatever headers the server sent when the
// request failed. Every request is bounded by a timeout so that a hung
// server cannot hold a crawl slot forever.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Default fetcher settings.
const (
	// DefaultTimeout bounds one request, including reading the body.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent is sent when no other User-Agent is configured.
	DefaultUserAgent = "sitecrawl/1.0"

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is not host:port.
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// Response is a successfully fetched page.
type Response struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// ContentType is the Content-Type header, for convenience.
	ContentType string

	// Body is the decompressed, UTF-8 decoded body, truncated at the size limit.
	Body []byte
}

// IsHTML reports whether the response looks like an HTML document.
// A missing Content-Type is treated as HTML.
func (r *Response) IsHTML() bool {
	if r.ContentType == "" {
		return true
	}
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// FetchError describes a failed fetch. Header is non-nil when the server
// answered with an error status.
type FetchError struct {
	URL        string
	StatusCode int
	Header     http.Header
	Err        error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher performs GET requests through an *http.Client.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	cookie      string
	headers     map[string]string
	proxyAddr   string
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithCookie sends the given cookie string with every request.
func WithCookie(cookie string) Option {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithSOCKS5Proxy routes every connection through a SOCKS5 proxy at host:port.
func WithSOCKS5Proxy(addr string) Option {
	return func(f *HTTPFetcher) {
		f.proxyAddr = addr
	}
}

// WithHTTPClient replaces the underlying client. The fetcher still applies
// its own per-request timeout through the request context.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// New creates an HTTPFetcher.
func New(opts ...Option) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		client, err := f.newHTTPClient()
		if err != nil {
			return nil, err
		}
		f.client = client
	}

	return f, nil
}

// newHTTPClient builds the default client. Compression is negotiated by
// the fetcher itself so that brotli can be offered alongside gzip.
func (f *HTTPFetcher) newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	if f.proxyAddr != "" {
		if _, _, err := net.SplitHostPort(f.proxyAddr); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProxyAddress, f.proxyAddr)
		}
		dialer, err := proxy.SOCKS5("tcp", f.proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Fetch performs a GET for rawURL. Transport failures and HTTP statuses
// of 400 and above are reported as *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	f.decorate(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := readBody(resp, f.maxBodySize, contentType)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Header: resp.Header.Clone(), Err: err}
	}

	return &Response{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// decorate sets the headers every request carries.
func (f *HTTPFetcher) decorate(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
}
