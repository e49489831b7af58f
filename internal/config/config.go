package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultMaxConcurrency is the number of fetches allowed in flight at once
	// within one crawl session.
	DefaultMaxConcurrency = 5

	// DefaultMaxRetries is the number of failed attempts after which a URL is
	// recorded as permanently failed.
	DefaultMaxRetries = 3

	// DefaultInitialDelay is the starting politeness delay between dispatches.
	// The rate controller adjusts it from response headers afterwards.
	DefaultInitialDelay = 100 * time.Millisecond

	// DefaultTimeout bounds a single GET request including reading the body.
	// Without it a hung server holds a concurrency slot indefinitely.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryBaseDelay is the unit of the exponential retry backoff:
	// attempt n waits DefaultRetryBaseDelay * 2^n.
	DefaultRetryBaseDelay = 100 * time.Millisecond

	// DefaultMaxBackoff caps a single retry wait.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultBatchSize is the number of seeds crawled concurrently when more
	// than one seed is given.
	DefaultBatchSize = 2

	// DefaultUserAgent identifies sitecrawl in HTTP requests.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all configuration options for sitecrawl.
// It is populated from CLI flags and the optional config file and passed
// through the application explicitly rather than kept as global state.
type Config struct {
	// Seeds are the start URLs. Each seed is crawled as its own session
	// restricted to the seed's hostname.
	Seeds []string

	// MaxConcurrency is the ceiling on in-flight fetches per session.
	MaxConcurrency int

	// MaxRetries is the number of failed attempts before a URL is recorded
	// as failed. 0 records the URL on its first failure.
	MaxRetries int

	// InitialDelay is the starting value of the shared politeness delay.
	InitialDelay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RetryBaseDelay is the unit of the exponential retry backoff.
	RetryBaseDelay time.Duration

	// MaxBackoff caps a single retry wait.
	MaxBackoff time.Duration

	// MaxPages caps the number of distinct URLs fetched per session.
	// 0 means unlimited.
	MaxPages int

	// MaxDepth caps the link distance from the seed. 0 means unlimited.
	MaxDepth int

	// BatchSize is the number of sessions run concurrently.
	BatchSize int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit path of the YAML config file, if any.
	ConfigFilePath string

	// SiteConfigs holds per-host overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile redirects the report from stdout to a file.
	ReportFile string

	// SaveToDB stores each finished session in the database.
	SaveToDB bool

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// DatabaseDSN selects a PostgreSQL database instead of SQLite when set.
	DatabaseDSN string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxConcurrency: DefaultMaxConcurrency,
		MaxRetries:     DefaultMaxRetries,
		InitialDelay:   DefaultInitialDelay,
		Timeout:        DefaultTimeout,
		RetryBaseDelay: DefaultRetryBaseDelay,
		MaxBackoff:     DefaultMaxBackoff,
		BatchSize:      DefaultBatchSize,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
// On Linux: ~/.config/sitecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.MaxConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.InitialDelay < 0 {
		return ErrInvalidInitialDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxPages < 0 || c.MaxDepth < 0 {
		return ErrInvalidLimits
	}
	return nil
}

// ForHost returns a copy of the configuration with the per-host overrides
// from the config file applied.
func (c *Config) ForHost(host string) (*Config, SiteConfig) {
	out := *c
	if c.SiteConfigs == nil {
		return &out, SiteConfig{}
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	if site.MaxConcurrency > 0 {
		out.MaxConcurrency = site.MaxConcurrency
	}
	if site.MaxRetries != nil {
		out.MaxRetries = *site.MaxRetries
	}
	return &out, site
}
