package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors so callers can
// use errors.Is() for programmatic handling while still getting a
// human-readable message.
var (
	// ErrNoSeed is returned when no seed URL is given on the command line.
	ErrNoSeed = errors.New("no seed specified: provide at least one seed URL")

	// ErrInvalidConcurrency is returned when the concurrency ceiling is not positive.
	// A ceiling of zero would never dispatch a single fetch.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxRetries is returned when the retry limit is negative.
	// Use 0 to record a URL as failed on its first failure.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	// A request without a deadline can occupy a concurrency slot forever.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidInitialDelay is returned when the initial politeness delay is negative.
	ErrInvalidInitialDelay = errors.New("invalid initial delay: must be non-negative")

	// ErrInvalidBatchSize is returned when the number of concurrent sessions is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidLimits is returned when max pages or max depth is negative.
	// Zero means unlimited for both.
	ErrInvalidLimits = errors.New("invalid crawl limits: max pages and depth must be non-negative")
)
