// Package log builds the slog loggers used by sitecrawl.
//
// Every logger returned by this package is wrapped in a SecureHandler, which
// masks credentials before they reach the output. A crawler logs a lot of
// URLs and request settings, and those routinely carry secrets: cookies and
// Authorization headers from the site configuration, access tokens in query
// strings, and user:password pairs in proxy or database addresses.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Info("fetching", "url", "https://example.com/feed?token=abc")
//	// url=https://example.com/feed?token=***REDACTED***
package log
