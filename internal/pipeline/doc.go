// Package pipeline runs a crawl session and the work that follows it.
//
// A Pipeline executes Steps in order against one model.CrawlReport: the
// crawl itself, then storing the results and rendering the report. Final
// steps run even after the context is cancelled so that an interrupted
// crawl still has its partial results persisted and printed.
//
// BatchProcessor runs one pipeline per seed URL with bounded concurrency.
package pipeline
