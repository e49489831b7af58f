// Package model defines the data structures shared by the crawler, the
// pipeline, the report writers and the database.
//
//   - CrawlReport: everything one crawl session produced
//   - CrawlStats: counters collected while the session ran
//   - Summary: a condensed view of a report for human-readable output
//
// Models live in their own package so that crawler, report and database
// can all depend on them without importing each other. They serialize to
// JSON for reports and for storage.
package model
