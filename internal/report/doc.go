// Package report renders crawl reports.
//
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured output for other tools
//   - MarkdownWriter: tables and a chart for sharing
//
// Writers take a *model.CrawlReport, or a *model.Summary when only the
// overview is wanted, so any of them can be pointed at a file, stdout or
// a MultiWriter.
package report
