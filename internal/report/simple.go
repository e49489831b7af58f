package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs a plain text report for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every page with its links.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every crawled page and its links.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary, the failed pages and, in verbose mode, every page.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder
	summary := report.Summarize(w.top)

	w.writeSummary(&sb, summary)
	w.writeFailures(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	}
	writeRule(&sb, "=")

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs only the overview.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder
	w.writeSummary(&sb, summary)
	writeRule(&sb, "=")
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s *model.Summary) {
	sb.WriteString("\n")
	writeRule(sb, "=")
	fmt.Fprintf(sb, "CRAWL REPORT: %s\n", s.Seed)
	writeRule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Session:        %s\n", s.ID)
	fmt.Fprintf(sb, "Domain:         %s\n", s.Domain)
	fmt.Fprintf(sb, "Started:        %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", s.Duration.Round(timeRounding))
	fmt.Fprintf(sb, "Pages crawled:  %d\n", s.Pages)
	fmt.Fprintf(sb, "Pages failed:   %d\n", s.FailedPages)
	fmt.Fprintf(sb, "Internal links: %d\n", s.InternalLinks)
	fmt.Fprintf(sb, "External links: %d\n", s.ExternalLinks)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(s))
	sb.WriteString("\n")

	if len(s.TopLinked) == 0 {
		return
	}
	writeSection(sb, "MOST LINKED PAGES")
	for _, lc := range s.TopLinked {
		fmt.Fprintf(sb, "  %4d  %s\n", lc.Count, lc.URL)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	failed := report.FailedPages()
	if len(failed) == 0 {
		return
	}
	writeSection(sb, "FAILED PAGES")
	for _, url := range failed {
		fmt.Fprintf(sb, "  [x] %s (%d attempts)\n", url, report.Failed[url])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	writeSection(sb, "PAGES")
	for _, page := range report.Pages() {
		links := report.Links[page]
		fmt.Fprintf(sb, "  [+] %s (%d links)\n", page, len(links))
		for _, link := range links {
			fmt.Fprintf(sb, "      -> %s\n", link)
		}
	}
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "-")
	sb.WriteString("\n")
}

func writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, ruleWidth))
	sb.WriteString("\n")
}
