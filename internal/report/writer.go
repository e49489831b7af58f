package report

import (
	"io"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Writer renders crawl reports.
type Writer interface {
	// Write renders the full report and returns the number of bytes written.
	Write(report *model.CrawlReport) (int, error)

	// WriteSummary renders only the overview.
	WriteSummary(summary *model.Summary) (int, error)
}

// MultiWriter writes to several Writers in order and stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary implements Writer.
func (m *MultiWriter) WriteSummary(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
	top    int
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output, top: model.DefaultTopLinked}
}

// statusText describes how the crawl ended.
func statusText(s *model.Summary) string {
	switch {
	case s.Interrupted:
		return "Interrupted (partial results)"
	case s.Error != "":
		return "Error - " + s.Error
	default:
		return "Complete"
	}
}
