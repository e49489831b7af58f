package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitecrawl/internal/model"
)

// JSONWriter outputs reports as JSON.
type JSONWriter struct {
	baseWriter
	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent sets the line prefix and indentation of the output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents the output with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter. Output is compact unless an indent
// option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonReport is a report together with its summary.
type jsonReport struct {
	*model.CrawlReport
	Summary *model.Summary `json:"summary"`
}

// Write outputs the full report with an embedded summary.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(jsonReport{CrawlReport: report, Summary: report.Summarize(w.top)})
}

// WriteSummary outputs only the summary.
func (w *JSONWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.writeJSON(summary)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent != "" || w.prefix != "" {
		data, err = json.MarshalIndent(v, w.prefix, w.indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
