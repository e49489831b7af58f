package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecrawl/internal/model"
)

// timeRounding is the precision durations are printed with.
const timeRounding = time.Millisecond

// MarkdownWriter outputs reports as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the overview, the failed pages and a table of every page.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := report.Summarize(w.top)

	w.writeSummary(md, summary)
	w.writeStats(md, report.Stats)
	w.writeFailures(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs only the overview.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	w.writeSummary(md, summary)
	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.Summary) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + s.Seed + "`"},
			{"Session", "`" + s.ID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration.Round(timeRounding).String()},
			{"Pages Crawled", strconv.Itoa(s.Pages)},
			{"Pages Failed", strconv.Itoa(s.FailedPages)},
			{"Internal Links", strconv.Itoa(s.InternalLinks)},
			{"External Links", strconv.Itoa(s.ExternalLinks)},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")

	switch {
	case s.Interrupted:
		md.Cautionf("The crawl was interrupted. Results cover %d page(s) fetched before it stopped.", s.Pages)
	case s.Error != "":
		md.Warningf("The crawl finished with an error: %s", s.Error)
	case s.FailedPages > 0:
		md.Importantf("%d page(s) could not be fetched after all retries.", s.FailedPages)
	default:
		md.Tip("Every discovered page was fetched.")
	}
	md.PlainText("")

	if s.Pages+s.FailedPages > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page Outcomes"),
			piechart.WithShowData(true),
		)
		if s.Pages > 0 {
			chart.LabelAndIntValue("Crawled", uint64(s.Pages))
		}
		if s.FailedPages > 0 {
			chart.LabelAndIntValue("Failed", uint64(s.FailedPages))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if len(s.TopLinked) > 0 {
		md.H2("Most Linked Pages")
		md.PlainText("")
		rows := make([][]string, len(s.TopLinked))
		for i, lc := range s.TopLinked {
			rows[i] = []string{lc.URL, strconv.Itoa(lc.Count)}
		}
		md.Table(markdown.TableSet{Header: []string{"Page", "Inbound Links"}, Rows: rows})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeStats(md *markdown.Markdown, stats model.CrawlStats) {
	md.H2("Statistics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Dispatched", strconv.Itoa(stats.Dispatched)},
			{"Succeeded", strconv.Itoa(stats.Succeeded)},
			{"Retries", strconv.Itoa(stats.Retries)},
			{"Failed", strconv.Itoa(stats.Failed)},
			{"Duplicates Skipped", strconv.Itoa(stats.DuplicatesSkipped)},
			{"External Links", strconv.Itoa(stats.ExternalLinks)},
			{"Filtered Links", strconv.Itoa(stats.FilteredLinks)},
			{"Page Limit Skips", strconv.Itoa(stats.LimitSkipped)},
			{"Invalid Links", strconv.Itoa(stats.InvalidLinks)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.CrawlReport) {
	failed := report.FailedPages()
	if len(failed) == 0 {
		return
	}
	md.H2("Failed Pages")
	md.PlainText("")
	rows := make([][]string, len(failed))
	for i, url := range failed {
		rows[i] = []string{url, strconv.Itoa(report.Failed[url])}
	}
	md.Table(markdown.TableSet{Header: []string{"URL", "Attempts"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	pages := report.Pages()
	if len(pages) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pages))
	for i, page := range pages {
		rows[i] = []string{page, strconv.Itoa(len(report.Links[page]))}
	}
	md.Table(markdown.TableSet{Header: []string{"URL", "Links"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by sitecrawl*")
}
