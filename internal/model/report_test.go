package model

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestNewCrawlReport tests the CrawlReport constructor.
func TestNewCrawlReport(t *testing.T) {
	t.Parallel()

	report := NewCrawlReport("https://example.com")

	t.Run("sets seed", func(t *testing.T) {
		t.Parallel()
		if report.Seed != "https://example.com" {
			t.Errorf("got %q, expected https://example.com", report.Seed)
		}
	})

	t.Run("generates a UUID session ID", func(t *testing.T) {
		t.Parallel()
		if _, err := uuid.Parse(report.ID); err != nil {
			t.Errorf("expected a UUID, got %q: %v", report.ID, err)
		}
		if other := NewCrawlReport("https://example.com"); other.ID == report.ID {
			t.Error("expected distinct IDs for distinct reports")
		}
	})

	t.Run("sets start time", func(t *testing.T) {
		t.Parallel()
		if time.Since(report.StartedAt) > time.Second {
			t.Error("StartedAt is too old")
		}
	})

	t.Run("initializes result maps", func(t *testing.T) {
		t.Parallel()
		if report.Links == nil || report.Failed == nil {
			t.Error("expected Links and Failed to be initialized")
		}
	})
}

// TestCrawlReportRecords tests adding pages, failures and errors.
func TestCrawlReportRecords(t *testing.T) {
	t.Parallel()

	t.Run("first page record wins", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlReport("http://example.com")
		r.AddPage("http://example.com/", []string{"http://example.com/a"})
		r.AddPage("http://example.com/", []string{"http://example.com/b"})
		if got := r.Links["http://example.com/"]; !slices.Equal(got, []string{"http://example.com/a"}) {
			t.Errorf("expected first record to be kept, got %v", got)
		}
	})

	t.Run("pages are sorted", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlReport("http://example.com")
		r.AddPage("http://example.com/b", nil)
		r.AddPage("http://example.com/a", nil)
		r.AddFailure("http://example.com/z", 3)
		r.AddFailure("http://example.com/y", 1)

		if got := r.Pages(); !slices.Equal(got, []string{"http://example.com/a", "http://example.com/b"}) {
			t.Errorf("unexpected pages %v", got)
		}
		if got := r.FailedPages(); !slices.Equal(got, []string{"http://example.com/y", "http://example.com/z"}) {
			t.Errorf("unexpected failed pages %v", got)
		}
	})

	t.Run("keeps the first error", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlReport("http://example.com")
		first := errors.New("first")
		r.SetError(nil)
		r.SetError(first)
		r.SetError(errors.New("second"))
		if !errors.Is(r.Error, first) || r.ErrorMessage != "first" {
			t.Errorf("expected first error, got %v / %q", r.Error, r.ErrorMessage)
		}
	})

	t.Run("duration is zero until finished", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlReport("http://example.com")
		if r.Duration() != 0 {
			t.Errorf("expected zero duration, got %v", r.Duration())
		}
		r.FinishedAt = r.StartedAt.Add(3 * time.Second)
		if r.Duration() != 3*time.Second {
			t.Errorf("expected 3s, got %v", r.Duration())
		}
	})
}

// TestCrawlReportSummarize tests link counting in summaries.
func TestCrawlReportSummarize(t *testing.T) {
	t.Parallel()

	r := NewCrawlReport("http://example.com")
	r.Domain = "example.com"
	r.AddPage("http://example.com/", []string{"http://example.com/a", "http://example.com/b", "http://other.com/"})
	r.AddPage("http://example.com/a", []string{"http://example.com/b", "http://example.com/a", "http://other.com/"})
	r.AddPage("http://example.com/b", []string{"http://example.com/"})
	r.AddFailure("http://example.com/gone", 3)

	s := r.Summarize(2)

	if s.Pages != 3 || s.FailedPages != 1 {
		t.Errorf("expected 3 pages and 1 failure, got %d/%d", s.Pages, s.FailedPages)
	}
	if s.InternalLinks != 3 {
		t.Errorf("expected 3 internal targets, got %d", s.InternalLinks)
	}
	if s.ExternalLinks != 1 {
		t.Errorf("expected 1 external target, got %d", s.ExternalLinks)
	}
	want := []LinkCount{
		{URL: "http://example.com/b", Count: 2},
		{URL: "http://example.com/", Count: 1},
	}
	if !slices.Equal(s.TopLinked, want) {
		t.Errorf("expected %v, got %v", want, s.TopLinked)
	}

	if got := r.Summarize(0); got.TopLinked != nil {
		t.Errorf("expected no ranking for top 0, got %v", got.TopLinked)
	}
}

// TestCrawlStatsAdd tests accumulating stats across sessions.
func TestCrawlStatsAdd(t *testing.T) {
	t.Parallel()

	total := CrawlStats{Succeeded: 1, Failed: 1}
	total.Add(CrawlStats{Succeeded: 2, Retries: 4, InvalidLinks: 1})
	if total.Succeeded != 3 || total.Failed != 1 || total.Retries != 4 || total.InvalidLinks != 1 {
		t.Errorf("unexpected totals %+v", total)
	}
}
