package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// testConfig returns a configuration that crawls quickly.
func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.InitialDelay = 0
	cfg.RetryBaseDelay = time.Millisecond
	cfg.MaxBackoff = 10 * time.Millisecond
	cfg.Timeout = 5 * time.Second
	return cfg
}

// pageFetcher serves canned HTML pages and fails for everything else.
type pageFetcher struct {
	pages map[string]string
}

func (f *pageFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Response, error) {
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &fetcher.FetchError{URL: rawURL, StatusCode: http.StatusNotFound, Header: http.Header{}}
	}
	return &fetcher.Response{
		URL:         rawURL,
		FinalURL:    rawURL,
		StatusCode:  http.StatusOK,
		Header:      http.Header{},
		ContentType: "text/html",
		Body:        []byte(body),
	}, nil
}

func staticFactory(f crawler.Fetcher) FetcherFactory {
	return func(*config.Config, config.SiteConfig) (crawler.Fetcher, error) {
		return f, nil
	}
}

// TestCrawlStep tests crawling a seed into a report.
func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("fills links and failures from an HTTP server", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/about">About</a><a href="/missing">Missing</a><a href="https://other.example/">Other</a>`)
		})
		mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/">Home</a>`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		cfg := testConfig()
		cfg.MaxRetries = 1

		seed := server.URL + "/"
		rep := model.NewCrawlReport(seed)
		if err := NewCrawlStep(cfg).Do(context.Background(), rep); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(rep.Links) != 2 {
			t.Fatalf("expected 2 crawled pages, got %v", rep.Pages())
		}
		if links := rep.Links[seed]; len(links) != 3 {
			t.Errorf("expected 3 links on the seed page, got %v", links)
		}
		if got := rep.Failed[server.URL+"/missing"]; got != 1 {
			t.Errorf("expected /missing to fail once, got %d", got)
		}
		if rep.Domain != "127.0.0.1" {
			t.Errorf("expected domain 127.0.0.1, got %q", rep.Domain)
		}
		if rep.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
		if rep.Stats.Succeeded != 2 || rep.Stats.Failed != 1 {
			t.Errorf("unexpected stats %+v", rep.Stats)
		}
	})

	t.Run("applies per-host overrides", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"example.com": {Cookie: "session=abc", IgnorePatterns: []string{"/private/*"}},
			},
		}

		var gotSite config.SiteConfig
		pages := &pageFetcher{pages: map[string]string{
			"http://example.com/": `<a href="/private/x">x</a><a href="/public">p</a>`,
			"http://example.com/public": ``,
		}}
		factory := func(_ *config.Config, site config.SiteConfig) (crawler.Fetcher, error) {
			gotSite = site
			return pages, nil
		}

		rep := model.NewCrawlReport("http://example.com/")
		if err := NewCrawlStep(cfg, WithFetcherFactory(factory)).Do(context.Background(), rep); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotSite.Cookie != "session=abc" {
			t.Errorf("expected site cookie to reach the fetcher factory, got %q", gotSite.Cookie)
		}
		if _, ok := rep.Links["http://example.com/private/x"]; ok {
			t.Error("ignored path was crawled")
		}
		if _, ok := rep.Links["http://example.com/public"]; !ok {
			t.Errorf("expected /public to be crawled, got %v", rep.Pages())
		}
	})

	t.Run("invalid seed is an error", func(t *testing.T) {
		t.Parallel()

		rep := model.NewCrawlReport("ftp://example.com/")
		step := NewCrawlStep(testConfig(), WithFetcherFactory(staticFactory(&pageFetcher{})))
		if err := step.Do(context.Background(), rep); !errors.Is(err, crawler.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})

	t.Run("fetcher construction errors are returned", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.ProxyAddress = "not-an-address"

		rep := model.NewCrawlReport("http://example.com/")
		if err := NewCrawlStep(cfg).Do(context.Background(), rep); !errors.Is(err, fetcher.ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("cancellation is not a step error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rep := model.NewCrawlReport("http://example.com/")
		step := NewCrawlStep(testConfig(), WithFetcherFactory(staticFactory(&pageFetcher{})))
		if err := step.Do(ctx, rep); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if !rep.Interrupted {
			t.Error("expected report to be marked interrupted")
		}
	})
}

// fakeSaver records saved reports.
type fakeSaver struct {
	mu    sync.Mutex
	saved []*model.CrawlReport
	err   error
}

func (s *fakeSaver) SaveCrawl(_ context.Context, r *model.CrawlReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, r)
	return nil
}

// TestPersistStep tests storing reports.
func TestPersistStep(t *testing.T) {
	t.Parallel()

	t.Run("saves to the database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		rep := model.NewCrawlReport("http://example.com/")
		rep.Domain = "example.com"
		rep.FinishedAt = rep.StartedAt.Add(time.Second)
		rep.AddPage("http://example.com/", []string{"http://example.com/a"})
		rep.AddFailure("http://example.com/a", 3)

		if err := NewPersistStep(db, nil).Do(context.Background(), rep); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := db.GetCrawl(context.Background(), rep.ID)
		if err != nil {
			t.Fatalf("failed to load crawl: %v", err)
		}
		if !slices.Equal(got.Links["http://example.com/"], []string{"http://example.com/a"}) {
			t.Errorf("unexpected links %v", got.Links)
		}
		if got.Failed["http://example.com/a"] != 3 {
			t.Errorf("unexpected failures %v", got.Failed)
		}
	})

	t.Run("wraps save errors", func(t *testing.T) {
		t.Parallel()

		saveErr := errors.New("disk full")
		err := NewPersistStep(&fakeSaver{err: saveErr}, nil).Do(context.Background(), model.NewCrawlReport("http://example.com/"))
		if !errors.Is(err, saveErr) {
			t.Errorf("expected wrapped save error, got %v", err)
		}
	})
}

// TestReportStep tests rendering reports.
func TestReportStep(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rep := model.NewCrawlReport("http://example.com/")
	rep.AddPage("http://example.com/", nil)

	if err := NewReportStep(report.NewSimpleWriter(&buf)).Do(context.Background(), rep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "CRAWL REPORT: http://example.com/") {
		t.Errorf("expected report output, got %q", buf.String())
	}
}

// TestDefaultPipeline tests the standard step layout.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("crawl then persist then report", func(t *testing.T) {
		t.Parallel()

		pages := &pageFetcher{pages: map[string]string{"http://example.com/": `<a href="/">self</a>`}}
		saver := &fakeSaver{}
		var buf bytes.Buffer

		p := DefaultPipeline(
			NewCrawlStep(testConfig(), WithFetcherFactory(staticFactory(pages))),
			saver,
			NewReportStep(report.NewJSONWriter(&buf)),
		)

		rep := model.NewCrawlReport("http://example.com/")
		if err := p.Execute(context.Background(), rep); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"crawl", "persist", "report"}
		if !slices.Equal(rep.PerformedSteps, want) {
			t.Errorf("expected steps %v, got %v", want, rep.PerformedSteps)
		}
		if len(saver.saved) != 1 {
			t.Errorf("expected one saved report, got %d", len(saver.saved))
		}
		if !strings.Contains(buf.String(), `"seed":"http://example.com/"`) {
			t.Errorf("expected JSON report, got %q", buf.String())
		}
	})

	t.Run("without saver or writer only crawls", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(NewCrawlStep(testConfig()), nil, nil)
		if !slices.Equal(p.StepNames(), []string{"crawl"}) {
			t.Errorf("unexpected steps %v", p.StepNames())
		}
	})
}
