package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/model"
)

// newTestSite serves a three page site where /broken always fails.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="/docs">Docs</a> <a href="/broken">Broken</a>`)
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="/">Home</a>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestNewCrawlCmd tests the crawl command flags.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"concurrency", "n", "5"},
		{"retries", "r", "3"},
		{"delay", "", "100ms"},
		{"timeout", "t", "30s"},
		{"max-pages", "p", "0"},
		{"depth", "d", "0"},
		{"batch", "b", "2"},
		{"proxy", "", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
		{"no-db", "", "false"},
		{"dsn", "", ""},
		{"config", "c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestBuildConfig tests turning flags into a Config.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("maps flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-n", "2", "-r", "0", "--delay", "1s", "-p", "50", "--no-db", "-j"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"example.com", "http://example.org/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxConcurrency != 2 || cfg.MaxRetries != 0 || cfg.MaxPages != 50 {
			t.Errorf("unexpected limits %+v", cfg)
		}
		if cfg.InitialDelay != time.Second {
			t.Errorf("expected delay 1s, got %v", cfg.InitialDelay)
		}
		if cfg.SaveToDB {
			t.Error("expected --no-db to disable the database")
		}
		if !cfg.JSONReport {
			t.Error("expected JSON report")
		}
		if cfg.Seeds[0] != "https://example.com" || cfg.Seeds[1] != "http://example.org/" {
			t.Errorf("unexpected seeds %v", cfg.Seeds)
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"http://example.com/"}); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads site overrides", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".sitecrawl")
		content := "sites:\n  example.com:\n    maxConcurrency: 1\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"http://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, _ := cfg.ForHost("example.com"); got.MaxConcurrency != 1 {
			t.Errorf("expected per-host concurrency 1, got %d", got.MaxConcurrency)
		}
	})
}

// TestNormalizeSeed tests adding a scheme to bare hosts.
func TestNormalizeSeed(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"example.com":          "https://example.com",
		" http://example.com ": "http://example.com",
		"https://example.com/": "https://example.com/",
		"":                     "",
	}
	for in, want := range tests {
		if got := normalizeSeed(in); got != want {
			t.Errorf("normalizeSeed(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestCrawlErrors tests summarizing failed sessions.
func TestCrawlErrors(t *testing.T) {
	t.Parallel()

	ok := model.NewCrawlReport("http://a.example/")
	bad := model.NewCrawlReport("http://b.example/")
	bad.SetError(errors.New("boom"))

	if err := crawlErrors([]*model.CrawlReport{ok, nil}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	err := crawlErrors([]*model.CrawlReport{ok, bad})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("unexpected error %v", err)
	}
}

// TestRunCrawlCmd tests crawls from the command line.
func TestRunCrawlCmd(t *testing.T) {
	t.Parallel()

	t.Run("rejects conflicting report formats", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"crawl", "--no-db", "-j", "-m", "http://example.com/"})
		if err := cmd.Execute(); !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("invalid seed fails the crawl", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"crawl", "--no-db", "ftp://example.com/"})
		if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "1 of 1 crawls failed") {
			t.Errorf("expected crawl failure, got %v", err)
		}
	})

	t.Run("crawls a site, stores it and prints JSON", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		dbDir := t.TempDir()

		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{
			"crawl", "--json", "--delay", "0s", "--retries", "2", "--retry-base", "1ms",
			"--db-dir", dbDir, server.URL + "/",
		})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			ID     string              `json:"id"`
			Links  map[string][]string `json:"links"`
			Failed map[string]int      `json:"failed"`
		}
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
		}
		if len(got.Links) != 2 {
			t.Errorf("expected 2 pages, got %v", got.Links)
		}
		if got.Failed[server.URL+"/broken"] != 2 {
			t.Errorf("expected /broken to fail twice, got %v", got.Failed)
		}

		var history bytes.Buffer
		hist := NewRootCmd()
		hist.SetOut(&history)
		hist.SetArgs([]string{"history", "--db-dir", dbDir})
		if err := hist.Execute(); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(history.String(), got.ID) {
			t.Errorf("expected stored session %s in history\n%s", got.ID, history.String())
		}
	})

	t.Run("writes markdown to a file", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		reportPath := filepath.Join(t.TempDir(), "out", "report.md")

		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{
			"crawl", "--markdown", "-o", reportPath, "--no-db", "--delay", "0s", "-r", "0",
			server.URL + "/",
		})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Crawl Report") {
			t.Errorf("expected markdown report, got %q", content)
		}
		if !strings.Contains(string(content), server.URL+"/broken") {
			t.Error("expected failed page in report")
		}
	})
}
