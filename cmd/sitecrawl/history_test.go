package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
)

// seedHistory stores one crawl in a fresh database directory.
func seedHistory(t *testing.T) (string, *model.CrawlReport) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	rep := model.NewCrawlReport("https://example.com/")
	rep.Domain = "example.com"
	rep.FinishedAt = rep.StartedAt.Add(2 * time.Second)
	rep.AddPage("https://example.com/", []string{"https://example.com/about"})
	rep.AddPage("https://example.com/about", nil)
	rep.AddFailure("https://example.com/gone", 3)

	if err := db.SaveCrawl(context.Background(), rep); err != nil {
		t.Fatalf("failed to save crawl: %v", err)
	}
	return dir, rep
}

func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewHistoryCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestHistoryCmd tests listing, showing and deleting sessions.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists sessions", func(t *testing.T) {
		t.Parallel()

		dir, rep := seedHistory(t)
		out, err := runHistory(t, "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Crawl sessions (1)", rep.ID, "complete", rep.Seed} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("filters by seed", func(t *testing.T) {
		t.Parallel()

		dir, _ := seedHistory(t)
		out, err := runHistory(t, "--db-dir", dir, "other.example")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No crawl sessions found for https://other.example") {
			t.Errorf("unexpected output\n%s", out)
		}
	})

	t.Run("shows a session", func(t *testing.T) {
		t.Parallel()

		dir, rep := seedHistory(t)
		out, err := runHistory(t, "--db-dir", dir, "--show", rep.ID, "--markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "# Crawl Report") || !strings.Contains(out, "https://example.com/gone") {
			t.Errorf("unexpected output\n%s", out)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()

		dir, _ := seedHistory(t)
		if _, err := runHistory(t, "--db-dir", dir, "--show", "missing"); !errors.Is(err, database.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("deletes a session", func(t *testing.T) {
		t.Parallel()

		dir, rep := seedHistory(t)
		if _, err := runHistory(t, "--db-dir", dir, "--delete", rep.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := runHistory(t, "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, rep.ID) {
			t.Error("deleted session is still listed")
		}
	})

	t.Run("rejects conflicting formats", func(t *testing.T) {
		t.Parallel()

		if _, err := runHistory(t, "--db-dir", t.TempDir(), "-j", "-m", "--show", "x"); !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}
