package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "List and show stored crawl sessions",
		Long: `History lists the crawl sessions stored in the database, newest first.

Every 'sitecrawl crawl' run stores its results unless --no-db is given. Use
--show to render a stored session again in any report format.

Examples:
  # List every stored session
  sitecrawl history

  # List the sessions of one seed
  sitecrawl history https://example.com/

  # Show a stored session as Markdown
  sitecrawl history --show 0b9e6c1e-... --markdown

  # Delete a stored session
  sitecrawl history --delete 0b9e6c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("show", "s", "",
		"Render the stored session with this ID")
	cmd.Flags().String("delete", "",
		"Delete the stored session with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Render --show output as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Render --show output as Markdown (mutually exclusive with --json)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")
	cmd.Flags().String("dsn", "",
		"Read from PostgreSQL instead of SQLite")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	showID, err := flags.GetString("show")
	if err != nil {
		return err
	}
	deleteID, err := flags.GetString("delete")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	dsn, err := flags.GetString("dsn")
	if err != nil {
		return err
	}

	// Validate before opening the database so bad flags never create a file.
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	if showID != "" && deleteID != "" {
		return errors.New("--show and --delete cannot be used together")
	}

	ctx := cmd.Context()
	db, err := openDatabase(ctx, dsn, dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	switch {
	case showID != "":
		cfg := config.NewConfig()
		cfg.JSONReport, cfg.MarkdownReport, cfg.Verbose = jsonOutput, markdownOutput, getVerboseFlag(cmd)
		return showSession(ctx, db, showID, newReportWriter(cfg, out))
	case deleteID != "":
		if err := db.DeleteSession(ctx, deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted session %s\n", deleteID)
		return nil
	}

	var seed string
	if len(args) > 0 {
		seed = normalizeSeed(args[0])
	}
	return listSessions(ctx, db, seed, out)
}

// showSession renders one stored session.
func showSession(ctx context.Context, db *database.CrawlDB, id string, w report.Writer) error {
	rep, err := db.GetCrawl(ctx, id)
	if err != nil {
		return err
	}
	_, err = w.Write(rep)
	return err
}

// listSessions prints a table of stored sessions.
func listSessions(ctx context.Context, db *database.CrawlDB, seed string, out io.Writer) error {
	sessions, err := db.ListSessions(ctx, seed)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		if seed != "" {
			fmt.Fprintf(out, "No crawl sessions found for %s\n", seed)
		} else {
			fmt.Fprintln(out, "No crawl sessions found.")
		}
		fmt.Fprintln(out, "\nUse 'sitecrawl crawl <seed-url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawl sessions (%d):\n\n", len(sessions))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %6s  %-11s  %s\n", "ID", "Started", "Pages", "Failed", "Status", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, s := range sessions {
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %6d  %-11s  %s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Pages,
			s.Failed,
			sessionStatus(s),
			s.Seed)
	}
	fmt.Fprintln(out, "\nUse 'sitecrawl history --show <id>' to see a session's pages.")
	return nil
}

func sessionStatus(s database.SessionMetadata) string {
	switch {
	case s.Interrupted:
		return "interrupted"
	case s.Error != "":
		return "error"
	default:
		return "complete"
	}
}
