package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// DBFileName is the SQLite database file inside the database directory.
const DBFileName = "sitecrawl.db"

// ErrSessionNotFound is returned when no session has the requested ID.
var ErrSessionNotFound = errors.New("crawl session not found")

// dialect selects placeholder syntax.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// CrawlDB stores crawl sessions in SQLite or PostgreSQL.
type CrawlDB struct {
	db      *sql.DB
	dialect dialect

	// location is the SQLite file path, or "postgres" for a DSN connection.
	location string
}

// Options configures how the SQLite database is opened.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the SQLite database in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dialect: dialectSQLite, location: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// OpenPostgres connects to PostgreSQL with dsn and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*CrawlDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	cdb := &CrawlDB{db: db, dialect: dialectPostgres, location: "postgres"}
	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Location returns the SQLite file path, or "postgres".
func (cdb *CrawlDB) Location() string {
	return cdb.location
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	seed TEXT NOT NULL,
	domain TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	interrupted INTEGER NOT NULL DEFAULT 0,
	page_count INTEGER NOT NULL DEFAULT 0,
	failed_count INTEGER NOT NULL DEFAULT 0,
	final_delay_ms BIGINT NOT NULL DEFAULT 0,
	stats_json TEXT NOT NULL,
	steps TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_seed ON sessions(seed);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

CREATE TABLE IF NOT EXISTS pages (
	session_id TEXT NOT NULL,
	url TEXT NOT NULL,
	PRIMARY KEY (session_id, url)
);

CREATE TABLE IF NOT EXISTS page_links (
	session_id TEXT NOT NULL,
	url TEXT NOT NULL,
	position INTEGER NOT NULL,
	link TEXT NOT NULL,
	PRIMARY KEY (session_id, url, position)
);

CREATE INDEX IF NOT EXISTS idx_page_links_link ON page_links(link);

CREATE TABLE IF NOT EXISTS failures (
	session_id TEXT NOT NULL,
	url TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	PRIMARY KEY (session_id, url)
);
`

func (cdb *CrawlDB) createTables(ctx context.Context) error {
	_, err := cdb.db.ExecContext(ctx, schema)
	return err
}

// rebind converts "?" placeholders to "$1", "$2", ... for PostgreSQL.
func (cdb *CrawlDB) rebind(query string) string {
	if cdb.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveCrawl stores report, replacing any earlier copy of the same session.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, report *model.CrawlReport) (err error) {
	statsJSON, err := json.Marshal(report.Stats)
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, cdb.rebind(`
	INSERT INTO sessions (id, seed, domain, started_at, finished_at, interrupted,
		page_count, failed_count, final_delay_ms, stats_json, steps, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		seed = excluded.seed,
		domain = excluded.domain,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		interrupted = excluded.interrupted,
		page_count = excluded.page_count,
		failed_count = excluded.failed_count,
		final_delay_ms = excluded.final_delay_ms,
		stats_json = excluded.stats_json,
		steps = excluded.steps,
		error = excluded.error
	`),
		report.ID,
		report.Seed,
		report.Domain,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		boolToInt(report.Interrupted),
		len(report.Links),
		len(report.Failed),
		report.FinalDelay.Milliseconds(),
		string(statsJSON),
		strings.Join(report.PerformedSteps, ","),
		report.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for _, table := range []string{"pages", "page_links", "failures"} {
		if _, err = tx.ExecContext(ctx, cdb.rebind("DELETE FROM "+table+" WHERE session_id = ?"), report.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err = cdb.insertPages(ctx, tx, report); err != nil {
		return err
	}
	if err = cdb.insertFailures(ctx, tx, report); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func (cdb *CrawlDB) insertPages(ctx context.Context, tx *sql.Tx, report *model.CrawlReport) error {
	pageStmt, err := tx.PrepareContext(ctx, cdb.rebind("INSERT INTO pages (session_id, url) VALUES (?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer pageStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, cdb.rebind(
		"INSERT INTO page_links (session_id, url, position, link) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, page := range report.Pages() {
		if _, err := pageStmt.ExecContext(ctx, report.ID, page); err != nil {
			return fmt.Errorf("failed to insert page %s: %w", page, err)
		}
		for i, link := range report.Links[page] {
			if _, err := linkStmt.ExecContext(ctx, report.ID, page, i, link); err != nil {
				return fmt.Errorf("failed to insert link of %s: %w", page, err)
			}
		}
	}
	return nil
}

func (cdb *CrawlDB) insertFailures(ctx context.Context, tx *sql.Tx, report *model.CrawlReport) error {
	stmt, err := tx.PrepareContext(ctx, cdb.rebind(
		"INSERT INTO failures (session_id, url, attempts) VALUES (?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare failure insert: %w", err)
	}
	defer stmt.Close()

	for _, page := range report.FailedPages() {
		if _, err := stmt.ExecContext(ctx, report.ID, page, report.Failed[page]); err != nil {
			return fmt.Errorf("failed to insert failure %s: %w", page, err)
		}
	}
	return nil
}

// GetCrawl loads a stored session by ID. It returns ErrSessionNotFound if
// no session has that ID.
func (cdb *CrawlDB) GetCrawl(ctx context.Context, id string) (*model.CrawlReport, error) {
	report := &model.CrawlReport{
		Links:  make(map[string][]string),
		Failed: make(map[string]int),
	}

	var (
		startedAt, finishedAt string
		interrupted           int
		finalDelayMS          int64
		statsJSON, steps      string
	)
	err := cdb.db.QueryRowContext(ctx, cdb.rebind(`
	SELECT id, seed, domain, started_at, finished_at, interrupted, final_delay_ms, stats_json, steps, error
	FROM sessions
	WHERE id = ?
	`), id).Scan(
		&report.ID,
		&report.Seed,
		&report.Domain,
		&startedAt,
		&finishedAt,
		&interrupted,
		&finalDelayMS,
		&statsJSON,
		&steps,
		&report.ErrorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	report.StartedAt = parseTimestamp(startedAt)
	report.FinishedAt = parseTimestamp(finishedAt)
	report.Interrupted = interrupted != 0
	report.FinalDelay = time.Duration(finalDelayMS) * time.Millisecond
	if steps != "" {
		report.PerformedSteps = strings.Split(steps, ",")
	}
	if err := json.Unmarshal([]byte(statsJSON), &report.Stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}

	if err := cdb.loadPages(ctx, report); err != nil {
		return nil, err
	}
	if err := cdb.loadFailures(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (cdb *CrawlDB) loadPages(ctx context.Context, report *model.CrawlReport) error {
	rows, err := cdb.db.QueryContext(ctx, cdb.rebind("SELECT url FROM pages WHERE session_id = ?"), report.ID)
	if err != nil {
		return fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var page string
		if err := rows.Scan(&page); err != nil {
			return fmt.Errorf("failed to scan page: %w", err)
		}
		report.Links[page] = []string{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	linkRows, err := cdb.db.QueryContext(ctx, cdb.rebind(`
	SELECT url, link FROM page_links
	WHERE session_id = ?
	ORDER BY url, position
	`), report.ID)
	if err != nil {
		return fmt.Errorf("failed to query links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var page, link string
		if err := linkRows.Scan(&page, &link); err != nil {
			return fmt.Errorf("failed to scan link: %w", err)
		}
		report.Links[page] = append(report.Links[page], link)
	}
	return linkRows.Err()
}

func (cdb *CrawlDB) loadFailures(ctx context.Context, report *model.CrawlReport) error {
	rows, err := cdb.db.QueryContext(ctx, cdb.rebind("SELECT url, attempts FROM failures WHERE session_id = ?"), report.ID)
	if err != nil {
		return fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var page string
		var attempts int
		if err := rows.Scan(&page, &attempts); err != nil {
			return fmt.Errorf("failed to scan failure: %w", err)
		}
		report.Failed[page] = attempts
	}
	return rows.Err()
}

// SessionMetadata summarizes a stored session without loading its pages.
type SessionMetadata struct {
	ID          string
	Seed        string
	Domain      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Pages       int
	Failed      int
	Interrupted bool
	Error       string
}

// Duration returns how long the session ran.
func (m SessionMetadata) Duration() time.Duration {
	if m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// ListSessions returns stored sessions, newest first. A non-empty seed
// restricts the list to that seed.
func (cdb *CrawlDB) ListSessions(ctx context.Context, seed string) ([]SessionMetadata, error) {
	query := `
	SELECT id, seed, domain, started_at, finished_at, page_count, failed_count, interrupted, error
	FROM sessions
	`
	args := make([]any, 0, 1)
	if seed != "" {
		query += " WHERE seed = ?"
		args = append(args, seed)
	}
	query += " ORDER BY started_at DESC"

	rows, err := cdb.db.QueryContext(ctx, cdb.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionMetadata
	for rows.Next() {
		var meta SessionMetadata
		var startedAt, finishedAt string
		var interrupted int
		if err := rows.Scan(&meta.ID, &meta.Seed, &meta.Domain, &startedAt, &finishedAt,
			&meta.Pages, &meta.Failed, &interrupted, &meta.Error); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt)
		meta.Interrupted = interrupted != 0
		results = append(results, meta)
	}
	return results, rows.Err()
}

// DeleteSession removes a session and everything it recorded.
func (cdb *CrawlDB) DeleteSession(ctx context.Context, id string) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"pages", "page_links", "failures"} {
		if _, err = tx.ExecContext(ctx, cdb.rebind("DELETE FROM "+table+" WHERE session_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, cdb.rebind("DELETE FROM sessions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // both drivers report affected rows
		err = fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampLayout is fixed width so that text order is time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order when reading timestamps back.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time if s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
