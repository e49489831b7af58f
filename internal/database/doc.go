// Package database stores crawl sessions.
//
// CrawlDB keeps one row per session plus the pages, links and failures it
// produced, so past crawls can be listed and rendered again. Two backends
// share the same schema and queries:
//
//   - SQLite through modernc.org/sqlite, the default. The database is a
//     single file under the XDG data directory and needs no server.
//   - PostgreSQL through github.com/lib/pq, selected with a DSN, for
//     teams that want crawl history in a shared database.
//
// Queries are written with "?" placeholders and rebound to "$n" for
// PostgreSQL. Timestamps are stored as fixed-width UTC text so that both
// backends sort them the same way.
package database
