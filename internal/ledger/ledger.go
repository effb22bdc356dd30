// Package ledger persists operational events (client connect/disconnect,
// rejected frames, backpressure skips) to an append-only SQLite table,
// grounded on the teacher's store.go: an ordered migrations slice tracked
// in a schema_migrations table, WAL mode plus a busy timeout for concurrent
// readers, and a single-writer *sql.DB wrapped in a small typed API rather
// than exposing database/sql to callers.
package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// maxEvents bounds the table; RecordEvent purges older rows beyond this,
// the same auto-purge pattern as the teacher's audit_log (which caps at
// 10,000 rows rather than 50,000).
const maxEvents = 50000

// migrations holds the ordered list of DDL statements that bring the
// schema up to date. Index i corresponds to version i+1; never edit or
// reorder existing entries, only append.
var migrations = []string{
	// v1 — operational event log
	`CREATE TABLE IF NOT EXISTS events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id   INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		detail      TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
	`CREATE INDEX IF NOT EXISTS idx_events_client ON events(client_id)`,
}

// Kind enumerates the operational events the core fanout engine reports.
type Kind string

const (
	ClientConnected    Kind = "client_connected"
	ClientDisconnected Kind = "client_disconnected"
	FrameRejected      Kind = "frame_rejected"
	BackpressureSkip   Kind = "backpressure_skip"
)

// EventSink is the write-only interface internal/fanout depends on, so the
// core engine never imports database/sql directly — the same boundary the
// teacher draws between Room/Client logic and its store package.
type EventSink interface {
	RecordEvent(clientID uint32, kind Kind, detail string)
}

// Event is one row read back from the ledger.
type Event struct {
	ID        int64
	ClientID  uint32
	Kind      Kind
	Detail    string
	CreatedAt time.Time
}

// Ledger is a SQLite-backed EventSink.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies any
// pending migrations. Use ":memory:" for ephemeral in-process storage.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		log.Printf("[ledger] WAL mode: %v (non-fatal)", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		log.Printf("[ledger] busy_timeout: %v (non-fatal)", err)
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) migrate() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := l.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := l.db.Exec(
			`INSERT INTO schema_migrations(version) VALUES(?)`, v,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		log.Printf("[ledger] applied migration v%d", v)
	}
	return nil
}

// RecordEvent appends one row and purges entries beyond maxEvents. Errors
// are logged rather than returned, so a ledger failure never fails the
// real-time fanout path that calls it; both statements run synchronously
// on the caller's goroutine.
func (l *Ledger) RecordEvent(clientID uint32, kind Kind, detail string) {
	_, err := l.db.Exec(
		`INSERT INTO events(client_id, kind, detail, created_at) VALUES(?,?,?,?)`,
		clientID, string(kind), detail, time.Now().Unix(),
	)
	if err != nil {
		log.Printf("[ledger] insert event: %v", err)
		return
	}
	_, err = l.db.Exec(`DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)`, maxEvents)
	if err != nil {
		log.Printf("[ledger] purge events: %v", err)
	}
}

// RecentEvents returns the most recent events, optionally filtered by kind
// (pass "" for all kinds), most recent first.
func (l *Ledger) RecentEvents(kind Kind, limit int) ([]Event, error) {
	var rows *sql.Rows
	var err error
	if kind != "" {
		rows, err = l.db.Query(
			`SELECT id, client_id, kind, detail, created_at FROM events WHERE kind = ? ORDER BY id DESC LIMIT ?`,
			string(kind), limit,
		)
	} else {
		rows, err = l.db.Query(
			`SELECT id, client_id, kind, detail, created_at FROM events ORDER BY id DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var k string
		var ts int64
		if err := rows.Scan(&e.ID, &e.ClientID, &k, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("ledger: scan event: %w", err)
		}
		e.Kind = Kind(k)
		e.CreatedAt = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// EventCount returns the number of rows currently in the ledger.
func (l *Ledger) EventCount() (int, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// NoopSink discards every event; used when no EventSink is supplied
// (registry.New with a nil sink, and fanout.NewClient's default).
type NoopSink struct{}

func (NoopSink) RecordEvent(clientID uint32, kind Kind, detail string) {}
