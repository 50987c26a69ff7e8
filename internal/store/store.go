// Package store provides SQLite-backed persistence for the engagic pipeline:
// cities, meetings, agenda items, the processing queue, and the summary
// cache. It is the single writer for all entity state; adapters and the
// processor produce values, the store assigns surrogate keys where needed.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a single SQLite connection. One process owns one Store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS cities (
	banana TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	state TEXT NOT NULL,
	county TEXT NOT NULL DEFAULT '',
	vendor TEXT NOT NULL,
	slug TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	view_id INTEGER NOT NULL DEFAULT 0,
	last_synced_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cities_name_state ON cities(name, state);

CREATE TABLE IF NOT EXISTS zipcodes (
	zipcode TEXT PRIMARY KEY,
	banana TEXT NOT NULL REFERENCES cities(banana)
);

CREATE TABLE IF NOT EXISTS meetings (
	id TEXT PRIMARY KEY,
	banana TEXT NOT NULL REFERENCES cities(banana),
	title TEXT NOT NULL,
	meeting_date DATETIME,
	packet_url TEXT,
	agenda_url TEXT,
	status TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	topics TEXT NOT NULL DEFAULT '[]',
	processing_status TEXT NOT NULL DEFAULT 'pending',
	processing_method TEXT NOT NULL DEFAULT '',
	processing_time REAL NOT NULL DEFAULT 0,
	participation TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_meetings_banana ON meetings(banana);
CREATE INDEX IF NOT EXISTS idx_meetings_processing_status ON meetings(processing_status);

CREATE TABLE IF NOT EXISTS agenda_items (
	id TEXT PRIMARY KEY,
	meeting_id TEXT NOT NULL REFERENCES meetings(id),
	title TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	item_number TEXT NOT NULL DEFAULT '',
	section TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	topics TEXT NOT NULL DEFAULT '[]',
	matter_id TEXT NOT NULL DEFAULT '',
	matter_file TEXT NOT NULL DEFAULT '',
	matter_type TEXT NOT NULL DEFAULT '',
	sponsors TEXT NOT NULL DEFAULT '[]',
	summarized INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_agenda_items_meeting ON agenda_items(meeting_id);
CREATE INDEX IF NOT EXISTS idx_agenda_items_matter_file ON agenda_items(matter_file);

CREATE TABLE IF NOT EXISTS attachments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL REFERENCES agenda_items(id),
	name TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'unknown',
	content TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_attachments_item ON attachments(item_id);

CREATE TABLE IF NOT EXISTS processing_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	packet_url TEXT NOT NULL UNIQUE,
	meeting_id TEXT NOT NULL REFERENCES meetings(id),
	banana TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	retry_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at DATETIME,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_queue_status_priority ON processing_queue(status, priority DESC, created_at ASC);

CREATE TABLE IF NOT EXISTS cache_entries (
	packet_url TEXT PRIMARY KEY,
	summary TEXT NOT NULL,
	processing_time REAL NOT NULL DEFAULT 0,
	hit_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	last_accessed DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS matters (
	id TEXT PRIMARY KEY,
	banana TEXT NOT NULL,
	matter_file TEXT NOT NULL,
	matter_type TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	canonical_summary TEXT NOT NULL DEFAULT '',
	canonical_topics TEXT NOT NULL DEFAULT '[]',
	sponsors TEXT NOT NULL DEFAULT '[]',
	first_seen DATETIME NOT NULL DEFAULT (datetime('now')),
	last_seen DATETIME NOT NULL DEFAULT (datetime('now')),
	appearance_count INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_matters_banana_file ON matters(banana, matter_file);

CREATE TABLE IF NOT EXISTS matter_appearances (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	matter_id TEXT NOT NULL REFERENCES matters(id),
	meeting_id TEXT NOT NULL REFERENCES meetings(id),
	item_id TEXT NOT NULL REFERENCES agenda_items(id),
	appeared_at DATETIME NOT NULL DEFAULT (datetime('now')),
	vote_outcome TEXT NOT NULL DEFAULT '',
	vote_tally TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_matter_appearances_matter ON matter_appearances(matter_id);

CREATE TABLE IF NOT EXISTS council_members (
	banana TEXT NOT NULL,
	name TEXT NOT NULL,
	seat TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (banana, name)
);

CREATE TABLE IF NOT EXISTS votes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL REFERENCES agenda_items(id),
	meeting_id TEXT NOT NULL REFERENCES meetings(id),
	member TEXT NOT NULL,
	vote TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_votes_item ON votes(item_id);
`

// Open creates or opens a SQLite database at dbPath and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers that need raw access
// (migrations, ad-hoc inspection tooling).
func (s *Store) DB() *sql.DB {
	return s.db
}
