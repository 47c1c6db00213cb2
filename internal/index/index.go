// Package index persists a queryable mirror of the note corpus in a
// single-writer SQLite database: structured rows, an FTS5 virtual
// table for ranked retrieval, and the link graph.
package index

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sgx-labs/notevault/internal/logging"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// schemaVersion is the current schema. Migrations apply in sequence;
// migration i brings the database to version i+1.
const schemaVersion = 2

// DB wraps a SQLite connection. Writes are serialized through mu; reads
// may run concurrently under WAL.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex

	ftsAvailable bool
	cache        *queryCache
}

// Open opens or creates the index database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, vaulterr.Wrap(vaulterr.StorageError, err, "create index dir")
	}

	conn, err := sql.Open("sqlite3",
		path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.StorageError, err, "open index %s", path)
	}
	// Single writer; keep the pool at one connection so PRAGMAs and the
	// write mutex actually serialize everything.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, cache: newQueryCache()}
	if err := db.setup(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens an in-memory index for testing.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.StorageError, err, "open in-memory index")
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, cache: newQueryCache()}
	if err := db.setup(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) setup() error {
	pragmas := []string{
		"PRAGMA page_size = 4096",
		"PRAGMA cache_size = -10240", // ~10 MiB
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456", // 256 MiB
	}
	for _, p := range pragmas {
		if _, err := db.conn.Exec(p); err != nil {
			logging.Warnf("pragma failed: %s: %v", p, err)
		}
	}

	if err := db.migrate(); err != nil {
		return err
	}
	db.ensureFTS()
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying connection for diagnostics.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// FTSAvailable reports whether the FTS5 virtual table could be created.
// When false, Search falls back to LIKE-based matching.
func (db *DB) FTSAvailable() bool {
	return db.ftsAvailable
}

// migrations[i] migrates the schema from version i to i+1.
var migrations = [][]string{
	{ // v1: metadata, note rows, link graph
		`CREATE TABLE IF NOT EXISTS index_metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			uid TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT DEFAULT '',
			file_path TEXT NOT NULL,
			project TEXT DEFAULT '',
			tags TEXT DEFAULT '[]',
			content_hash TEXT NOT NULL,
			created TEXT NOT NULL,
			updated TEXT NOT NULL,
			indexed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_file_path ON notes(file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated)`,
		`CREATE TABLE IF NOT EXISTS links (
			source_uid TEXT NOT NULL,
			target_uid TEXT NOT NULL,
			link_type TEXT NOT NULL,
			strength REAL NOT NULL DEFAULT 1.0,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			PRIMARY KEY (source_uid, target_uid, link_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_uid)`,
	},
	{ // v2: per-note word counts for vault analytics
		`ALTER TABLE notes ADD COLUMN word_count INTEGER NOT NULL DEFAULT 0`,
	},
}

func (db *DB) migrate() error {
	// Version probe. A missing table means a fresh database.
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS index_metadata (
		key TEXT PRIMARY KEY, value TEXT NOT NULL DEFAULT '')`); err != nil {
		return vaulterr.Wrap(vaulterr.StorageError, err, "create index_metadata")
	}

	current := 0
	if v, ok := db.GetMeta("schema_version"); ok {
		current, _ = strconv.Atoi(v)
	}
	if current > schemaVersion {
		return vaulterr.New(vaulterr.IndexCorrupted,
			"index schema version %d is newer than supported %d", current, schemaVersion)
	}

	for v := current; v < schemaVersion; v++ {
		for _, stmt := range migrations[v] {
			if _, err := db.conn.Exec(stmt); err != nil {
				return vaulterr.Wrap(vaulterr.StorageError, err, "migration to v%d", v+1)
			}
		}
	}
	return db.SetMeta("schema_version", strconv.Itoa(schemaVersion))
}

// ensureFTS creates the FTS5 virtual table. Builds without FTS5 degrade
// to LIKE-based search rather than failing open.
func (db *DB) ensureFTS() {
	_, err := db.conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
		title, content, tags, category, project, uid UNINDEXED,
		tokenize = 'unicode61 remove_diacritics 2'
	)`)
	if err != nil {
		logging.Warnf("FTS5 unavailable, falling back to keyword search: %v", err)
		db.ftsAvailable = false
		return
	}
	db.ftsAvailable = true
}

// GetMeta reads a value from index_metadata.
func (db *DB) GetMeta(key string) (string, bool) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM index_metadata WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetMeta upserts a value into index_metadata.
func (db *DB) SetMeta(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`INSERT INTO index_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return vaulterr.Wrap(vaulterr.StorageError, err, "set metadata %s", key)
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
