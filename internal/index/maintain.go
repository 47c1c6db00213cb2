package index

import (
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Optimize compacts the FTS structures and the database file, and
// records the vacuum timestamp.
func (db *DB) Optimize() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.ftsAvailable {
		if _, err := db.conn.Exec(`INSERT INTO notes_fts(notes_fts) VALUES('optimize')`); err != nil {
			return vaulterr.Wrap(vaulterr.StorageError, err, "fts optimize")
		}
	}
	if _, err := db.conn.Exec(`VACUUM`); err != nil {
		return vaulterr.Wrap(vaulterr.StorageError, err, "vacuum")
	}
	_, err := db.conn.Exec(`INSERT INTO index_metadata (key, value) VALUES ('last_vacuum', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, nowRFC3339())
	return err
}

// IntegrityCheck runs SQLite's integrity check and verifies the FTS
// mirror has one entry per note row.
func (db *DB) IntegrityCheck() error {
	var result string
	if err := db.conn.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return vaulterr.Wrap(vaulterr.IndexCorrupted, err, "integrity check")
	}
	if result != "ok" {
		return vaulterr.New(vaulterr.IndexCorrupted, "integrity check failed: %s", result)
	}

	if db.ftsAvailable {
		var notes, fts int
		if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&notes); err != nil {
			return vaulterr.Wrap(vaulterr.IndexQueryError, err, "count notes")
		}
		if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes_fts`).Scan(&fts); err != nil {
			return vaulterr.Wrap(vaulterr.IndexQueryError, err, "count fts")
		}
		if notes != fts {
			return vaulterr.New(vaulterr.IndexCorrupted,
				"fts mirror out of sync: %d notes, %d fts entries", notes, fts)
		}
	}
	return nil
}

// Stats summarizes the index for diagnostics.
type Stats struct {
	Notes         int    `json:"notes"`
	Links         int    `json:"links"`
	Orphans       int    `json:"orphans"`
	SchemaVersion string `json:"schemaVersion"`
	LastVacuum    string `json:"lastVacuum,omitempty"`
	FTSAvailable  bool   `json:"ftsAvailable"`
}

// Stats returns current index statistics.
func (db *DB) Stats() (Stats, error) {
	s := Stats{FTSAvailable: db.ftsAvailable}

	var err error
	if s.Notes, err = db.NoteCount(); err != nil {
		return s, vaulterr.Wrap(vaulterr.IndexQueryError, err, "stats notes")
	}
	if s.Links, err = db.LinkCount(); err != nil {
		return s, vaulterr.Wrap(vaulterr.IndexQueryError, err, "stats links")
	}
	orphans, err := db.GetOrphanNotes()
	if err != nil {
		return s, err
	}
	s.Orphans = len(orphans)
	s.SchemaVersion, _ = db.GetMeta("schema_version")
	s.LastVacuum, _ = db.GetMeta("last_vacuum")
	return s, nil
}
