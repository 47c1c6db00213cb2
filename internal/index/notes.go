package index

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Row mirrors one note in the structured notes table.
type Row struct {
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Category    string    `json:"category,omitempty"`
	FilePath    string    `json:"filePath"`
	Project     string    `json:"project,omitempty"`
	Tags        []string  `json:"tags"`
	ContentHash string    `json:"-"`
	WordCount   int       `json:"wordCount"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	IndexedAt   time.Time `json:"indexedAt"`
}

// IndexNote upserts a note into the structured table and the FTS
// mirror, then rebuilds its outbound link rows.
func (db *DB) IndexNote(n *note.Note) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "begin tx")
	}
	defer tx.Rollback()

	if err := db.indexNoteTx(tx, n); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "commit")
	}
	db.cache.invalidate()
	return nil
}

// BatchIndex indexes multiple notes in a single transaction.
func (db *DB) BatchIndex(notes []*note.Note) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "begin tx")
	}
	defer tx.Rollback()

	for _, n := range notes {
		if err := db.indexNoteTx(tx, n); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "commit batch")
	}
	db.cache.invalidate()
	return nil
}

func (db *DB) indexNoteTx(tx *sql.Tx, n *note.Note) error {
	fm := n.FrontMatter
	tagsJSON, _ := json.Marshal(nonNilStrings(fm.Tags))
	hash := ContentHash(n.Body)
	now := nowRFC3339()

	_, err := tx.Exec(`
		INSERT INTO notes (uid, title, category, file_path, project, tags,
			content_hash, word_count, created, updated, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			file_path = excluded.file_path,
			project = excluded.project,
			tags = excluded.tags,
			content_hash = excluded.content_hash,
			word_count = excluded.word_count,
			updated = excluded.updated,
			indexed_at = excluded.indexed_at`,
		fm.ID, fm.Title, fm.Category, n.Path, fm.Project, string(tagsJSON),
		hash, wordCount(n.Body),
		fm.Created.UTC().Format(time.RFC3339), fm.Updated.UTC().Format(time.RFC3339), now,
	)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "upsert note %s", fm.ID)
	}

	if db.ftsAvailable {
		if _, err := tx.Exec(`DELETE FROM notes_fts WHERE uid = ?`, fm.ID); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, err, "clear fts %s", fm.ID)
		}
		if _, err := tx.Exec(`
			INSERT INTO notes_fts (title, content, tags, category, project, uid)
			VALUES (?, ?, ?, ?, ?, ?)`,
			fm.Title, n.Body, strings.Join(fm.Tags, " "), fm.Category, fm.Project, fm.ID,
		); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, err, "insert fts %s", fm.ID)
		}
	}

	return rebuildLinksTx(tx, n)
}

// rebuildLinksTx replaces the outbound link rows for a note while
// preserving first_seen on surviving edges.
func rebuildLinksTx(tx *sql.Tx, n *note.Note) error {
	uid := n.FrontMatter.ID

	firstSeen := make(map[string]string)
	rows, err := tx.Query(
		`SELECT target_uid || '|' || link_type, first_seen FROM links WHERE source_uid = ?`, uid)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "read links %s", uid)
	}
	for rows.Next() {
		var key, seen string
		if err := rows.Scan(&key, &seen); err != nil {
			rows.Close()
			return vaulterr.Wrap(vaulterr.IndexBuildError, err, "scan links %s", uid)
		}
		firstSeen[key] = seen
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "iterate links %s", uid)
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source_uid = ?`, uid); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "clear links %s", uid)
	}

	extracted := note.ExtractLinks(n.Body)
	mdTargets := make(map[string]bool, len(extracted.Markdown))
	for _, t := range extracted.Markdown {
		mdTargets[t] = true
	}

	now := nowRFC3339()
	for _, target := range n.Outbound() {
		linkType := note.LinkTypeWiki
		if mdTargets[target] {
			linkType = note.LinkTypeMarkdown
		}
		seen := firstSeen[target+"|"+linkType]
		if seen == "" {
			seen = now
		}
		if _, err := tx.Exec(`
			INSERT INTO links (source_uid, target_uid, link_type, strength, first_seen, last_seen)
			VALUES (?, ?, ?, 1.0, ?, ?)
			ON CONFLICT(source_uid, target_uid, link_type) DO UPDATE SET last_seen = excluded.last_seen`,
			uid, target, linkType, seen, now,
		); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, err, "insert link %s -> %s", uid, target)
		}
	}
	return nil
}

// RemoveNote deletes a note's rows from all three tables.
func (db *DB) RemoveNote(uid string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM notes WHERE uid = ?`, uid); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "delete note %s", uid)
	}
	if db.ftsAvailable {
		if _, err := tx.Exec(`DELETE FROM notes_fts WHERE uid = ?`, uid); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, err, "delete fts %s", uid)
		}
	}
	if _, err := tx.Exec(`DELETE FROM links WHERE source_uid = ?`, uid); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "delete links %s", uid)
	}

	if err := tx.Commit(); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, err, "commit remove %s", uid)
	}
	db.cache.invalidate()
	return nil
}

// RemoveByPath deletes the note indexed at the given file path. Used by
// the watcher, which only knows the path of a removed file.
func (db *DB) RemoveByPath(path string) error {
	var uid string
	err := db.conn.QueryRow(`SELECT uid FROM notes WHERE file_path = ?`, path).Scan(&uid)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexQueryError, err, "lookup path %s", path)
	}
	return db.RemoveNote(uid)
}

// GetRow returns the structured row for a UID, or nil when absent.
func (db *DB) GetRow(uid string) (*Row, error) {
	rows, err := db.conn.Query(selectRow+` WHERE uid = ?`, uid)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "get row %s", uid)
	}
	defer rows.Close()

	all, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

// AllRows returns every indexed note.
func (db *DB) AllRows() ([]Row, error) {
	rows, err := db.conn.Query(selectRow + ` ORDER BY updated DESC`)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "all rows")
	}
	defer rows.Close()
	return scanRows(rows)
}

// ContentHashes returns uid -> content hash for incremental reindexing.
func (db *DB) ContentHashes() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT uid, content_hash FROM notes`)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "content hashes")
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var uid, hash string
		if err := rows.Scan(&uid, &hash); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "scan hash")
		}
		hashes[uid] = hash
	}
	return hashes, rows.Err()
}

// NoteCount returns the number of indexed notes.
func (db *DB) NoteCount() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&count)
	return count, err
}

const selectRow = `SELECT uid, title, category, file_path, project, tags,
	content_hash, word_count, created, updated, indexed_at FROM notes`

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		var tagsJSON, created, updated, indexedAt string
		if err := rows.Scan(&r.UID, &r.Title, &r.Category, &r.FilePath, &r.Project,
			&tagsJSON, &r.ContentHash, &r.WordCount, &created, &updated, &indexedAt); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "scan row")
		}
		json.Unmarshal([]byte(tagsJSON), &r.Tags)
		if r.Tags == nil {
			r.Tags = []string{}
		}
		r.Created, _ = time.Parse(time.RFC3339, created)
		r.Updated, _ = time.Parse(time.RFC3339, updated)
		r.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ContentHash fingerprints a note body for incremental reindexing.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return fmt.Sprintf("%x", sum)
}

func wordCount(body string) int {
	return len(strings.Fields(body))
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
