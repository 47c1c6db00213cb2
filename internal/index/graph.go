package index

import (
	"time"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// LinkRow is one edge of the link graph. Targets may be broken: callers
// must tolerate a target UID with no corresponding note.
type LinkRow struct {
	SourceUID string    `json:"sourceUid"`
	TargetUID string    `json:"targetUid"`
	LinkType  string    `json:"linkType"`
	Strength  float64   `json:"strength"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

const selectLink = `SELECT source_uid, target_uid, link_type, strength, first_seen, last_seen FROM links`

// GetBacklinks returns the edges pointing at uid.
func (db *DB) GetBacklinks(uid string) ([]LinkRow, error) {
	return db.queryLinks(selectLink+` WHERE target_uid = ? ORDER BY last_seen DESC`, uid)
}

// GetOutgoingLinks returns the edges originating at uid.
func (db *DB) GetOutgoingLinks(uid string) ([]LinkRow, error) {
	return db.queryLinks(selectLink+` WHERE source_uid = ? ORDER BY last_seen DESC`, uid)
}

// GetConnectedNodes returns the UIDs adjacent to uid in either
// direction, de-duplicated.
func (db *DB) GetConnectedNodes(uid string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT target_uid FROM links WHERE source_uid = ?
		UNION
		SELECT source_uid FROM links WHERE target_uid = ?`, uid, uid)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "connected nodes %s", uid)
	}
	defer rows.Close()

	var nodes []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "scan node")
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// GetOrphanNotes returns notes that appear on neither side of any link.
func (db *DB) GetOrphanNotes() ([]Row, error) {
	rows, err := db.conn.Query(selectRow + `
		WHERE uid NOT IN (SELECT source_uid FROM links)
		  AND uid NOT IN (SELECT target_uid FROM links)
		ORDER BY updated DESC`)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "orphan notes")
	}
	defer rows.Close()
	return scanRows(rows)
}

// LinkCount returns the number of edges in the graph.
func (db *DB) LinkCount() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM links`).Scan(&count)
	return count, err
}

func (db *DB) queryLinks(query string, args ...any) ([]LinkRow, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "query links")
	}
	defer rows.Close()

	var links []LinkRow
	for rows.Next() {
		var l LinkRow
		var firstSeen, lastSeen string
		if err := rows.Scan(&l.SourceUID, &l.TargetUID, &l.LinkType, &l.Strength,
			&firstSeen, &lastSeen); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "scan link")
		}
		l.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		l.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		links = append(links, l)
	}
	return links, rows.Err()
}
