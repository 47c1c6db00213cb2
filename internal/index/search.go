package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// SearchOptions filters and paginates a full-text query.
type SearchOptions struct {
	Limit    int
	Offset   int
	Category string
	Tags     []string // any-match
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Row
	Snippet string  `json:"snippet"`
	Rank    float64 `json:"rank"`
}

// SearchMetrics reports query timing and cache state.
type SearchMetrics struct {
	QueryMs      int64 `json:"queryMs"`
	ProcessingMs int64 `json:"processingMs"`
	TotalMs      int64 `json:"totalMs"`
	TotalCount   int   `json:"totalCount"`
	CacheHit     bool  `json:"cacheHit"`
}

// Search runs an FTS match ordered by BM25, filtered by optional
// category and tag set, with a snippet around the first match. Falls
// back to LIKE-based matching when FTS5 is unavailable.
func (db *DB) Search(query string, opts SearchOptions) ([]SearchResult, SearchMetrics, error) {
	start := time.Now()
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	if results, total, ok := db.cache.get(query, opts); ok {
		return results, SearchMetrics{
			TotalMs:    time.Since(start).Milliseconds(),
			TotalCount: total,
			CacheHit:   true,
		}, nil
	}

	var (
		results []SearchResult
		total   int
		err     error
		queryMs int64
	)
	if db.ftsAvailable {
		results, total, queryMs, err = db.searchFTS(query, opts)
	} else {
		results, total, queryMs, err = db.searchLike(query, opts)
	}
	if err != nil {
		return nil, SearchMetrics{}, err
	}

	db.cache.put(query, opts, results, total)

	totalMs := time.Since(start).Milliseconds()
	return results, SearchMetrics{
		QueryMs:      queryMs,
		ProcessingMs: totalMs - queryMs,
		TotalMs:      totalMs,
		TotalCount:   total,
	}, nil
}

func (db *DB) searchFTS(query string, opts SearchOptions) ([]SearchResult, int, int64, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, 0, 0, nil
	}

	where := []string{"notes_fts MATCH ?"}
	args := []any{match}
	appendRowFilters(&where, &args, "n", opts)

	base := fmt.Sprintf(`FROM notes_fts f JOIN notes n ON n.uid = f.uid WHERE %s`,
		strings.Join(where, " AND "))

	queryStart := time.Now()

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) `+base, args...).Scan(&total); err != nil {
		return nil, 0, 0, vaulterr.Wrap(vaulterr.IndexQueryError, err, "fts count")
	}

	// snippet column 1 = content
	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT n.uid, n.title, n.category, n.file_path, n.project, n.tags,
			n.content_hash, n.word_count, n.created, n.updated, n.indexed_at,
			snippet(notes_fts, 1, '**', '**', '…', 12),
			bm25(notes_fts)
		%s ORDER BY bm25(notes_fts) LIMIT ? OFFSET ?`, base),
		append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, 0, vaulterr.Wrap(vaulterr.IndexQueryError, err, "fts query")
	}
	defer rows.Close()

	results, err := scanSearchResults(rows)
	if err != nil {
		return nil, 0, 0, err
	}
	return results, total, time.Since(queryStart).Milliseconds(), nil
}

// searchLike ranks by the number of matching terms in title and the
// indexed body text, recency as tiebreaker. Snippets come from the
// title since the raw body is not stored outside FTS.
func (db *DB) searchLike(query string, opts SearchOptions) ([]SearchResult, int, int64, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, 0, 0, nil
	}

	var scoreExprs, condExprs []string
	var scoreArgs, condArgs []any
	for _, t := range terms {
		pattern := "%" + t + "%"
		scoreExprs = append(scoreExprs,
			"(CASE WHEN LOWER(n.title) LIKE LOWER(?) OR LOWER(n.tags) LIKE LOWER(?) THEN 1 ELSE 0 END)")
		scoreArgs = append(scoreArgs, pattern, pattern)
		condExprs = append(condExprs,
			"(LOWER(n.title) LIKE LOWER(?) OR LOWER(n.tags) LIKE LOWER(?))")
		condArgs = append(condArgs, pattern, pattern)
	}

	where := []string{"(" + strings.Join(condExprs, " OR ") + ")"}
	args := append([]any{}, condArgs...)
	appendRowFilters(&where, &args, "n", opts)

	base := `FROM notes n WHERE ` + strings.Join(where, " AND ")

	queryStart := time.Now()

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) `+base, args...).Scan(&total); err != nil {
		return nil, 0, 0, vaulterr.Wrap(vaulterr.IndexQueryError, err, "keyword count")
	}

	full := fmt.Sprintf(`
		SELECT n.uid, n.title, n.category, n.file_path, n.project, n.tags,
			n.content_hash, n.word_count, n.created, n.updated, n.indexed_at,
			n.title,
			-(%s) * 1.0
		%s ORDER BY (%s) DESC, n.updated DESC LIMIT ? OFFSET ?`,
		strings.Join(scoreExprs, " + "), base, strings.Join(scoreExprs, " + "))

	var finalArgs []any
	finalArgs = append(finalArgs, scoreArgs...)
	finalArgs = append(finalArgs, args...)
	finalArgs = append(finalArgs, scoreArgs...)
	finalArgs = append(finalArgs, opts.Limit, opts.Offset)

	rows, err := db.conn.Query(full, finalArgs...)
	if err != nil {
		return nil, 0, 0, vaulterr.Wrap(vaulterr.IndexQueryError, err, "keyword query")
	}
	defer rows.Close()

	results, err := scanSearchResults(rows)
	if err != nil {
		return nil, 0, 0, err
	}
	return results, total, time.Since(queryStart).Milliseconds(), nil
}

func scanSearchResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var tagsJSON, created, updated, indexedAt string
		if err := rows.Scan(&r.UID, &r.Title, &r.Category, &r.FilePath, &r.Project,
			&tagsJSON, &r.ContentHash, &r.WordCount, &created, &updated, &indexedAt,
			&r.Snippet, &r.Rank); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, err, "scan result")
		}
		r.Tags = parseTagsJSON(tagsJSON)
		r.Created, _ = time.Parse(time.RFC3339, created)
		r.Updated, _ = time.Parse(time.RFC3339, updated)
		r.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// appendRowFilters adds the category and tag-set (any-match) filters.
func appendRowFilters(where *[]string, args *[]any, alias string, opts SearchOptions) {
	if opts.Category != "" {
		*where = append(*where, alias+".category = ?")
		*args = append(*args, opts.Category)
	}
	if len(opts.Tags) > 0 {
		placeholders := make([]string, len(opts.Tags))
		for i, t := range opts.Tags {
			placeholders[i] = "?"
			*args = append(*args, t)
		}
		*where = append(*where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM json_each(%s.tags) WHERE json_each.value IN (%s))",
			alias, strings.Join(placeholders, ",")))
	}
}

// ftsMatchExpr quotes each term so user input cannot break FTS5 query
// syntax.
func ftsMatchExpr(query string) string {
	terms := queryTerms(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(query) {
		f = strings.Trim(f, `"'`)
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

// queryCache is a small TTL cache over search results, invalidated by
// any index mutation.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	gen     uint64
}

type cacheEntry struct {
	results []SearchResult
	total   int
	gen     uint64
	at      time.Time
}

const (
	cacheTTL     = 30 * time.Second
	cacheMaxSize = 64
)

func newQueryCache() *queryCache {
	return &queryCache{entries: make(map[string]cacheEntry)}
}

func cacheKey(query string, opts SearchOptions) string {
	return fmt.Sprintf("%s|%d|%d|%s|%s",
		query, opts.Limit, opts.Offset, opts.Category, strings.Join(opts.Tags, ","))
}

func (c *queryCache) get(query string, opts SearchOptions) ([]SearchResult, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey(query, opts)]
	if !ok || e.gen != c.gen || time.Since(e.at) > cacheTTL {
		return nil, 0, false
	}
	return e.results, e.total, true
}

func (c *queryCache) put(query string, opts SearchOptions, results []SearchResult, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= cacheMaxSize {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[cacheKey(query, opts)] = cacheEntry{
		results: results, total: total, gen: c.gen, at: time.Now(),
	}
}

func (c *queryCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}

func parseTagsJSON(tagsJSON string) []string {
	tags := []string{}
	if tagsJSON != "" {
		json.Unmarshal([]byte(tagsJSON), &tags)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}
