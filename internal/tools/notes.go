package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/sgx-labs/notevault/internal/graph"
	"github.com/sgx-labs/notevault/internal/index"
	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/recovery"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

const indexDeferredWarning = "warning: index update deferred; search results may be stale until the recovery queue drains"

// jsonResult renders a payload as indented JSON for the text channel
// and carries it verbatim as metadata.
func jsonResult(payload map[string]any) Result {
	data, _ := json.MarshalIndent(payload, "", "  ")
	return Result{Text: string(data), Metadata: payload}
}

func withDeferredWarning(r Result) Result {
	r.Text += "\n\n" + indexDeferredWarning
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata["indexDeferred"] = true
	return r
}

type createNoteInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Project  string   `json:"project"`
	Links    []string `json:"links"`
}

func handleCreateNote(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in createNoteInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}

	now := time.Now().UTC()
	n := &note.Note{
		FrontMatter: note.FrontMatter{
			ID:       note.NewUID(),
			Title:    in.Title,
			Category: in.Category,
			Tags:     toStrings(in.Tags),
			Project:  in.Project,
			Created:  now,
			Updated:  now,
			Links:    toStrings(in.Links),
		},
		Body: in.Content,
	}
	n.Path = ec.Store.NotePath(in.Title, n.FrontMatter.ID)

	if err := ec.Store.Save(n); err != nil {
		return Result{}, err
	}

	deferred := false
	if err := ec.Index.IndexNote(n); err != nil {
		deferred = ec.deferIndex(recovery.OpIndex, n.FrontMatter.ID, n.Path, err)
	}

	result := jsonResult(map[string]any{
		"uid":      n.FrontMatter.ID,
		"title":    n.FrontMatter.Title,
		"path":     n.Path,
		"category": n.FrontMatter.Category,
		"tags":     n.FrontMatter.Tags,
		"created":  n.FrontMatter.Created.Format(note.TimestampFormat),
	})
	if deferred {
		result = withDeferredWarning(result)
	}
	return result, nil
}

type readNoteInput struct {
	UID             string `json:"uid"`
	IncludeMetadata bool   `json:"includeMetadata"`
	IncludeLinks    bool   `json:"includeLinks"`
}

func handleReadNote(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in readNoteInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}

	n, err := ec.Store.FindByUID(in.UID)
	if err != nil {
		return Result{}, err
	}

	payload := map[string]any{
		"uid":        n.FrontMatter.ID,
		"title":      n.FrontMatter.Title,
		"category":   n.FrontMatter.Category,
		"tags":       n.FrontMatter.Tags,
		"project":    n.FrontMatter.Project,
		"created":    n.FrontMatter.Created.Format(note.TimestampFormat),
		"updated":    n.FrontMatter.Updated.Format(note.TimestampFormat),
		"frontLinks": n.FrontMatter.Links,
		"content":    n.Body,
	}

	if in.IncludeMetadata {
		payload["metadata"] = map[string]any{
			"path":      n.Path,
			"wordCount": len(strings.Fields(n.Body)),
			"size":      len(n.Body),
		}
	}

	if in.IncludeLinks {
		_, analyzer, err := ec.loadCorpus(ctx)
		if err != nil {
			return Result{}, err
		}
		report, err := analyzer.Analyze(in.UID)
		if err != nil {
			return Result{}, err
		}
		payload["links"] = report
	}

	return jsonResult(payload), nil
}

type updateNoteInput struct {
	UID      string    `json:"uid"`
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
	Project  *string   `json:"project"`
	Links    *[]string `json:"links"`
}

func handleUpdateNote(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in updateNoteInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	if in.Title == nil && in.Content == nil && in.Category == nil &&
		in.Tags == nil && in.Project == nil && in.Links == nil {
		return Result{}, vaulterr.New(vaulterr.SchemaValidation,
			"update_note requires at least one field besides uid")
	}

	n, err := ec.Store.FindByUID(in.UID)
	if err != nil {
		return Result{}, err
	}

	oldPath := n.Path
	var changed []string
	if in.Title != nil && *in.Title != n.FrontMatter.Title {
		n.FrontMatter.Title = *in.Title
		n.Path = ec.Store.NotePath(*in.Title, in.UID)
		changed = append(changed, "title")
	}
	if in.Content != nil {
		n.Body = *in.Content
		changed = append(changed, "content")
	}
	if in.Category != nil {
		if *in.Category != "" && !note.ValidCategory(*in.Category) {
			return Result{}, vaulterr.New(vaulterr.SchemaValidation,
				"invalid category %q", *in.Category)
		}
		n.FrontMatter.Category = *in.Category
		changed = append(changed, "category")
	}
	if in.Tags != nil {
		n.FrontMatter.Tags = toStrings(*in.Tags)
		changed = append(changed, "tags")
	}
	if in.Project != nil {
		n.FrontMatter.Project = *in.Project
		changed = append(changed, "project")
	}
	if in.Links != nil {
		n.FrontMatter.Links = toStrings(*in.Links)
		changed = append(changed, "links")
	}

	if len(changed) == 0 {
		return jsonResult(map[string]any{
			"uid":     in.UID,
			"changed": []string{},
		}), nil
	}

	if err := ec.Store.Save(n); err != nil {
		return Result{}, err
	}
	// Title changes move the file; remove the old name after the new one
	// is durably in place.
	if n.Path != oldPath {
		if err := ec.Store.Delete(oldPath); err != nil {
			return Result{}, err
		}
	}

	deferred := false
	if err := ec.Index.IndexNote(n); err != nil {
		deferred = ec.deferIndex(recovery.OpIndex, in.UID, n.Path, err)
	}

	result := jsonResult(map[string]any{
		"uid":     in.UID,
		"changed": changed,
		"path":    n.Path,
		"updated": n.FrontMatter.Updated.Format(note.TimestampFormat),
	})
	if deferred {
		result = withDeferredWarning(result)
	}
	return result, nil
}

type deleteNoteInput struct {
	UID     string `json:"uid"`
	Confirm bool   `json:"confirm"`
}

func handleDeleteNote(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in deleteNoteInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}

	n, err := ec.Store.FindByUID(in.UID)
	if err != nil {
		return Result{}, err
	}
	if err := ec.Store.Delete(n.Path); err != nil {
		return Result{}, err
	}

	deferred := false
	if err := ec.Index.RemoveNote(in.UID); err != nil {
		deferred = ec.deferIndex(recovery.OpRemove, in.UID, n.Path, err)
	}

	result := jsonResult(map[string]any{
		"uid":     in.UID,
		"title":   n.FrontMatter.Title,
		"path":    n.Path,
		"deleted": true,
	})
	if deferred {
		result = withDeferredWarning(result)
	}
	return result, nil
}

type listNotesInput struct {
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	Project   string   `json:"project"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
	SortBy    string   `json:"sortBy"`
	SortOrder string   `json:"sortOrder"`
}

func handleListNotes(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in listNotesInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	if in.Limit <= 0 {
		in.Limit = 100
	}
	if in.Limit > 1000 {
		in.Limit = 1000
	}
	if in.SortBy == "" {
		in.SortBy = "updated"
	}
	if in.SortOrder == "" {
		in.SortOrder = "desc"
	}

	rows, err := ec.Index.AllRows()
	if err != nil {
		return Result{}, err
	}

	filtered := rows[:0:0]
	for _, r := range rows {
		if in.Category != "" && r.Category != in.Category {
			continue
		}
		if in.Project != "" && r.Project != in.Project {
			continue
		}
		if len(in.Tags) > 0 && !hasAnyTag(r.Tags, in.Tags) {
			continue
		}
		filtered = append(filtered, r)
	}

	sortRows(filtered, in.SortBy, in.SortOrder)

	total := len(filtered)
	page := paginate(filtered, in.Offset, in.Limit)

	return jsonResult(map[string]any{
		"notes":  page,
		"total":  total,
		"offset": in.Offset,
		"limit":  in.Limit,
	}), nil
}

func hasAnyTag(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if set[t] {
			return true
		}
	}
	return false
}

func sortRows(rows []index.Row, sortBy, order string) {
	less := func(a, b index.Row) bool { return a.Updated.Before(b.Updated) }
	switch sortBy {
	case "created":
		less = func(a, b index.Row) bool { return a.Created.Before(b.Created) }
	case "title":
		less = func(a, b index.Row) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if order == "desc" {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func paginate(rows []index.Row, offset, limit int) []index.Row {
	if offset >= len(rows) {
		return []index.Row{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

// loadCorpus reads every parseable note from disk and builds the link
// analyzer over it. Invalid notes are skipped with a warning.
func (ec *ExecContext) loadCorpus(ctx context.Context) ([]*note.Note, *graph.Analyzer, error) {
	notes, err := ec.Store.LoadAll(ctx, note.LoadOptions{SkipInvalid: true})
	if err != nil {
		return nil, nil, err
	}
	return notes, graph.NewAnalyzer(notes), nil
}
