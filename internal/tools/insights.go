package tools

import (
	"context"
	"sort"
	"strings"

	"github.com/sgx-labs/notevault/internal/analytics"
	"github.com/sgx-labs/notevault/internal/graph"
	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/recovery"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

type vaultStatsInput struct {
	IncludeCategories *bool `json:"includeCategories"`
	IncludeTags       *bool `json:"includeTags"`
	IncludeLinks      *bool `json:"includeLinks"`
}

func handleVaultStats(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in vaultStatsInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	// All sections default on; toggles only switch them off.
	on := func(b *bool) bool { return b == nil || *b }

	notes, analyzer, err := ec.loadCorpus(ctx)
	if err != nil {
		return Result{}, err
	}

	stats := analytics.ComputeStats(notes, analyzer, analytics.StatsOptions{
		Categories: on(in.IncludeCategories),
		Tags:       on(in.IncludeTags),
		Links:      on(in.IncludeLinks),
	})

	return jsonResult(map[string]any{"stats": stats}), nil
}

type orphanNotesInput struct {
	Limit    int    `json:"limit"`
	Category string `json:"category"`
	Sort     string `json:"sort"`
}

func handleFindOrphans(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in orphanNotesInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	if in.Limit <= 0 {
		in.Limit = 50
	}

	_, analyzer, err := ec.loadCorpus(ctx)
	if err != nil {
		return Result{}, err
	}

	orphans := analyzer.Orphans()
	summaries := make([]map[string]any, 0, len(orphans))
	for _, n := range orphans {
		fm := n.FrontMatter
		if in.Category != "" && fm.Category != in.Category {
			continue
		}
		summaries = append(summaries, map[string]any{
			"uid":      fm.ID,
			"title":    fm.Title,
			"category": fm.Category,
			"created":  fm.Created.Format(note.TimestampFormat),
			"updated":  fm.Updated.Format(note.TimestampFormat),
		})
	}
	sortSummaries(summaries, in.Sort)
	total := len(summaries)
	if len(summaries) > in.Limit {
		summaries = summaries[:in.Limit]
	}

	return jsonResult(map[string]any{
		"orphans": summaries,
		"total":   total,
	}), nil
}

func sortSummaries(items []map[string]any, key string) {
	if key == "" {
		key = "updated"
	}
	sort.Slice(items, func(i, j int) bool {
		a, _ := items[i][key].(string)
		b, _ := items[j][key].(string)
		if key == "title" {
			return strings.ToLower(a) < strings.ToLower(b)
		}
		// Timestamps sort newest first.
		return a > b
	})
}

type staleNotesInput struct {
	StaleDays       int    `json:"staleDays"`
	Category        string `json:"category"`
	ExcludeArchives *bool  `json:"excludeArchives"`
	Limit           int    `json:"limit"`
	Sort            string `json:"sort"`
}

func handleFindStale(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in staleNotesInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}

	notes, _, err := ec.loadCorpus(ctx)
	if err != nil {
		return Result{}, err
	}

	stale := analytics.FindStale(notes, analytics.StaleOptions{
		StaleDays:       in.StaleDays,
		Category:        in.Category,
		ExcludeArchives: in.ExcludeArchives == nil || *in.ExcludeArchives,
		Limit:           in.Limit,
	})
	if stale == nil {
		stale = []analytics.StaleNote{}
	}
	if in.Sort == "title" {
		sort.Slice(stale, func(i, j int) bool {
			return strings.ToLower(stale[i].Title) < strings.ToLower(stale[j].Title)
		})
	}

	return jsonResult(map[string]any{
		"staleNotes": stale,
		"count":      len(stale),
		"staleDays":  staleDaysOrDefault(in.StaleDays),
	}), nil
}

func staleDaysOrDefault(d int) int {
	if d <= 0 {
		return 30
	}
	return d
}

type orgHealthInput struct {
	IncludeRecommendations *bool `json:"includeRecommendations"`
}

func handleOrgHealth(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in orgHealthInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}

	notes, analyzer, err := ec.loadCorpus(ctx)
	if err != nil {
		return Result{}, err
	}

	health := analytics.OrganizationHealth(notes, analyzer)
	if in.IncludeRecommendations != nil && !*in.IncludeRecommendations {
		health.Recommendations = []string{}
	}

	return jsonResult(map[string]any{"health": health}), nil
}

type archiveNotesInput struct {
	UIDs    []string `json:"uids"`
	DryRun  bool     `json:"dryRun"`
	Confirm bool     `json:"confirm"`
	Reason  string   `json:"reason"`
}

func handleArchiveNotes(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in archiveNotesInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	if len(in.UIDs) == 0 {
		return Result{}, vaulterr.New(vaulterr.SchemaValidation, "uids must be non-empty")
	}
	if !in.DryRun && !in.Confirm {
		return Result{}, vaulterr.New(vaulterr.SchemaValidation,
			"archive_notes requires confirm=true unless dryRun is set")
	}

	deferred := false
	statuses := make([]map[string]any, 0, len(in.UIDs))
	for _, uid := range in.UIDs {
		n, err := ec.Store.FindByUID(uid)
		if err != nil {
			statuses = append(statuses, map[string]any{"uid": uid, "status": "not_found"})
			continue
		}
		if n.FrontMatter.Category == note.CategoryArchives {
			statuses = append(statuses, map[string]any{
				"uid": uid, "status": "skipped", "title": n.FrontMatter.Title,
			})
			continue
		}
		if in.DryRun {
			statuses = append(statuses, map[string]any{
				"uid": uid, "status": "success", "title": n.FrontMatter.Title,
				"from": n.FrontMatter.Category,
			})
			continue
		}

		from := n.FrontMatter.Category
		n.FrontMatter.Category = note.CategoryArchives
		if err := ec.Store.Save(n); err != nil {
			return Result{}, err
		}
		if err := ec.Index.IndexNote(n); err != nil {
			deferred = ec.deferIndex(recovery.OpIndex, uid, n.Path, err)
		}
		statuses = append(statuses, map[string]any{
			"uid": uid, "status": "success", "title": n.FrontMatter.Title, "from": from,
		})
	}

	payload := map[string]any{
		"results": statuses,
		"dryRun":  in.DryRun,
	}
	if in.Reason != "" {
		payload["reason"] = in.Reason
	}
	result := jsonResult(payload)
	if deferred {
		result = withDeferredWarning(result)
	}
	return result, nil
}

type suggestLinksInput struct {
	UID             string  `json:"uid"`
	Limit           int     `json:"limit"`
	MinScore        float64 `json:"minScore"`
	ExcludeExisting *bool   `json:"excludeExisting"`
}

func handleSuggestLinks(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in suggestLinksInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}

	_, analyzer, err := ec.loadCorpus(ctx)
	if err != nil {
		return Result{}, err
	}

	suggestions, err := analyzer.Suggest(in.UID, graph.SuggestOptions{
		Limit:           in.Limit,
		MinScore:        in.MinScore,
		ExcludeExisting: in.ExcludeExisting == nil || *in.ExcludeExisting,
	})
	if err != nil {
		return Result{}, err
	}
	if suggestions == nil {
		suggestions = []graph.Suggestion{}
	}

	return jsonResult(map[string]any{
		"uid":         in.UID,
		"suggestions": suggestions,
	}), nil
}
