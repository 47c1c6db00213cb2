package tools

import (
	"context"

	"github.com/sgx-labs/notevault/internal/index"
)

type searchMemoryInput struct {
	Query    string   `json:"query"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}

func handleSearchMemory(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in searchMemoryInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	if in.Limit <= 0 {
		in.Limit = ec.Cfg.Search.DefaultLimit
	}
	if in.Limit > ec.Cfg.Search.MaxLimit {
		in.Limit = ec.Cfg.Search.MaxLimit
	}

	results, sm, err := ec.Index.Search(in.Query, index.SearchOptions{
		Limit:    in.Limit,
		Offset:   in.Offset,
		Category: in.Category,
		Tags:     in.Tags,
	})
	if err != nil {
		return Result{}, err
	}
	if results == nil {
		results = []index.SearchResult{}
	}

	return jsonResult(map[string]any{
		"query":   in.Query,
		"results": results,
		"timing": map[string]any{
			"queryMs":      sm.QueryMs,
			"processingMs": sm.ProcessingMs,
			"totalMs":      sm.TotalMs,
			"cacheHit":     sm.CacheHit,
		},
		"totalCount": sm.TotalCount,
	}), nil
}

type backlinksInput struct {
	UID   string `json:"uid"`
	Limit int    `json:"limit"`
}

func handleGetBacklinks(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in backlinksInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	if in.Limit <= 0 {
		in.Limit = 20
	}
	if in.Limit > 100 {
		in.Limit = 100
	}

	// Verify the target exists before scanning the corpus for referrers.
	target, err := ec.Store.FindByUID(in.UID)
	if err != nil {
		return Result{}, err
	}

	backlinks, err := ec.Store.FindBacklinks(ctx, in.UID, 0)
	if err != nil {
		return Result{}, err
	}
	if len(backlinks) > in.Limit {
		backlinks = backlinks[:in.Limit]
	}

	return jsonResult(map[string]any{
		"uid":       in.UID,
		"title":     target.FrontMatter.Title,
		"backlinks": backlinks,
		"count":     len(backlinks),
	}), nil
}
