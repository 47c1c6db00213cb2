// Package analytics derives vault-level views from a loaded corpus:
// statistics, stale-note scans, and the organization health score.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/sgx-labs/notevault/internal/graph"
	"github.com/sgx-labs/notevault/internal/note"
)

// TagCount is one entry of the tag histogram.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// VaultStats is the roll-up returned by the stats tool. Sections are
// nil when not requested.
type VaultStats struct {
	TotalNotes int   `json:"totalNotes"`
	TotalWords int   `json:"totalWords"`
	Categories map[string]int `json:"categories,omitempty"`
	TopTags    []TagCount     `json:"topTags,omitempty"`

	TotalLinks   int     `json:"totalLinks,omitempty"`
	BrokenLinks  int     `json:"brokenLinks,omitempty"`
	OrphanNotes  int     `json:"orphanNotes,omitempty"`
	LinksPerNote float64 `json:"linksPerNote,omitempty"`
}

// StatsOptions toggles the optional sections.
type StatsOptions struct {
	Categories bool
	Tags       bool
	Links      bool
	TopTagsMax int // default 10
}

// ComputeStats rolls up the corpus. The analyzer is only consulted when
// opts.Links is set.
func ComputeStats(notes []*note.Note, a *graph.Analyzer, opts StatsOptions) VaultStats {
	if opts.TopTagsMax <= 0 {
		opts.TopTagsMax = 10
	}

	stats := VaultStats{TotalNotes: len(notes)}
	tagCounts := make(map[string]int)
	for _, n := range notes {
		stats.TotalWords += len(strings.Fields(n.Body))
		for _, t := range n.FrontMatter.Tags {
			tagCounts[t]++
		}
	}

	if opts.Categories {
		stats.Categories = make(map[string]int)
		for _, n := range notes {
			c := n.FrontMatter.Category
			if c == "" {
				c = "uncategorized"
			}
			stats.Categories[c]++
		}
	}

	if opts.Tags {
		stats.TopTags = topTags(tagCounts, opts.TopTagsMax)
	}

	if opts.Links && a != nil {
		totalLinks := 0
		for _, n := range notes {
			out, err := a.Outbound(n.FrontMatter.ID)
			if err != nil {
				continue
			}
			totalLinks += len(out)
			broken, _ := a.Broken(n.FrontMatter.ID)
			stats.BrokenLinks += len(broken)
		}
		stats.TotalLinks = totalLinks
		stats.OrphanNotes = len(a.Orphans())
		if len(notes) > 0 {
			stats.LinksPerNote = float64(totalLinks) / float64(len(notes))
		}
	}
	return stats
}

func topTags(counts map[string]int, max int) []TagCount {
	tags := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	if len(tags) > max {
		tags = tags[:max]
	}
	return tags
}

// StaleNote is one hit of a stale scan.
type StaleNote struct {
	UID      string    `json:"uid"`
	Title    string    `json:"title"`
	Category string    `json:"category,omitempty"`
	Updated  time.Time `json:"updated"`
	DaysAgo  int       `json:"daysAgo"`
}

// StaleOptions filters the stale scan.
type StaleOptions struct {
	StaleDays       int    // cutoff in days (default 30)
	Category        string // restrict to one category
	ExcludeArchives bool
	Limit           int
}

// FindStale returns notes whose updated timestamp predates the cutoff,
// oldest first.
func FindStale(notes []*note.Note, opts StaleOptions) []StaleNote {
	if opts.StaleDays <= 0 {
		opts.StaleDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -opts.StaleDays)

	var stale []StaleNote
	for _, n := range notes {
		fm := n.FrontMatter
		if opts.ExcludeArchives && fm.Category == note.CategoryArchives {
			continue
		}
		if opts.Category != "" && fm.Category != opts.Category {
			continue
		}
		if !fm.Updated.Before(cutoff) {
			continue
		}
		stale = append(stale, StaleNote{
			UID:      fm.ID,
			Title:    fm.Title,
			Category: fm.Category,
			Updated:  fm.Updated,
			DaysAgo:  int(time.Since(fm.Updated).Hours() / 24),
		})
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].Updated.Before(stale[j].Updated)
	})
	if opts.Limit > 0 && len(stale) > opts.Limit {
		stale = stale[:opts.Limit]
	}
	return stale
}
