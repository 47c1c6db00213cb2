package analytics

import (
	"fmt"
	"math"

	"github.com/sgx-labs/notevault/internal/graph"
	"github.com/sgx-labs/notevault/internal/note"
)

// Health is the organization health report: a 0-100 score with the
// ratios that produced it and threshold-derived recommendations.
type Health struct {
	Score           int      `json:"score"`
	Grade           string   `json:"grade"`
	OrphanRatio     float64  `json:"orphanRatio"`
	StaleRatio      float64  `json:"staleRatio"`
	CategoryBalance float64  `json:"categoryBalance"`
	Recommendations []string `json:"recommendations"`
}

const healthStaleDays = 30

// OrganizationHealth scores the vault. An empty vault is perfectly
// healthy: nothing can be orphaned, stale, or imbalanced.
func OrganizationHealth(notes []*note.Note, a *graph.Analyzer) Health {
	h := Health{CategoryBalance: 100}
	if len(notes) == 0 {
		h.Score = 100
		h.Grade = grade(100)
		h.Recommendations = []string{}
		return h
	}

	total := float64(len(notes))
	h.OrphanRatio = float64(len(a.Orphans())) / total

	stale := FindStale(notes, StaleOptions{StaleDays: healthStaleDays, ExcludeArchives: true})
	h.StaleRatio = float64(len(stale)) / total

	h.CategoryBalance = categoryBalance(notes)

	score := 100.0
	score -= math.Min(40, h.OrphanRatio*100)
	score -= math.Min(30, h.StaleRatio*50)
	score += math.Max(0, (h.CategoryBalance-50)/2)
	h.Score = int(math.Round(math.Max(0, math.Min(100, score))))
	h.Grade = grade(h.Score)
	h.Recommendations = recommendations(h)
	return h
}

func grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

// categoryBalance is the normalized Shannon entropy of the category
// distribution, scaled to 0-100. A single-category vault scores 0; an
// even spread scores 100.
func categoryBalance(notes []*note.Note) float64 {
	counts := make(map[string]int)
	for _, n := range notes {
		c := n.FrontMatter.Category
		if c == "" {
			c = "uncategorized"
		}
		counts[c]++
	}
	if len(counts) <= 1 {
		return 0
	}

	total := float64(len(notes))
	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(len(counts))) * 100
}

func recommendations(h Health) []string {
	recs := []string{}
	switch {
	case h.OrphanRatio > 0.3:
		recs = append(recs, fmt.Sprintf(
			"%.0f%% of notes have no links; run suggest_links to connect them", h.OrphanRatio*100))
	case h.OrphanRatio > 0.1:
		recs = append(recs, "some notes are unlinked; consider adding links to related notes")
	}
	switch {
	case h.StaleRatio > 0.3:
		recs = append(recs, fmt.Sprintf(
			"%.0f%% of notes are stale; review or archive notes untouched for %d days",
			h.StaleRatio*100, healthStaleDays))
	case h.StaleRatio > 0.15:
		recs = append(recs, "several notes have not been updated recently; consider a review pass")
	}
	if h.CategoryBalance < 50 {
		recs = append(recs, "notes are concentrated in few categories; rebalance across Projects, Areas, Resources, and Archives")
	}
	return recs
}
