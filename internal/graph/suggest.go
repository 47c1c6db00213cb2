package graph

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Weights tune the similarity components. They should sum to 1.
type Weights struct {
	Tag      float64 `json:"tag"`
	Category float64 `json:"category"`
	Project  float64 `json:"project"`
	Keyword  float64 `json:"keyword"`
}

// DefaultWeights favors shared tags over the other signals.
func DefaultWeights() Weights {
	return Weights{Tag: 0.4, Category: 0.2, Project: 0.2, Keyword: 0.2}
}

// SuggestOptions controls candidate filtering and ranking.
type SuggestOptions struct {
	Limit           int
	MinScore        float64
	ExcludeExisting bool
	Weights         Weights
}

// Suggestion is one ranked link candidate with its component scores.
type Suggestion struct {
	UID      string  `json:"uid"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Tag      float64 `json:"tagScore"`
	Category float64 `json:"categoryScore"`
	Project  float64 `json:"projectScore"`
	Keyword  float64 `json:"keywordScore"`
}

// keywordCap: ten shared keywords saturate the keyword component.
const keywordCap = 10

// Suggest ranks corpus notes by similarity to the target note. The
// target itself is always excluded; already-linked notes are excluded
// when opts.ExcludeExisting is set. Candidates below opts.MinScore are
// dropped and the top opts.Limit survivors are returned.
func (a *Analyzer) Suggest(targetUID string, opts SuggestOptions) ([]Suggestion, error) {
	target, ok := a.byUID[targetUID]
	if !ok {
		return nil, vaulterr.New(vaulterr.ResourceNotFound, "note %s not in corpus", targetUID)
	}

	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.MinScore <= 0 {
		opts.MinScore = 0.3
	}
	w := opts.Weights
	if w == (Weights{}) {
		w = DefaultWeights()
	}

	linked := make(map[string]bool)
	if opts.ExcludeExisting {
		for _, uid := range a.outbound[targetUID] {
			linked[uid] = true
		}
	}

	targetTags := stringSet(target.FrontMatter.Tags)
	targetWords := keywords(target)

	var suggestions []Suggestion
	for _, cand := range a.notes {
		uid := cand.FrontMatter.ID
		if uid == targetUID || a.byUID[uid] != cand || linked[uid] {
			continue
		}

		s := Suggestion{
			UID:      uid,
			Title:    cand.FrontMatter.Title,
			Tag:      jaccard(targetTags, stringSet(cand.FrontMatter.Tags)),
			Category: equalNonEmpty(target.FrontMatter.Category, cand.FrontMatter.Category),
			Project:  equalNonEmpty(target.FrontMatter.Project, cand.FrontMatter.Project),
			Keyword:  keywordOverlap(targetWords, keywords(cand)),
		}
		s.Score = w.Tag*s.Tag + w.Category*s.Category + w.Project*s.Project + w.Keyword*s.Keyword
		if s.Score >= opts.MinScore {
			suggestions = append(suggestions, s)
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].UID < suggestions[j].UID
	})
	if len(suggestions) > opts.Limit {
		suggestions = suggestions[:opts.Limit]
	}
	return suggestions, nil
}

// jaccard computes |A ∩ B| / |A ∪ B| over two sets; two empty sets
// score zero.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func equalNonEmpty(a, b string) float64 {
	if a != "" && a == b {
		return 1
	}
	return 0
}

// keywordOverlap scores the shared-word count against keywordCap.
func keywordOverlap(target, cand map[string]bool) float64 {
	shared := 0
	for w := range target {
		if cand[w] {
			shared++
		}
	}
	score := float64(shared) / keywordCap
	if score > 1 {
		score = 1
	}
	return score
}

// keywords tokenizes title and body into case-folded words longer than
// three characters.
func keywords(n *note.Note) map[string]bool {
	words := make(map[string]bool)
	split := func(text string) {
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, f := range fields {
			if len(f) > 3 {
				words[strings.ToLower(f)] = true
			}
		}
	}
	split(n.FrontMatter.Title)
	split(n.Body)
	return words
}

func stringSet(in []string) map[string]bool {
	set := make(map[string]bool, len(in))
	for _, s := range in {
		set[s] = true
	}
	return set
}
