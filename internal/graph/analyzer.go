// Package graph analyzes the link structure of a note corpus: outbound
// and inbound edges, broken targets, orphans, and similarity-based link
// suggestions.
package graph

import (
	"sort"

	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Analyzer holds a loaded corpus and answers link queries against it.
// The corpus is the set of notes on disk at load time; callers re-build
// the analyzer after mutations.
type Analyzer struct {
	notes []*note.Note
	byUID map[string]*note.Note

	// outbound is memoized per note, in first-occurrence order.
	outbound map[string][]string
}

// NewAnalyzer builds an analyzer over the given corpus. Notes with
// duplicate UIDs keep the first occurrence.
func NewAnalyzer(notes []*note.Note) *Analyzer {
	a := &Analyzer{
		notes:    notes,
		byUID:    make(map[string]*note.Note, len(notes)),
		outbound: make(map[string][]string, len(notes)),
	}
	for _, n := range notes {
		uid := n.FrontMatter.ID
		if _, ok := a.byUID[uid]; ok {
			continue
		}
		a.byUID[uid] = n
		a.outbound[uid] = n.Outbound()
	}
	return a
}

// Note returns the corpus note for a UID, or nil.
func (a *Analyzer) Note(uid string) *note.Note {
	return a.byUID[uid]
}

// Outbound returns the UIDs a note links to: body links plus
// front-matter links, de-duplicated.
func (a *Analyzer) Outbound(uid string) ([]string, error) {
	if _, ok := a.byUID[uid]; !ok {
		return nil, vaulterr.New(vaulterr.ResourceNotFound, "note %s not in corpus", uid)
	}
	return a.outbound[uid], nil
}

// Inbound returns the UIDs of notes whose outbound set contains uid.
func (a *Analyzer) Inbound(uid string) ([]string, error) {
	if _, ok := a.byUID[uid]; !ok {
		return nil, vaulterr.New(vaulterr.ResourceNotFound, "note %s not in corpus", uid)
	}
	var in []string
	for _, n := range a.notes {
		src := n.FrontMatter.ID
		if src == uid {
			continue
		}
		for _, target := range a.outbound[src] {
			if target == uid {
				in = append(in, src)
				break
			}
		}
	}
	sort.Strings(in)
	return in, nil
}

// Broken returns outbound UIDs of a note that have no corresponding
// note in the corpus.
func (a *Analyzer) Broken(uid string) ([]string, error) {
	out, err := a.Outbound(uid)
	if err != nil {
		return nil, err
	}
	var broken []string
	for _, target := range out {
		if _, ok := a.byUID[target]; !ok {
			broken = append(broken, target)
		}
	}
	return broken, nil
}

// Orphans returns notes that are neither a source nor a target of any
// link, sorted by UID.
func (a *Analyzer) Orphans() []*note.Note {
	targeted := make(map[string]bool)
	for uid, out := range a.outbound {
		if len(out) == 0 {
			continue
		}
		targeted[uid] = true
		for _, t := range out {
			targeted[t] = true
		}
	}

	var orphans []*note.Note
	for _, n := range a.notes {
		if uid := n.FrontMatter.ID; a.byUID[uid] == n && !targeted[uid] {
			orphans = append(orphans, n)
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].FrontMatter.ID < orphans[j].FrontMatter.ID
	})
	return orphans
}

// Report bundles the link relations of one note.
type Report struct {
	UID      string   `json:"uid"`
	Outbound []string `json:"outbound"`
	Inbound  []string `json:"inbound"`
	Broken   []string `json:"broken"`
}

// Analyze returns the full link report for a note.
func (a *Analyzer) Analyze(uid string) (Report, error) {
	out, err := a.Outbound(uid)
	if err != nil {
		return Report{}, err
	}
	in, err := a.Inbound(uid)
	if err != nil {
		return Report{}, err
	}
	broken, err := a.Broken(uid)
	if err != nil {
		return Report{}, err
	}
	return Report{UID: uid, Outbound: out, Inbound: in, Broken: broken}, nil
}
