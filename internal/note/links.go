package note

import (
	"regexp"
	"sort"
	"strings"
)

// Link target forms recognized in note bodies.
const (
	LinkTypeWiki     = "wiki"
	LinkTypeMarkdown = "markdown"
)

var (
	wikiLinkRe     = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	markdownLinkRe = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
)

// Links holds the targets extracted from a body, de-duplicated in
// first-occurrence order.
type Links struct {
	Wiki     []string
	Markdown []string
	All      []string
}

type foundLink struct {
	pos    int
	target string
	typ    string
}

// ExtractLinks scans a Markdown body for [[wiki]] and [text](target)
// links. The portion before | inside a wiki link is the target.
func ExtractLinks(body string) Links {
	var found []foundLink

	for _, m := range wikiLinkRe.FindAllStringSubmatchIndex(body, -1) {
		inner := body[m[2]:m[3]]
		target := strings.TrimSpace(strings.SplitN(inner, "|", 2)[0])
		if target != "" {
			found = append(found, foundLink{pos: m[0], target: target, typ: LinkTypeWiki})
		}
	}
	for _, m := range markdownLinkRe.FindAllStringSubmatchIndex(body, -1) {
		target := strings.TrimSpace(body[m[2]:m[3]])
		if target != "" {
			found = append(found, foundLink{pos: m[0], target: target, typ: LinkTypeMarkdown})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	var links Links
	seenAll := make(map[string]bool)
	seenWiki := make(map[string]bool)
	seenMD := make(map[string]bool)
	for _, f := range found {
		if f.typ == LinkTypeWiki && !seenWiki[f.target] {
			seenWiki[f.target] = true
			links.Wiki = append(links.Wiki, f.target)
		}
		if f.typ == LinkTypeMarkdown && !seenMD[f.target] {
			seenMD[f.target] = true
			links.Markdown = append(links.Markdown, f.target)
		}
		if !seenAll[f.target] {
			seenAll[f.target] = true
			links.All = append(links.All, f.target)
		}
	}
	return links
}

// Outbound returns the authoritative outbound link set of a note: the
// union of the front-matter links array and the extracted body links,
// de-duplicated preserving order (front matter first).
func (n *Note) Outbound() []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range n.FrontMatter.Links {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, l := range ExtractLinks(n.Body).All {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// LinksTo reports whether the note's outbound set contains target.
func (n *Note) LinksTo(target string) bool {
	for _, l := range n.Outbound() {
		if l == target {
			return true
		}
	}
	return false
}
