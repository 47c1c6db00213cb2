package note

import (
	"context"
	"strings"
)

// DefaultContextLines is how many lines above and below a matching line
// are included in a backlink snippet.
const DefaultContextLines = 2

// BacklinkContext is one occurrence of a link inside a referring note.
type BacklinkContext struct {
	Snippet  string `json:"snippet"`
	Line     int    `json:"line"` // 1-based within the note body
	LinkType string `json:"linkType"`
}

// Backlink describes a note that links to the target.
type Backlink struct {
	SourceUID   string            `json:"sourceUid"`
	SourceTitle string            `json:"sourceTitle"`
	Contexts    []BacklinkContext `json:"contexts"`
}

// FindBacklinks scans the vault for notes whose outbound link set
// contains targetUID and returns each with context snippets.
func (s *Store) FindBacklinks(ctx context.Context, targetUID string, contextLines int) ([]Backlink, error) {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}

	notes, err := s.LoadAll(ctx, LoadOptions{SkipInvalid: true})
	if err != nil {
		return nil, err
	}

	var backlinks []Backlink
	for _, n := range notes {
		if n.FrontMatter.ID == targetUID || !n.LinksTo(targetUID) {
			continue
		}

		bl := Backlink{
			SourceUID:   n.FrontMatter.ID,
			SourceTitle: n.FrontMatter.Title,
			Contexts:    matchContexts(n.Body, targetUID, contextLines),
		}
		// Front-matter-only references still get one context entry so
		// callers always have a snippet to show.
		if len(bl.Contexts) == 0 {
			bl.Contexts = []BacklinkContext{{
				Snippet:  "links: " + targetUID,
				Line:     0,
				LinkType: LinkTypeMarkdown,
			}}
		}
		backlinks = append(backlinks, bl)
	}
	return backlinks, nil
}

// matchContexts returns a snippet for every body line referencing the
// target, with contextLines lines above and below.
func matchContexts(body, targetUID string, contextLines int) []BacklinkContext {
	lines := strings.Split(body, "\n")
	var contexts []BacklinkContext
	for i, line := range lines {
		if !strings.Contains(line, targetUID) {
			continue
		}

		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(lines) {
			end = len(lines)
		}

		linkType := LinkTypeMarkdown
		if strings.Contains(line, "[["+targetUID) {
			linkType = LinkTypeWiki
		}

		contexts = append(contexts, BacklinkContext{
			Snippet:  strings.Join(lines[start:end], "\n"),
			Line:     i + 1,
			LinkType: linkType,
		})
	}
	return contexts
}
