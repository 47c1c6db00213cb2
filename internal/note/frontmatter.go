package note

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/sgx-labs/notevault/internal/logging"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// PARA categories. A note may also carry no category at all.
const (
	CategoryProjects  = "Projects"
	CategoryAreas     = "Areas"
	CategoryResources = "Resources"
	CategoryArchives  = "Archives"
)

// Categories lists the valid category values in taxonomy order.
var Categories = []string{CategoryProjects, CategoryAreas, CategoryResources, CategoryArchives}

// TimestampFormat carries millisecond precision so that saves landing
// in the same second still round-trip to distinct updated values.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// ValidCategory reports whether c is a PARA category.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// FrontMatter is the typed YAML header of a note.
type FrontMatter struct {
	ID       string
	Title    string
	Category string // empty when absent
	Tags     []string
	Project  string
	Created  time.Time
	Updated  time.Time
	Links    []string
}

// rawFrontMatter is the wire form. Timestamps stay strings so the codec
// controls RFC 3339 formatting on both directions.
type rawFrontMatter struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Category string   `yaml:"category,omitempty"`
	Tags     []string `yaml:"tags"`
	Project  string   `yaml:"project,omitempty"`
	Created  string   `yaml:"created"`
	Updated  string   `yaml:"updated"`
	Links    []string `yaml:"links"`
}

// Note pairs front matter with a Markdown body. Path is set when the
// note was loaded from or saved to disk.
type Note struct {
	FrontMatter FrontMatter
	Body        string
	Path        string
}

// Parse splits a note file into front matter and body. In strict mode
// any missing or invalid field is an error; otherwise defaults are
// substituted and a warning logged.
func Parse(content string, strict bool) (FrontMatter, string, error) {
	var raw rawFrontMatter
	body, err := frontmatter.Parse(strings.NewReader(content), &raw)
	if err != nil {
		return FrontMatter{}, "", vaulterr.Wrap(vaulterr.InvalidFrontMatter, err, "parse front matter")
	}
	// Serialize writes one blank line between the closing delimiter and
	// the body; strip it so round trips are exact.
	bodyStr := strings.TrimPrefix(string(body), "\n")

	fm := FrontMatter{
		ID:       raw.ID,
		Title:    raw.Title,
		Category: raw.Category,
		Project:  raw.Project,
		Tags:     cleanStrings(raw.Tags),
		Links:    dedupeStrings(cleanStrings(raw.Links)),
	}

	if !ValidUID(fm.ID) {
		return FrontMatter{}, "", vaulterr.New(vaulterr.InvalidUID, "front matter id %q is not a valid UID", fm.ID)
	}

	if fm.Title == "" {
		if strict {
			return FrontMatter{}, "", vaulterr.New(vaulterr.InvalidFrontMatter, "title is empty")
		}
		logging.Warnf("note %s: empty title, defaulting to Untitled", fm.ID)
		fm.Title = "Untitled"
	}

	if fm.Category != "" && !ValidCategory(fm.Category) {
		if strict {
			return FrontMatter{}, "", vaulterr.New(vaulterr.InvalidFrontMatter, "unknown category %q", fm.Category)
		}
		logging.Warnf("note %s: unknown category %q dropped", fm.ID, fm.Category)
		fm.Category = ""
	}

	now := time.Now().UTC()
	fm.Created, err = parseTimestamp(raw.Created)
	if err != nil {
		if strict {
			return FrontMatter{}, "", vaulterr.Wrap(vaulterr.InvalidFrontMatter, err, "created timestamp")
		}
		logging.Warnf("note %s: invalid created timestamp %q", fm.ID, raw.Created)
		fm.Created = now
	}
	fm.Updated, err = parseTimestamp(raw.Updated)
	if err != nil {
		if strict {
			return FrontMatter{}, "", vaulterr.Wrap(vaulterr.InvalidFrontMatter, err, "updated timestamp")
		}
		logging.Warnf("note %s: invalid updated timestamp %q", fm.ID, raw.Updated)
		fm.Updated = now
	}
	if fm.Updated.Before(fm.Created) {
		if strict {
			return FrontMatter{}, "", vaulterr.New(vaulterr.InvalidFrontMatter, "updated precedes created")
		}
		fm.Updated = fm.Created
	}

	return fm, bodyStr, nil
}

// Serialize renders a complete note file: YAML front matter between ---
// delimiters followed by the body. Absent optional fields are omitted
// entirely; sequences are emitted even when empty.
func Serialize(fm FrontMatter, body string) (string, error) {
	raw := rawFrontMatter{
		ID:       fm.ID,
		Title:    fm.Title,
		Category: fm.Category,
		Tags:     nonNil(cleanStrings(fm.Tags)),
		Project:  fm.Project,
		Created:  fm.Created.UTC().Format(TimestampFormat),
		Updated:  fm.Updated.UTC().Format(TimestampFormat),
		Links:    nonNil(dedupeStrings(cleanStrings(fm.Links))),
	}

	out, err := yaml.Marshal(&raw)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.InvalidFrontMatter, err, "serialize front matter")
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String(), nil
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	return time.Parse(time.RFC3339, s)
}

// cleanStrings drops empty entries so serialized sequences never carry
// null or blank values.
func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
