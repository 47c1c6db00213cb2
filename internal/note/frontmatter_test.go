package note

import (
	"strings"
	"testing"
	"time"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

const testUID = "20250314T092653589001Z"

func sampleContent(uid string) string {
	return `---
id: ` + uid + `
title: Sample Note
category: Projects
tags:
  - go
  - testing
project: notevault
created: 2025-03-14T09:26:53Z
updated: 2025-03-15T10:00:00Z
links:
  - 20250101T000000000001Z
---

Body text with a [[20250101T000000000001Z]] reference.
`
}

func TestParseValid(t *testing.T) {
	fm, body, err := Parse(sampleContent(testUID), true)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fm.ID != testUID {
		t.Errorf("id = %q", fm.ID)
	}
	if fm.Title != "Sample Note" || fm.Category != "Projects" || fm.Project != "notevault" {
		t.Errorf("unexpected fields: %+v", fm)
	}
	if len(fm.Tags) != 2 || fm.Tags[0] != "go" {
		t.Errorf("tags = %v", fm.Tags)
	}
	if len(fm.Links) != 1 {
		t.Errorf("links = %v", fm.Links)
	}
	if !strings.Contains(body, "Body text") {
		t.Errorf("body = %q", body)
	}
}

func TestParseInvalidUID(t *testing.T) {
	content := strings.Replace(sampleContent(testUID), testUID, "not-a-uid", 1)
	_, _, err := Parse(content, false)
	if err == nil {
		t.Fatal("expected error for invalid UID")
	}
	if !vaulterr.Is(err, vaulterr.InvalidUID) {
		t.Errorf("code = %v, want INVALID_UID", vaulterr.CodeOf(err))
	}
}

func TestParseStrictVsLenient(t *testing.T) {
	content := `---
id: ` + testUID + `
title: ""
category: Bogus
created: nope
updated: 2025-03-15T10:00:00Z
---

body
`
	if _, _, err := Parse(content, true); err == nil {
		t.Fatal("strict mode should reject empty title")
	}

	fm, _, err := Parse(content, false)
	if err != nil {
		t.Fatalf("lenient Parse: %v", err)
	}
	if fm.Title != "Untitled" {
		t.Errorf("title = %q, want Untitled", fm.Title)
	}
	if fm.Category != "" {
		t.Errorf("unknown category should be dropped, got %q", fm.Category)
	}
	if fm.Created.IsZero() {
		t.Error("created should default to now")
	}
}

func TestParseClampsUpdatedBeforeCreated(t *testing.T) {
	content := `---
id: ` + testUID + `
title: Clamped
created: 2025-03-15T10:00:00Z
updated: 2025-03-01T10:00:00Z
---

body
`
	fm, _, err := Parse(content, false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !fm.Updated.Equal(fm.Created) {
		t.Errorf("updated %v not clamped to created %v", fm.Updated, fm.Created)
	}

	if _, _, err := Parse(content, true); err == nil {
		t.Error("strict mode should reject updated < created")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	fm := FrontMatter{
		ID:      testUID,
		Title:   "Round Trip",
		Tags:    []string{"a", "", "b", "a"},
		Created: created,
		Updated: created.Add(time.Hour),
		Links:   nil,
	}
	out, err := Serialize(fm, "hello\n")
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.HasPrefix(out, "---\n") {
		t.Errorf("missing opening delimiter: %q", out[:10])
	}
	// Optional fields absent, sequences present even when empty.
	if strings.Contains(out, "category:") || strings.Contains(out, "project:") {
		t.Errorf("empty optionals should be omitted:\n%s", out)
	}
	if !strings.Contains(out, "links: []") {
		t.Errorf("empty links should serialize as []:\n%s", out)
	}

	got, body, err := Parse(out, true)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if got.Title != fm.Title || !got.Created.Equal(created) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Tags) != 3 {
		t.Errorf("empty tag should be dropped, got %v", got.Tags)
	}
	if body != "hello\n" {
		t.Errorf("body = %q", body)
	}
}
