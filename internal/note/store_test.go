package note

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

func newTestNote(uid, title, body string) *Note {
	now := time.Now().UTC()
	return &Note{
		FrontMatter: FrontMatter{
			ID:      uid,
			Title:   title,
			Created: now,
			Updated: now,
		},
		Body: body,
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := NewStore(t.TempDir())
	n := newTestNote(testUID, "Persisted", "hello world\n")
	n.Path = s.NotePath("Persisted", testUID)

	if err := s.Save(n); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(n.Path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.FrontMatter.Title != "Persisted" || loaded.Body != "hello world\n" {
		t.Errorf("loaded = %+v body=%q", loaded.FrontMatter, loaded.Body)
	}
}

func TestSaveRefreshesUpdated(t *testing.T) {
	s := NewStore(t.TempDir())
	n := newTestNote(testUID, "Clock", "body")
	n.FrontMatter.Updated = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	n.Path = s.NotePath("Clock", testUID)

	if err := s.Save(n); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n.FrontMatter.Updated.Year() == 2020 {
		t.Error("Save should refresh Updated")
	}
}

func TestSaveUpdatedStrictlyIncreases(t *testing.T) {
	s := NewStore(t.TempDir())
	n := newTestNote(testUID, "Rapid", "v1")
	n.Path = s.NotePath("Rapid", testUID)

	if err := s.Save(n); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	first, err := s.Load(n.Path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := first.FrontMatter.Updated

	// A second save in the same instant must still land strictly later
	// after a round trip through the file.
	first.Body = "v2"
	if err := s.Save(first); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, err := s.Load(first.Path, true)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !second.FrontMatter.Updated.After(before) {
		t.Errorf("updated not strictly later: %v -> %v",
			before, second.FrontMatter.Updated)
	}
}

func TestSaveSweepsStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	n := newTestNote(testUID, "Sweep", "body")
	n.Path = s.NotePath("Sweep", testUID)

	// A temp file a crashed writer would have left behind.
	base := filepath.Base(n.Path)
	stale := filepath.Join(dir, "."+base+".tmp.1700000000000.000001")
	if err := os.WriteFile(stale, []byte("partial"), 0o644); err != nil {
		t.Fatalf("plant temp file: %v", err)
	}

	if err := s.Save(n); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale temp file should be swept after a successful save")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("unexpected temp file remains: %s", e.Name())
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Load(filepath.Join(s.Root, "absent.md"), true)
	if !vaulterr.Is(err, vaulterr.FileNotFound) {
		t.Errorf("code = %v, want FILE_NOT_FOUND", vaulterr.CodeOf(err))
	}
}

func TestDeleteMissingIsOK(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Delete(filepath.Join(s.Root, "absent.md")); err != nil {
		t.Errorf("Delete of missing file: %v", err)
	}
}

func TestFindByUID(t *testing.T) {
	s := NewStore(t.TempDir())

	uids := []string{
		"20250101T000000000001Z",
		"20250102T000000000002Z",
	}
	for i, uid := range uids {
		n := newTestNote(uid, "Note "+string(rune('A'+i)), "body")
		n.Path = s.NotePath(n.FrontMatter.Title, uid)
		if err := s.Save(n); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	n, err := s.FindByUID(uids[1])
	if err != nil {
		t.Fatalf("FindByUID: %v", err)
	}
	if n.FrontMatter.Title != "Note B" {
		t.Errorf("found %q", n.FrontMatter.Title)
	}

	if _, err := s.FindByUID("20250199T999999999999Z"); !vaulterr.Is(err, vaulterr.ResourceNotFound) {
		t.Errorf("missing UID code = %v", vaulterr.CodeOf(err))
	}
	if _, err := s.FindByUID("bogus"); !vaulterr.Is(err, vaulterr.InvalidUID) {
		t.Errorf("invalid UID code = %v", vaulterr.CodeOf(err))
	}
}

func TestLoadAllSkipsInvalidAndHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	n := newTestNote(testUID, "Good", "body")
	n.Path = s.NotePath("Good", testUID)
	if err := s.Save(n); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Damaged file and an index sidecar that must not be scanned.
	os.WriteFile(filepath.Join(dir, "broken.md"), []byte("no front matter"), 0o644)
	os.MkdirAll(filepath.Join(dir, ".notevault"), 0o755)
	os.WriteFile(filepath.Join(dir, ".notevault", "hidden.md"), []byte("x"), 0o644)

	notes, err := s.LoadAll(context.Background(), LoadOptions{SkipInvalid: true})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(notes) != 1 || notes[0].FrontMatter.ID != testUID {
		t.Errorf("LoadAll returned %d notes", len(notes))
	}

	if _, err := s.LoadAll(context.Background(), LoadOptions{}); err == nil {
		t.Error("LoadAll without SkipInvalid should fail on the damaged file")
	}
}

func TestFindBacklinks(t *testing.T) {
	s := NewStore(t.TempDir())

	target := newTestNote("20250101T000000000001Z", "Target", "target body")
	target.Path = s.NotePath("Target", target.FrontMatter.ID)

	ref := newTestNote("20250102T000000000002Z", "Referrer",
		"intro line\nsee [[20250101T000000000001Z]] here\noutro line\n")
	ref.Path = s.NotePath("Referrer", ref.FrontMatter.ID)

	fmOnly := newTestNote("20250103T000000000003Z", "FrontMatterRef", "no body links")
	fmOnly.FrontMatter.Links = []string{"20250101T000000000001Z"}
	fmOnly.Path = s.NotePath("FrontMatterRef", fmOnly.FrontMatter.ID)

	for _, n := range []*Note{target, ref, fmOnly} {
		if err := s.Save(n); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	backlinks, err := s.FindBacklinks(context.Background(), target.FrontMatter.ID, 1)
	if err != nil {
		t.Fatalf("FindBacklinks: %v", err)
	}
	if len(backlinks) != 2 {
		t.Fatalf("got %d backlinks, want 2", len(backlinks))
	}

	byUID := map[string][]BacklinkContext{}
	for _, bl := range backlinks {
		byUID[bl.SourceUID] = bl.Contexts
	}

	refCtx := byUID[ref.FrontMatter.ID]
	if len(refCtx) != 1 {
		t.Fatalf("referrer contexts = %d", len(refCtx))
	}
	if refCtx[0].LinkType != LinkTypeWiki || refCtx[0].Line != 2 {
		t.Errorf("context = %+v", refCtx[0])
	}
	if !strings.Contains(refCtx[0].Snippet, "intro line") ||
		!strings.Contains(refCtx[0].Snippet, "outro line") {
		t.Errorf("snippet missing context lines: %q", refCtx[0].Snippet)
	}

	fmCtx := byUID[fmOnly.FrontMatter.ID]
	if len(fmCtx) != 1 || fmCtx[0].Line != 0 {
		t.Errorf("front-matter-only context = %+v", fmCtx)
	}
}
