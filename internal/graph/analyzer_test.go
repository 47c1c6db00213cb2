package graph

import (
	"reflect"
	"testing"
	"time"

	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

const (
	uidA = "20250101T000000000001Z"
	uidB = "20250102T000000000002Z"
	uidC = "20250103T000000000003Z"
	uidD = "20250104T000000000004Z"
)

func corpusNote(uid, title, body string) *note.Note {
	now := time.Now().UTC()
	return &note.Note{
		FrontMatter: note.FrontMatter{
			ID:      uid,
			Title:   title,
			Created: now,
			Updated: now,
		},
		Body: body,
	}
}

func testCorpus() []*note.Note {
	a := corpusNote(uidA, "Hub", "links to [[20250102T000000000002Z]] and [[20250199T999999999999Z]]")
	b := corpusNote(uidB, "Spoke", "back to [[20250101T000000000001Z]]")
	c := corpusNote(uidC, "Island", "no links at all")
	return []*note.Note{a, b, c}
}

func TestOutbound(t *testing.T) {
	a := NewAnalyzer(testCorpus())

	out, err := a.Outbound(uidA)
	if err != nil {
		t.Fatalf("Outbound: %v", err)
	}
	want := []string{uidB, "20250199T999999999999Z"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("outbound = %v, want %v", out, want)
	}

	if _, err := a.Outbound("20250150T000000000000Z"); !vaulterr.Is(err, vaulterr.ResourceNotFound) {
		t.Errorf("unknown UID code = %v", vaulterr.CodeOf(err))
	}
}

func TestInbound(t *testing.T) {
	a := NewAnalyzer(testCorpus())

	in, err := a.Inbound(uidB)
	if err != nil {
		t.Fatalf("Inbound: %v", err)
	}
	if !reflect.DeepEqual(in, []string{uidA}) {
		t.Errorf("inbound = %v", in)
	}

	in, err = a.Inbound(uidC)
	if err != nil {
		t.Fatalf("Inbound island: %v", err)
	}
	if len(in) != 0 {
		t.Errorf("island inbound = %v", in)
	}
}

func TestBroken(t *testing.T) {
	a := NewAnalyzer(testCorpus())

	broken, err := a.Broken(uidA)
	if err != nil {
		t.Fatalf("Broken: %v", err)
	}
	if !reflect.DeepEqual(broken, []string{"20250199T999999999999Z"}) {
		t.Errorf("broken = %v", broken)
	}

	broken, err = a.Broken(uidB)
	if err != nil {
		t.Fatalf("Broken spoke: %v", err)
	}
	if len(broken) != 0 {
		t.Errorf("spoke broken = %v", broken)
	}
}

func TestOrphans(t *testing.T) {
	a := NewAnalyzer(testCorpus())

	orphans := a.Orphans()
	if len(orphans) != 1 || orphans[0].FrontMatter.ID != uidC {
		t.Errorf("orphans = %d", len(orphans))
	}
}

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer(testCorpus())

	report, err := a.Analyze(uidA)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.UID != uidA || len(report.Outbound) != 2 ||
		len(report.Inbound) != 1 || len(report.Broken) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestDuplicateUIDsKeepFirst(t *testing.T) {
	first := corpusNote(uidA, "First", "body")
	second := corpusNote(uidA, "Second", "body")
	a := NewAnalyzer([]*note.Note{first, second})

	if got := a.Note(uidA); got.FrontMatter.Title != "First" {
		t.Errorf("kept %q, want first occurrence", got.FrontMatter.Title)
	}
}
