package diag

import (
	"strings"
	"testing"
)

func TestBagLimitSortDedup(t *testing.T) {
	b := NewBag(3)
	b.Add(NewError(InvInvalidReference, At("b.toml", 4), "x"))
	b.Add(New(SevWarning, PrgUnreachable, At("a.toml", 9), "y"))
	b.Add(NewError(InvInvalidReference, At("b.toml", 4), "x"))
	if b.Add(NewError(PrgInvalid, InFile("a.toml"), "z")) {
		t.Fatal("limit must reject the fourth diagnostic")
	}
	if b.Dropped() != 1 || !b.HasErrors() {
		t.Fatalf("dropped=%d errors=%v", b.Dropped(), b.HasErrors())
	}
	b.Dedup()
	b.Sort()
	items := b.Items()
	if len(items) != 2 || items[0].Primary.File != "a.toml" || items[1].Code != InvInvalidReference {
		t.Fatalf("items = %+v", items)
	}
}

func TestCodeIDs(t *testing.T) {
	tests := map[Code]string{
		IOReadFailed:         "IO1001",
		PrgBranchMismatch:    "PRG2004",
		SpcInvalidArg:        "SPC3004",
		InvWrongNumberOfArgs: "INV4001",
		RefStateMismatch:     "REF5003",
		ArtIncompatible:      "ART6001",
		UnknownCode:          "E0000",
	}
	for code, want := range tests {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %s, want %s", code, got, want)
		}
	}
	if Code(4999).Title() != "unknown error" {
		t.Fatal("unregistered codes fall back to the unknown title")
	}
}

func TestPretty(t *testing.T) {
	b := NewBag(0)
	d := NewError(InvWrongNumberOfArgs, Location{File: "p.toml", Statement: 2, Line: 14}, "expected 4, got 3").
		WithNote(InFile("p.toml"), "declared here")
	b.Add(d)
	var sb strings.Builder
	if err := Pretty(&sb, b, PrettyOpts{ShowNotes: true}); err != nil {
		t.Fatal(err)
	}
	want := "p.toml:14 (statement #2): error INV4001: expected 4, got 3\n" +
		"    note: p.toml: declared here\n"
	if sb.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestBagReporter(t *testing.T) {
	r := &BagReporter{Bag: NewBag(0)}
	ReportError(r, RefUnknownVariable, At("p.toml", 0), "v3")
	if r.Bag.Len() != 1 {
		t.Fatalf("len = %d", r.Bag.Len())
	}
}
