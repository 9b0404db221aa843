package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"sierracasm/internal/buildpipeline"
)

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan buildpipeline.Event)
	m := NewProgressModel("casmc build", []string{"a.toml", "b.toml"}, events).(*progressModel)

	steps := []buildpipeline.Event{
		{File: "a.toml", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusWorking},
		{File: "b.toml", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError, Err: errors.New("boom")},
		{File: "a.toml", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone, Elapsed: 1500 * time.Microsecond},
		{File: "unknown.toml", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusWorking},
	}
	for _, ev := range steps {
		m.Update(eventMsg(ev))
	}
	if got := m.items[0].status; got != "done" {
		t.Fatalf("a.toml status = %q", got)
	}
	if got := m.items[1].status; got != "error" {
		t.Fatalf("b.toml status = %q", got)
	}
	if m.failed != 1 || m.percent() != 1 {
		t.Fatalf("failed = %d, percent = %v", m.failed, m.percent())
	}

	m.Update(doneMsg{})
	view := m.View()
	for _, want := range []string{"done: casmc build (1 failed)", "1.5ms", "a.toml", "b.toml"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestStageProgress(t *testing.T) {
	tests := []struct {
		stage buildpipeline.Stage
		label string
	}{
		{buildpipeline.StageLoad, "loading"},
		{buildpipeline.StageCompile, "compiling"},
		{buildpipeline.StageWrite, "writing"},
	}
	prev := 0.0
	for _, tt := range tests {
		if got := statusLabel(tt.stage, buildpipeline.StatusWorking); got != tt.label {
			t.Errorf("label(%s) = %q, want %q", tt.stage, got, tt.label)
		}
		p := progressFromStage(tt.stage)
		if p <= prev {
			t.Errorf("progress for %s = %v, not above %v", tt.stage, p, prev)
		}
		prev = p
	}
}

func TestTruncate(t *testing.T) {
	got := truncate("programs/very_long_name.toml", 12)
	if !strings.HasSuffix(got, "...") || runewidth.StringWidth(got) > 12 {
		t.Fatalf("truncate = %q", got)
	}
	if got = truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
