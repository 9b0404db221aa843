package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeStatement, false},
		{LevelDetail, ScopeStatement, true},
		{LevelError, ScopeStatement, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	root := Begin(tr, ScopePass, "compile", 0)
	stmt := Begin(tr, ScopeStatement, "stmt#0", root.ID())
	stmt.End("store_temp")
	root.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	var ev jsonEvent
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "end" || ev.Scope != "statement" || ev.ParentID != root.ID() || ev.Detail != "store_temp" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestPhaseLevelDropsStatements(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	Begin(tr, ScopeStatement, "stmt#0", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("statement spans leaked at phase level: %q", buf.String())
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for i := 0; i < 5; i++ {
		Begin(r, ScopeStatement, "store_temp", 0).End(string(rune('a' + i)))
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Detail != "d" || snap[2].Detail != "e" || snap[1].Kind != KindSpanBegin {
		t.Fatalf("snapshot = %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump:\n%s", buf.String())
	}
}

func TestTextFormatMarksSpanEnds(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Time: at, Kind: KindSpanBegin, Scope: ScopePass, Name: "compile"}, "03:04:05.000006   → compile\n"},
		{Event{Time: at, Kind: KindSpanEnd, Scope: ScopeStatement, Name: "jump", Detail: "#3 instrs=1", Elapsed: 1500 * time.Microsecond},
			"03:04:05.000006     ← jump (#3 instrs=1) [1.5ms]\n"},
		{Event{Time: at, Kind: KindHeartbeat, Scope: ScopeDriver, Name: "heartbeat", Detail: "#2"}, "03:04:05.000006 ♡ heartbeat (#2)\n"},
	}
	for _, tt := range tests {
		if got := string(FormatEvent(&tt.ev, FormatText)); got != tt.want {
			t.Errorf("FormatEvent(%s) = %q, want %q", tt.ev.Kind, got, tt.want)
		}
	}
}

func TestNewSelectsTracer(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off level: %v %v", tr, err)
	}
	tr, err = New(Config{Level: LevelError, Mode: ModeStream, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*RingTracer); !ok {
		t.Fatalf("error level must only keep a ring, got %T", tr)
	}
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if Ring(tr) == nil {
		t.Fatal("both mode must expose its ring")
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context must yield Nop")
	}
	r := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	span := Begin(FromContext(ctx), ScopeDriver, "casmc", 0)
	ctx = WithSpan(ctx, span)
	if ParentID(ctx) != span.ID() || span.ID() == 0 {
		t.Fatalf("parent = %d, span = %d", ParentID(ctx), span.ID())
	}
}

func TestHeartbeatStops(t *testing.T) {
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	h.Stop()
	h.Stop()
	if len(r.Snapshot()) == 0 {
		t.Fatal("no heartbeats recorded")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("heartbeat on a disabled tracer")
	}
}
