package trace

import (
	"sync/atomic"
	"time"
)

// Span IDs start at 1, so a zero ParentID always means a root.
var seqs, spanIDs atomic.Uint64

// Span is an open interval of work. A nil or disabled span is valid and
// does nothing.
type Span struct {
	tracer  Tracer
	ev      Event
	started time.Time
}

// Begin starts a span under parent (0 for a root) and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	s := &Span{
		tracer:  t,
		started: time.Now(),
		ev: Event{
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   spanIDs.Add(1),
			ParentID: parent,
			Name:     name,
		},
	}
	begin := s.ev
	begin.Time, begin.Seq = s.started, seqs.Add(1)
	t.Emit(&begin)
	return s
}

// End emits the end event and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	end := s.ev
	end.Time, end.Seq = time.Now(), seqs.Add(1)
	end.Kind, end.Detail = KindSpanEnd, detail
	end.Elapsed = end.Time.Sub(s.started)
	s.tracer.Emit(&end)
	return end.Elapsed
}

// ID returns the span ID, 0 for disabled spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.ev.SpanID
}
