package trace

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format is the encoding of streamed events.
type Format uint8

const (
	// FormatAuto picks NDJSON for *.ndjson outputs and text otherwise.
	FormatAuto Format = iota
	FormatText
	FormatNDJSON
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// FormatEvent encodes ev as one line.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return formatNDJSON(ev)
	}
	return formatText(ev)
}

type jsonEvent struct {
	Time      string `json:"time"`
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope"`
	SpanID    uint64 `json:"span_id,omitempty"`
	ParentID  uint64 `json:"parent_id,omitempty"`
	Name      string `json:"name"`
	Detail    string `json:"detail,omitempty"`
	ElapsedUS int64  `json:"elapsed_us,omitempty"`
}

func formatNDJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:      ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		SpanID:    ev.SpanID,
		ParentID:  ev.ParentID,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedUS: ev.Elapsed.Microseconds(),
	})
	if err != nil {
		return []byte(fmt.Sprintf("{\"error\":%q}\n", err.Error()))
	}
	return append(data, '\n')
}

var arrows = [...]string{KindSpanBegin: "→ ", KindSpanEnd: "← ", KindHeartbeat: "♡ "}

// formatText renders "15:04:05.000000 <indent><arrow> name (detail) [elapsed]".
func formatText(ev *Event) []byte {
	var sb strings.Builder
	sb.WriteString(ev.Time.Format("15:04:05.000000"))
	sb.WriteByte(' ')
	if ev.Scope > ScopeDriver {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeDriver)))
	}
	if int(ev.Kind) < len(arrows) {
		sb.WriteString(arrows[ev.Kind])
	}
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	if ev.Kind == KindSpanEnd {
		fmt.Fprintf(&sb, " [%s]", ev.Elapsed.Round(time.Microsecond))
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
