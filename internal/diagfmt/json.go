package diagfmt

import (
	"encoding/json"
	"io"
	"path/filepath"

	"sierracasm/internal/diag"
)

// LocationJSON is a diagnostic location. Statement is omitted when the
// diagnostic is not tied to a statement.
type LocationJSON struct {
	File      string `json:"file,omitempty"`
	Statement *int   `json:"statement,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// NoteJSON is a note attached to a diagnostic.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON document.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Dropped     int              `json:"dropped,omitempty"`
}

func makeLocation(loc diag.Location, opts JSONOpts) LocationJSON {
	out := LocationJSON{File: formatPath(loc.File, opts), Line: loc.Line}
	if loc.Statement != diag.NoStatement {
		idx := loc.Statement
		out.Statement = &idx
	}
	return out
}

func formatPath(path string, opts JSONOpts) string {
	if path == "" {
		return ""
	}
	switch opts.PathMode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeRelative:
		base := opts.BaseDir
		if base == "" {
			base = "."
		}
		absBase, err1 := filepath.Abs(base)
		absPath, err2 := filepath.Abs(path)
		if err1 == nil && err2 == nil {
			if rel, err := filepath.Rel(absBase, absPath); err == nil {
				return rel
			}
		}
	case PathModeBasename:
		return filepath.Base(path)
	}
	return path
}

// BuildDiagnosticsOutput assembles the JSON document without encoding it.
func BuildDiagnosticsOutput(bag *diag.Bag, opts JSONOpts) DiagnosticsOutput {
	output := DiagnosticsOutput{Diagnostics: []DiagnosticJSON{}}
	if bag == nil {
		return output
	}
	items := bag.Items()
	n := len(items)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	for _, d := range items[:n] {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, opts),
		}
		if opts.IncludeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				dj.Notes[j] = NoteJSON{Message: note.Msg, Location: makeLocation(note.Loc, opts)}
			}
		}
		output.Diagnostics = append(output.Diagnostics, dj)
	}
	output.Count = len(output.Diagnostics)
	output.Dropped = bag.Dropped() + len(items) - n
	return output
}

// JSON writes bag as an indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, opts))
}
