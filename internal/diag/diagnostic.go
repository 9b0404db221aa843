package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// NoStatement marks a location that is not tied to a statement.
const NoStatement = -1

// Location points into the compiled program.
type Location struct {
	File      string
	Statement int // NoStatement if not tied to a statement
	Line      int // 0 if unknown
}

// At builds a location for statement idx of file.
func At(file string, idx int) Location {
	return Location{File: file, Statement: idx}
}

// InFile builds a location for a whole file.
func InFile(file string) Location {
	return Location{File: file, Statement: NoStatement}
}

func (l Location) String() string {
	var sb strings.Builder
	sb.WriteString(l.File)
	if l.Line > 0 {
		fmt.Fprintf(&sb, ":%d", l.Line)
	}
	if l.Statement >= 0 {
		fmt.Fprintf(&sb, " (statement #%d)", l.Statement)
	}
	return sb.String()
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary Location, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}
