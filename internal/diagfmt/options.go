// Package diagfmt renders diagnostic bags in machine-readable form.
package diagfmt

import "fmt"

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAsIs prints paths the way they were given.
	PathModeAsIs PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	// PathModeRelative prints paths relative to JSONOpts.BaseDir.
	PathModeRelative
	PathModeBasename
)

// ParsePathMode reads the --diagnostics-paths flag value.
func ParsePathMode(s string) (PathMode, error) {
	switch s {
	case "", "as-is":
		return PathModeAsIs, nil
	case "absolute":
		return PathModeAbsolute, nil
	case "relative":
		return PathModeRelative, nil
	case "basename":
		return PathModeBasename, nil
	}
	return PathModeAsIs, fmt.Errorf("unknown path mode %q (expected as-is|absolute|relative|basename)", s)
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode PathMode
	BaseDir  string
	Max      int // trims the output, not the bag
	// IncludeNotes adds the notes attached to each diagnostic.
	IncludeNotes bool
}
