// Package version reports the compiler version. The variables can be
// overridden at build time via -ldflags.
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of casmc. Artifacts record it.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Colored renders v with each numeric component in its own color. Suffixes
// after the patch number are left plain.
func Colored(v string) string {
	core, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, suffix = v[:i], v[i:]
	}
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return v
	}
	return majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2]) + suffix
}

// String is the one-line version banner.
func String(colored bool) string {
	v := Version
	if colored {
		v = Colored(v)
	}
	var sb strings.Builder
	sb.WriteString("casmc ")
	sb.WriteString(v)
	if GitCommit != "" {
		sb.WriteString(" (" + GitCommit + ")")
	}
	if BuildDate != "" {
		sb.WriteString(" built " + BuildDate)
	}
	return sb.String()
}
