package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	codeColor    = color.New(color.Faint)
)

// Pretty writes one line per diagnostic:
//
//	<location>: <severity> <CODE>: <message>
//
// followed by indented notes. The bag should be sorted first.
func Pretty(w io.Writer, bag *Bag, opts PrettyOpts) error {
	paint := func(c *color.Color, s string) string {
		if !opts.Color {
			return s
		}
		c.EnableColor()
		return c.Sprint(s)
	}
	for _, d := range bag.Items() {
		sev := d.Severity.String()
		switch d.Severity {
		case SevError:
			sev = paint(errorColor, sev)
		case SevWarning:
			sev = paint(warningColor, sev)
		default:
			sev = paint(infoColor, sev)
		}
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n", d.Primary, sev, paint(codeColor, d.Code.ID()), d.Message); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "    note: %s: %s\n", n.Loc, n.Msg); err != nil {
				return err
			}
		}
	}
	if bag.Dropped() > 0 {
		if _, err := fmt.Fprintf(w, "... %d more diagnostics omitted\n", bag.Dropped()); err != nil {
			return err
		}
	}
	return nil
}
