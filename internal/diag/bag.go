package diag

import (
	"cmp"
	"slices"
)

// Bag collects diagnostics up to a limit. It is not goroutine-safe.
type Bag struct {
	items   []Diagnostic
	max     int
	dropped int
}

// NewBag returns a bag that keeps at most max diagnostics (0 for no limit).
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add records d. It returns false once the limit is reached.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Dropped counts diagnostics rejected by the limit.
func (b *Bag) Dropped() int { return b.dropped }

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

func (b *Bag) Len() int { return len(b.items) }

// Items returns the collected diagnostics. Callers must not modify them.
func (b *Bag) Items() []Diagnostic { return b.items }

// Merge appends other's diagnostics, ignoring the limit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Sort orders diagnostics by file, statement, severity (desc) and code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Statement, y.Primary.Statement),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

// Dedup drops repeated diagnostics with the same code, location and message.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		loc  Location
		msg  string
	}
	seen := make(map[key]bool, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		k := key{d.Code, d.Primary, d.Message}
		if seen[k] {
			return true
		}
		seen[k] = true
		return false
	})
}
