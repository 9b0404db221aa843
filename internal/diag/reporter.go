package diag

import "sync"

// Reporter receives diagnostics from compiler phases.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter adds to a Bag. It is safe for concurrent use.
type BagReporter struct {
	mu  sync.Mutex
	Bag *Bag
}

func (r *BagReporter) Report(d Diagnostic) {
	if r == nil || r.Bag == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Bag.Add(d)
}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, loc Location, msg string) {
	if r != nil {
		r.Report(NewError(code, loc, msg))
	}
}
