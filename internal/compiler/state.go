package compiler

import (
	"fmt"
	"maps"
	"slices"

	"fortio.org/safecast"

	"sierracasm/internal/apchange"
	"sierracasm/internal/casm"
	"sierracasm/internal/references"
	"sierracasm/internal/sierra"
)

// state is the location of every live variable at the start of a
// statement, relative to ap at that point.
type state struct {
	refs map[sierra.VarID]references.ReferenceValue
	fn   int
}

func (s *state) clone() *state {
	return &state{refs: maps.Clone(s.refs), fn: s.fn}
}

// take removes args from s and returns their references in order.
func (s *state) take(args []sierra.VarID) ([]references.ReferenceValue, error) {
	out := make([]references.ReferenceValue, len(args))
	for i, v := range args {
		ref, ok := s.refs[v]
		if !ok {
			return nil, fmt.Errorf("variable %d is not defined", v)
		}
		out[i] = ref
		delete(s.refs, v)
	}
	return out, nil
}

// advance rebases the ap-based references after a branch with ap-change ch.
func (s *state) advance(ch apchange.ApChange) error {
	for v, ref := range s.refs {
		if ch.Kind == apchange.Unknown {
			if usesAp(ref.Expression) {
				return fmt.Errorf("variable %d lives at %s across an unknown ap-change", v, ref.Expression)
			}
			continue
		}
		moved, err := ref.Expression.ApplyApChange(ch.Value)
		if err != nil {
			return fmt.Errorf("variable %d: %w", v, err)
		}
		ref.Expression = moved
		s.refs[v] = ref
	}
	return nil
}

// equal reports whether two states agree on every variable.
func (s *state) equal(o *state) bool {
	if s.fn != o.fn || len(s.refs) != len(o.refs) {
		return false
	}
	for v, a := range s.refs {
		b, ok := o.refs[v]
		if !ok || a.Type != b.Type || !a.Expression.Equal(b.Expression) {
			return false
		}
	}
	return true
}

// diff describes the first variable on which s and o disagree.
func (s *state) diff(o *state) string {
	keys := slices.Sorted(maps.Keys(s.refs))
	for _, v := range keys {
		b, ok := o.refs[v]
		if !ok {
			return fmt.Sprintf("variable %d is only live on one side", v)
		}
		if a := s.refs[v]; !a.Expression.Equal(b.Expression) {
			return fmt.Sprintf("variable %d at %s vs %s", v, a.Expression, b.Expression)
		}
	}
	for v := range o.refs {
		if _, ok := s.refs[v]; !ok {
			return fmt.Sprintf("variable %d is only live on one side", v)
		}
	}
	return "states differ"
}

func usesAp(e references.ReferenceExpression) bool {
	for _, c := range e.Cells {
		switch c.Kind {
		case references.CellDeref, references.CellDoubleDeref:
			if c.Cell.Register == casm.AP {
				return true
			}
		case references.CellBinOp:
			if c.Cell.Register == casm.AP || (!c.B.IsImmediate && c.B.Cell.Register == casm.AP) {
				return true
			}
		}
	}
	return false
}

// entryState lays out the parameters of f below fp: the last parameter
// ends at [fp - 3], the ones before it further down.
func entryState(fn int, f sierra.Function, sizes typeSizes) (*state, error) {
	st := &state{refs: make(map[sierra.VarID]references.ReferenceValue, len(f.Params)), fn: fn}
	next := -3
	for _, p := range slices.Backward(f.Params) {
		size, ok := sizes.TypeSize(p.Type)
		if !ok {
			return nil, fmt.Errorf("parameter %d has unknown type#%d", p.ID, p.Type)
		}
		if _, dup := st.refs[p.ID]; dup {
			return nil, fmt.Errorf("parameter %d declared twice", p.ID)
		}
		cells := make([]references.CellExpression, size)
		for k := range cells {
			off, err := safecast.Conv[int16](next - int(size) + 1 + k)
			if err != nil {
				return nil, fmt.Errorf("parameters of %s overflow the frame: %w", f.Name, err)
			}
			cells[k] = references.FromDeref(casm.FPRef(off))
		}
		next -= int(size)
		st.refs[p.ID] = references.ReferenceValue{Expression: references.ReferenceExpression{Cells: cells}, Type: p.Type}
	}
	return st, nil
}

type typeSizes interface {
	TypeSize(id sierra.ConcreteTypeID) (int16, bool)
}
