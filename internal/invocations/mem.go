package invocations

import (
	"sierracasm/internal/casm"
	"sierracasm/internal/references"
)

// BuildStoreTemp compiles store_temp<T>: every cell of the argument is
// asserted into a fresh temp and ap advances past them.
func BuildStoreTemp(b CompiledInvocationBuilder) (CompiledInvocation, error) {
	if len(b.Refs) != 1 {
		return CompiledInvocation{}, wrongArgs(1, len(b.Refs))
	}
	cells := b.Refs[0].Expression.Cells
	size, ok := b.Program.TypeSize(b.Libfunc.Type)
	if !ok || int(size) != len(cells) {
		return CompiledInvocation{}, invalidRef(nil)
	}

	cb := casm.NewBuilder()
	temps := make([]casm.Var, len(cells))
	for i, c := range cells {
		temps[i] = cb.AllocTemp()
		cb.Assert(temps[i], cb.AddVar(c.ToResOperand()))
	}
	res := cb.Build()

	ft := res.Fallthrough
	b.checkApChanges(ft.ApChange)
	out := references.ReferenceExpression{Cells: make([]references.CellExpression, len(temps))}
	for i, v := range temps {
		out.Cells[i] = references.FromDeref(ft.GetAdjustedAsCellRef(v))
	}
	return b.Build(res.Instructions, nil, [][]references.ReferenceExpression{{out}}), nil
}

// BuildFeltConst compiles felt_const<c> into an immediate reference.
func BuildFeltConst(b CompiledInvocationBuilder) (CompiledInvocation, error) {
	if len(b.Refs) != 0 {
		return CompiledInvocation{}, wrongArgs(0, len(b.Refs))
	}
	return b.BuildOnlyReferenceChanges([]references.ReferenceExpression{
		references.FromCell(references.FromImmediate(b.Libfunc.Const)),
	}), nil
}
