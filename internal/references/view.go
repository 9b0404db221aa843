package references

import (
	"fortio.org/safecast"

	"sierracasm/internal/casm"
	"sierracasm/internal/sierra"
)

// TypeSizes reports the cell size of concrete types.
type TypeSizes interface {
	TypeSize(id sierra.ConcreteTypeID) (int16, bool)
}

// ArrayView is an array reference unpacked into its start and end cells.
// EndOffset counts words appended past End that are not yet stored.
type ArrayView struct {
	Start     casm.CellRef
	End       casm.CellRef
	EndOffset int16
}

// TryGetView unpacks expr as an array of type arrayTy.
func TryGetView(expr ReferenceExpression, sizes TypeSizes, arrayTy sierra.ConcreteTypeID) (ArrayView, error) {
	size, ok := sizes.TypeSize(arrayTy)
	if !ok || int(size) != len(expr.Cells) || len(expr.Cells) != 2 {
		return ArrayView{}, &ReferencesError{Kind: ErrUnexpectedNumberOfCells, Detail: "array reference must have 2 cells, got " + expr.String()}
	}
	start, err := expr.Cells[0].ToDeref()
	if err != nil {
		return ArrayView{}, err
	}
	endCell := expr.Cells[1]
	switch endCell.Kind {
	case CellDeref:
		return ArrayView{Start: start, End: endCell.Cell}, nil
	case CellBinOp:
		if endCell.Op == casm.OpAdd && endCell.B.IsImmediate {
			if off, ok := endCell.B.Imm.Int64(); ok && off >= 0 {
				if n, err := safecast.Conv[int16](off); err == nil {
					return ArrayView{Start: start, End: endCell.Cell, EndOffset: n}, nil
				}
			}
		}
	}
	return ArrayView{}, &ReferencesError{Kind: ErrInvalidReferenceTypeForArgument, Detail: "array end must be a cell plus a constant, got " + endCell.String()}
}
