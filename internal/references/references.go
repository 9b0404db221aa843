// Package references tracks where the values of program variables live.
package references

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"sierracasm/internal/casm"
	"sierracasm/internal/felt"
	"sierracasm/internal/sierra"
)

// CellKind enumerates CellExpression shapes.
type CellKind uint8

const (
	CellDeref CellKind = iota
	CellDoubleDeref
	CellImmediate
	CellBinOp
)

// CellExpression is the value of a single cell, either stored or computable
// by one instruction operand.
type CellExpression struct {
	Kind   CellKind
	Cell   casm.CellRef
	Offset int16 // CellDoubleDeref
	Imm    felt.Int
	Op     casm.Operation
	B      casm.DerefOrImmediate
}

// FromDeref builds a stored cell.
func FromDeref(c casm.CellRef) CellExpression { return CellExpression{Kind: CellDeref, Cell: c} }

// FromImmediate builds a constant cell.
func FromImmediate(v felt.Int) CellExpression { return CellExpression{Kind: CellImmediate, Imm: v} }

// FromResOperand converts an instruction operand to a cell expression.
func FromResOperand(op casm.ResOperand) CellExpression {
	switch op.Kind {
	case casm.ResDeref:
		return FromDeref(op.Cell)
	case casm.ResDoubleDeref:
		return CellExpression{Kind: CellDoubleDeref, Cell: op.Cell, Offset: op.Offset}
	case casm.ResImmediate:
		return FromImmediate(op.Imm)
	default:
		return CellExpression{Kind: CellBinOp, Op: op.Op, Cell: op.Cell, B: op.B}
	}
}

// ToResOperand is the inverse of FromResOperand.
func (c CellExpression) ToResOperand() casm.ResOperand {
	switch c.Kind {
	case CellDeref:
		return casm.ResFromDeref(c.Cell)
	case CellDoubleDeref:
		return casm.ResFromDoubleDeref(c.Cell, c.Offset)
	case CellImmediate:
		return casm.ResFromImmediate(c.Imm)
	default:
		return casm.ResFromBinOp(c.Op, c.Cell, c.B)
	}
}

// ToDeref returns the cell if the expression is a stored cell.
func (c CellExpression) ToDeref() (casm.CellRef, error) {
	if c.Kind != CellDeref {
		return casm.CellRef{}, &ReferencesError{Kind: ErrInvalidReferenceTypeForArgument, Detail: "expected a stored cell, got " + c.String()}
	}
	return c.Cell, nil
}

// ToBuffer returns the expression as a buffer pointer: a stored cell, or a
// cell plus an immediate offset not exceeding maxOffset so that the caller
// can still advance it.
func (c CellExpression) ToBuffer(maxOffset int16) (casm.ResOperand, error) {
	switch c.Kind {
	case CellDeref:
		return casm.ResFromDeref(c.Cell), nil
	case CellBinOp:
		if c.Op != casm.OpAdd || !c.B.IsImmediate {
			break
		}
		off, ok := c.B.Imm.Int64()
		if !ok || off < 0 || off > int64(maxOffset) {
			return casm.ResOperand{}, &ReferencesError{
				Kind:   ErrInvalidReferenceTypeForArgument,
				Detail: fmt.Sprintf("buffer offset %s exceeds %d", c.B.Imm, maxOffset),
			}
		}
		return c.ToResOperand(), nil
	}
	return casm.ResOperand{}, &ReferencesError{Kind: ErrInvalidReferenceTypeForArgument, Detail: "expected a buffer, got " + c.String()}
}

// ApplyApChange rebases ap cells after ap advanced by delta.
func (c CellExpression) ApplyApChange(delta int) (CellExpression, error) {
	var err error
	switch c.Kind {
	case CellDeref, CellDoubleDeref:
		c.Cell, err = rebase(c.Cell, delta)
	case CellBinOp:
		if c.Cell, err = rebase(c.Cell, delta); err == nil && !c.B.IsImmediate {
			c.B.Cell, err = rebase(c.B.Cell, delta)
		}
	}
	return c, err
}

// Equal compares two cell expressions structurally.
func (c CellExpression) Equal(o CellExpression) bool {
	return c.ToResOperand().Equal(o.ToResOperand())
}

func (c CellExpression) String() string { return c.ToResOperand().String() }

// ReferenceExpression is the location of a value spanning Cells.
type ReferenceExpression struct {
	Cells []CellExpression
}

// FromCell builds a single cell reference.
func FromCell(c CellExpression) ReferenceExpression {
	return ReferenceExpression{Cells: []CellExpression{c}}
}

// TryUnpackSingle returns the only cell of a one-cell reference.
func (r ReferenceExpression) TryUnpackSingle() (CellExpression, error) {
	if len(r.Cells) != 1 {
		return CellExpression{}, &ReferencesError{
			Kind:   ErrUnexpectedNumberOfCells,
			Detail: fmt.Sprintf("expected 1 cell, got %d", len(r.Cells)),
		}
	}
	return r.Cells[0], nil
}

// ApplyApChange rebases every cell.
func (r ReferenceExpression) ApplyApChange(delta int) (ReferenceExpression, error) {
	out := ReferenceExpression{Cells: make([]CellExpression, len(r.Cells))}
	for i, c := range r.Cells {
		moved, err := c.ApplyApChange(delta)
		if err != nil {
			return ReferenceExpression{}, err
		}
		out.Cells[i] = moved
	}
	return out, nil
}

// Equal compares two reference expressions cell by cell.
func (r ReferenceExpression) Equal(o ReferenceExpression) bool {
	if len(r.Cells) != len(o.Cells) {
		return false
	}
	for i := range r.Cells {
		if !r.Cells[i].Equal(o.Cells[i]) {
			return false
		}
	}
	return true
}

func (r ReferenceExpression) String() string {
	parts := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ReferenceValue is a typed reference expression.
type ReferenceValue struct {
	Expression ReferenceExpression
	Type       sierra.ConcreteTypeID
}

func rebase(c casm.CellRef, delta int) (casm.CellRef, error) {
	if c.Register != casm.AP || delta == 0 {
		return c, nil
	}
	off, err := safecast.Conv[int16](int(c.Offset) - delta)
	if err != nil {
		return c, &ReferencesError{Kind: ErrApChangeOutOfRange, Detail: fmt.Sprintf("%s moved by %d", c, delta)}
	}
	return casm.CellRef{Register: casm.AP, Offset: off}, nil
}
