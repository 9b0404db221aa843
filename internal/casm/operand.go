package casm

import (
	"fmt"

	"sierracasm/internal/felt"
)

// Register is one of the two addressing registers.
type Register uint8

const (
	AP Register = iota
	FP
)

func (r Register) String() string {
	if r == FP {
		return "fp"
	}
	return "ap"
}

// CellRef is a register-relative memory cell, [reg + offset].
type CellRef struct {
	Register Register
	Offset   int16
}

// APRef builds [ap + off].
func APRef(off int16) CellRef { return CellRef{Register: AP, Offset: off} }

// FPRef builds [fp + off].
func FPRef(off int16) CellRef { return CellRef{Register: FP, Offset: off} }

func (c CellRef) String() string {
	switch {
	case c.Offset > 0:
		return fmt.Sprintf("[%s + %d]", c.Register, c.Offset)
	case c.Offset < 0:
		return fmt.Sprintf("[%s + (%d)]", c.Register, c.Offset)
	default:
		return fmt.Sprintf("[%s + 0]", c.Register)
	}
}

// DerefOrImmediate is the second operand of a binary operation, or a jump
// target.
type DerefOrImmediate struct {
	IsImmediate bool
	Cell        CellRef
	Imm         felt.Int
}

// Imm builds an immediate operand.
func Imm(v felt.Int) DerefOrImmediate { return DerefOrImmediate{IsImmediate: true, Imm: v} }

// ImmInt64 builds an immediate operand from an int64.
func ImmInt64(v int64) DerefOrImmediate { return Imm(felt.FromInt64(v)) }

// Deref builds a cell operand.
func Deref(c CellRef) DerefOrImmediate { return DerefOrImmediate{Cell: c} }

func (d DerefOrImmediate) Equal(o DerefOrImmediate) bool {
	if d.IsImmediate != o.IsImmediate {
		return false
	}
	if d.IsImmediate {
		return d.Imm.Equal(o.Imm)
	}
	return d.Cell == o.Cell
}

func (d DerefOrImmediate) String() string {
	if d.IsImmediate {
		return d.Imm.String()
	}
	return d.Cell.String()
}

// Operation is a binary operator of a ResOperand.
type Operation uint8

const (
	OpAdd Operation = iota
	OpMul
)

func (op Operation) String() string {
	if op == OpMul {
		return "*"
	}
	return "+"
}

// ResKind distinguishes ResOperand shapes.
type ResKind uint8

const (
	ResDeref ResKind = iota
	// ResDoubleDeref is [[cell] + offset].
	ResDoubleDeref
	ResImmediate
	// ResBinOp is cell op b.
	ResBinOp
)

// ResOperand is the right-hand side of an assertion.
type ResOperand struct {
	Kind   ResKind
	Cell   CellRef
	Offset int16 // ResDoubleDeref
	Imm    felt.Int
	Op     Operation
	B      DerefOrImmediate
}

// ResFromDeref builds a ResDeref operand.
func ResFromDeref(c CellRef) ResOperand { return ResOperand{Kind: ResDeref, Cell: c} }

// ResFromImmediate builds a ResImmediate operand.
func ResFromImmediate(v felt.Int) ResOperand { return ResOperand{Kind: ResImmediate, Imm: v} }

// ResFromDoubleDeref builds [[c] + off].
func ResFromDoubleDeref(c CellRef, off int16) ResOperand {
	return ResOperand{Kind: ResDoubleDeref, Cell: c, Offset: off}
}

// ResFromBinOp builds a op b.
func ResFromBinOp(op Operation, a CellRef, b DerefOrImmediate) ResOperand {
	return ResOperand{Kind: ResBinOp, Op: op, Cell: a, B: b}
}

// Equal compares two operands structurally.
func (r ResOperand) Equal(o ResOperand) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case ResDeref:
		return r.Cell == o.Cell
	case ResDoubleDeref:
		return r.Cell == o.Cell && r.Offset == o.Offset
	case ResImmediate:
		return r.Imm.Equal(o.Imm)
	case ResBinOp:
		return r.Op == o.Op && r.Cell == o.Cell && r.B.Equal(o.B)
	}
	return false
}

// HasImmediate reports whether encoding the operand needs an extra word.
func (r ResOperand) HasImmediate() bool {
	switch r.Kind {
	case ResImmediate:
		return true
	case ResBinOp:
		return r.B.IsImmediate
	}
	return false
}

func (r ResOperand) String() string {
	switch r.Kind {
	case ResDeref:
		return r.Cell.String()
	case ResDoubleDeref:
		if r.Offset == 0 {
			return fmt.Sprintf("[%s]", r.Cell)
		}
		return fmt.Sprintf("[%s + %d]", r.Cell, r.Offset)
	case ResImmediate:
		return r.Imm.String()
	case ResBinOp:
		return fmt.Sprintf("%s %s %s", r.Cell, r.Op, r.B)
	}
	return fmt.Sprintf("ResOperand(kind=%d)", r.Kind)
}
