package references

import (
	"errors"
	"testing"

	"sierracasm/internal/casm"
	"sierracasm/internal/felt"
	"sierracasm/internal/sierra"
)

func TestFromResOperandRoundTrip(t *testing.T) {
	ops := []casm.ResOperand{
		casm.ResFromDeref(casm.APRef(-1)),
		casm.ResFromDoubleDeref(casm.FPRef(-3), 4),
		casm.ResFromImmediate(felt.FromInt64(42)),
		casm.ResFromBinOp(casm.OpAdd, casm.APRef(2), casm.ImmInt64(3)),
		casm.ResFromBinOp(casm.OpMul, casm.FPRef(0), casm.Deref(casm.APRef(1))),
	}
	for _, op := range ops {
		if got := FromResOperand(op).ToResOperand(); !got.Equal(op) {
			t.Errorf("round trip of %s gave %s", op, got)
		}
	}
}

func TestToDerefAndBuffer(t *testing.T) {
	if _, err := FromImmediate(felt.FromInt64(1)).ToDeref(); !errors.Is(err, &ReferencesError{Kind: ErrInvalidReferenceTypeForArgument}) {
		t.Fatalf("immediate ToDeref: %v", err)
	}
	c, err := FromDeref(casm.FPRef(-3)).ToDeref()
	if err != nil || c != casm.FPRef(-3) {
		t.Fatalf("ToDeref = %v, %v", c, err)
	}

	tests := []struct {
		name string
		expr CellExpression
		ok   bool
	}{
		{"cell", FromDeref(casm.FPRef(-6)), true},
		{"cell plus small", FromResOperand(casm.ResFromBinOp(casm.OpAdd, casm.FPRef(-6), casm.ImmInt64(8))), true},
		{"cell plus large", FromResOperand(casm.ResFromBinOp(casm.OpAdd, casm.FPRef(-6), casm.ImmInt64(9))), false},
		{"mul", FromResOperand(casm.ResFromBinOp(casm.OpMul, casm.FPRef(-6), casm.ImmInt64(1))), false},
		{"immediate", FromImmediate(felt.FromInt64(5)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.expr.ToBuffer(8)
			if (err == nil) != tt.ok {
				t.Fatalf("ToBuffer err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestTryUnpackSingle(t *testing.T) {
	two := ReferenceExpression{Cells: []CellExpression{FromDeref(casm.APRef(0)), FromDeref(casm.APRef(1))}}
	if _, err := two.TryUnpackSingle(); !errors.Is(err, &ReferencesError{Kind: ErrUnexpectedNumberOfCells}) {
		t.Fatalf("two cells: %v", err)
	}
	one := FromCell(FromDeref(casm.APRef(-1)))
	if c, err := one.TryUnpackSingle(); err != nil || !c.Equal(FromDeref(casm.APRef(-1))) {
		t.Fatalf("one cell: %v %v", c, err)
	}
}

func TestApplyApChange(t *testing.T) {
	expr := ReferenceExpression{Cells: []CellExpression{
		FromDeref(casm.APRef(-1)),
		FromDeref(casm.FPRef(-3)),
		FromResOperand(casm.ResFromBinOp(casm.OpAdd, casm.APRef(0), casm.Deref(casm.APRef(-2)))),
		FromImmediate(felt.FromInt64(9)),
	}}
	got, err := expr.ApplyApChange(2)
	if err != nil {
		t.Fatal(err)
	}
	want := ReferenceExpression{Cells: []CellExpression{
		FromDeref(casm.APRef(-3)),
		FromDeref(casm.FPRef(-3)),
		FromResOperand(casm.ResFromBinOp(casm.OpAdd, casm.APRef(-2), casm.Deref(casm.APRef(-4)))),
		FromImmediate(felt.FromInt64(9)),
	}}
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if _, err := FromCell(FromDeref(casm.APRef(-32000))).ApplyApChange(1000); !errors.Is(err, &ReferencesError{Kind: ErrApChangeOutOfRange}) {
		t.Fatalf("overflow: %v", err)
	}
}

type sizes map[sierra.ConcreteTypeID]int16

func (s sizes) TypeSize(id sierra.ConcreteTypeID) (int16, bool) {
	n, ok := s[id]
	return n, ok
}

func TestTryGetView(t *testing.T) {
	const arr sierra.ConcreteTypeID = 7
	sz := sizes{arr: 2}

	view, err := TryGetView(ReferenceExpression{Cells: []CellExpression{
		FromDeref(casm.FPRef(-4)),
		FromResOperand(casm.ResFromBinOp(casm.OpAdd, casm.FPRef(-3), casm.ImmInt64(2))),
	}}, sz, arr)
	if err != nil {
		t.Fatal(err)
	}
	if view.Start != casm.FPRef(-4) || view.End != casm.FPRef(-3) || view.EndOffset != 2 {
		t.Fatalf("view = %+v", view)
	}

	if _, err := TryGetView(FromCell(FromDeref(casm.FPRef(-4))), sz, arr); err == nil {
		t.Fatal("single cell is not an array")
	}
	if _, err := TryGetView(ReferenceExpression{Cells: []CellExpression{
		FromImmediate(felt.FromInt64(0)),
		FromDeref(casm.FPRef(-3)),
	}}, sz, arr); err == nil {
		t.Fatal("immediate start is not an array")
	}
}
