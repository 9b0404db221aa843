package testkit

import (
	"fmt"

	"sierracasm/internal/casm"
	"sierracasm/internal/invocations"
	"sierracasm/internal/references"
)

// CheckCompiledInvocation runs structural invariants on a compiled
// invocation:
// 1) every relocation points at a relative jump inside the instruction list
// 2) no two relocations patch the same instruction
// 3) every ap-based output cell lies below the branch's final ap
func CheckCompiledInvocation(ci invocations.CompiledInvocation) error {
	seen := make(map[int]bool, len(ci.Relocations))
	for _, r := range ci.Relocations {
		if r.InstructionIdx < 0 || r.InstructionIdx >= len(ci.Instructions) {
			return fmt.Errorf("relocation at %d outside %d instructions", r.InstructionIdx, len(ci.Instructions))
		}
		if seen[r.InstructionIdx] {
			return fmt.Errorf("instruction %d relocated twice", r.InstructionIdx)
		}
		seen[r.InstructionIdx] = true
		if in := ci.Instructions[r.InstructionIdx]; !in.IsJump() {
			return fmt.Errorf("relocation at %d targets %s", r.InstructionIdx, in)
		}
	}

	for bi, br := range ci.Results {
		for vi, ref := range br.Refs {
			for k, cell := range ref.Expression.Cells {
				if err := checkBelowAp(cell); err != nil {
					return fmt.Errorf("branch %d output %d cell %d: %w", bi, vi, k, err)
				}
			}
		}
	}
	return nil
}

func checkBelowAp(c references.CellExpression) error {
	cells := []casm.CellRef{}
	switch c.Kind {
	case references.CellDeref, references.CellDoubleDeref:
		cells = append(cells, c.Cell)
	case references.CellBinOp:
		cells = append(cells, c.Cell)
		if !c.B.IsImmediate {
			cells = append(cells, c.B.Cell)
		}
	}
	for _, cell := range cells {
		if cell.Register == casm.AP && cell.Offset >= 0 {
			return fmt.Errorf("%s is not allocated", cell)
		}
	}
	return nil
}

// CheckProgram verifies a linked program: statement offsets are
// non-decreasing and end at the program size, and every relative jump
// lands on an instruction boundary.
func CheckProgram(instrs []casm.Instruction, statementOffsets []int) error {
	pcs := casm.Offsets(instrs)
	if len(statementOffsets) == 0 || statementOffsets[len(statementOffsets)-1] != pcs[len(instrs)] {
		return fmt.Errorf("statement offsets %v do not end at size %d", statementOffsets, pcs[len(instrs)])
	}
	for i := 1; i < len(statementOffsets); i++ {
		if statementOffsets[i] < statementOffsets[i-1] {
			return fmt.Errorf("statement %d starts before statement %d", i, i-1)
		}
	}
	boundary := make(map[int]bool, len(pcs))
	for _, pc := range pcs {
		boundary[pc] = true
	}
	for i, in := range instrs {
		var target casm.DerefOrImmediate
		switch {
		case in.Kind == casm.InstrJnz:
			target = in.Jnz.Target
		case in.Kind == casm.InstrJump && in.Jump.Relative:
			target = in.Jump.Target
		default:
			continue
		}
		rel, ok := target.Imm.Int64()
		if !target.IsImmediate || !ok {
			return fmt.Errorf("instruction %d: unresolved target %s", i, target)
		}
		if dst := pcs[i] + int(rel); !boundary[dst] {
			return fmt.Errorf("instruction %d jumps into the middle of an instruction at %d", i, dst)
		}
	}
	return nil
}
