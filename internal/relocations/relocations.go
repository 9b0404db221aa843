// Package relocations patches jump targets once statement addresses are
// known.
package relocations

import (
	"fmt"

	"sierracasm/internal/casm"
	"sierracasm/internal/sierra"
)

// Kind enumerates relocation kinds.
type Kind uint8

const (
	// RelativeStatementID sets a relative jump to the first instruction of
	// a statement.
	RelativeStatementID Kind = iota
)

// Relocation describes the patch to apply.
type Relocation struct {
	Kind      Kind
	Statement sierra.StatementIdx
}

// RelocationEntry is a relocation anchored to an instruction of one compiled
// invocation.
type RelocationEntry struct {
	InstructionIdx int
	Relocation     Relocation
}

// Apply patches in, located at program counter pc. statementOffsets maps
// statement index to its program counter.
func (r Relocation) Apply(pc int, in *casm.Instruction, statementOffsets []int) error {
	switch r.Kind {
	case RelativeStatementID:
		if int(r.Statement) < 0 || int(r.Statement) >= len(statementOffsets) {
			return fmt.Errorf("relocation to unknown statement #%d", r.Statement)
		}
		if !in.IsJump() {
			return fmt.Errorf("relocation target %s is not a relative jump", in)
		}
		in.SetJumpTarget(casm.ImmInt64(int64(statementOffsets[r.Statement] - pc)))
		return nil
	}
	return fmt.Errorf("unknown relocation kind %d", r.Kind)
}

// Relocate applies entries to the instruction range starting at base inside
// program. pcs are the program counters of program's instructions.
func Relocate(entries []RelocationEntry, program []casm.Instruction, base int, pcs, statementOffsets []int) error {
	for _, e := range entries {
		idx := base + e.InstructionIdx
		if idx < 0 || idx >= len(program) {
			return fmt.Errorf("relocation at instruction %d outside program of %d", idx, len(program))
		}
		if err := e.Relocation.Apply(pcs[idx], &program[idx], statementOffsets); err != nil {
			return fmt.Errorf("instruction %d: %w", idx, err)
		}
	}
	return nil
}
