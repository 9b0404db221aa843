package casm

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrAssertEq asserts lhs = rhs.
	InstrAssertEq InstrKind = iota
	// InstrJnz jumps when the condition cell is non-zero.
	InstrJnz
	// InstrJump jumps unconditionally.
	InstrJump
	// InstrAddAp advances ap.
	InstrAddAp
	// InstrRet returns from the current function.
	InstrRet
)

// Instruction is one assembly instruction with its hints.
type Instruction struct {
	Kind InstrKind

	AssertEq AssertEqInstr
	Jnz      JnzInstr
	Jump     JumpInstr
	AddAp    AddApInstr

	// IncAp appends "ap++" to the instruction.
	IncAp bool
	// Hints run before the instruction executes.
	Hints []Hint
}

// AssertEqInstr asserts that a cell equals an operand.
type AssertEqInstr struct {
	Lhs CellRef
	Rhs ResOperand
}

// JnzInstr is a relative conditional jump.
type JnzInstr struct {
	Target    DerefOrImmediate
	Condition CellRef
}

// JumpInstr is an unconditional jump.
type JumpInstr struct {
	Target   DerefOrImmediate
	Relative bool
}

// AddApInstr is "ap += operand".
type AddApInstr struct {
	Operand ResOperand
}

// HintKind enumerates hints.
type HintKind uint8

const (
	// HintSystemCall hands the request at System to the host.
	HintSystemCall HintKind = iota
)

// Hint is a side-effecting marker executed by the runner, not the VM.
type Hint struct {
	Kind   HintKind
	System ResOperand
}

// Size returns the encoded size in words: one, plus one for an immediate.
func (in Instruction) Size() int {
	switch in.Kind {
	case InstrAssertEq:
		if in.AssertEq.Rhs.HasImmediate() {
			return 2
		}
	case InstrJnz:
		if in.Jnz.Target.IsImmediate {
			return 2
		}
	case InstrJump:
		if in.Jump.Target.IsImmediate {
			return 2
		}
	case InstrAddAp:
		if in.AddAp.Operand.HasImmediate() {
			return 2
		}
	}
	return 1
}

// IsJump reports whether the instruction transfers control to a target.
func (in Instruction) IsJump() bool {
	return in.Kind == InstrJnz || (in.Kind == InstrJump && in.Jump.Relative)
}

// SetJumpTarget patches the immediate target of a jump. It panics on
// non-jump instructions.
func (in *Instruction) SetJumpTarget(target DerefOrImmediate) {
	switch in.Kind {
	case InstrJnz:
		in.Jnz.Target = target
	case InstrJump:
		in.Jump.Target = target
	default:
		panic("casm: SetJumpTarget on a non-jump instruction")
	}
}

// Offsets returns the program counter of every instruction relative to
// the first one, plus the total size as the last element.
func Offsets(instrs []Instruction) []int {
	out := make([]int, len(instrs)+1)
	for i, in := range instrs {
		out[i+1] = out[i] + in.Size()
	}
	return out
}
