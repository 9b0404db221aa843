package casm

import (
	"fmt"
	"maps"
	"slices"

	"fortio.org/safecast"

	"sierracasm/internal/felt"
)

// Var is a handle to a symbolic variable of a Builder.
type Var int

// Builder assembles a straight-line instruction sequence with labelled
// exits. Variables are symbolic: each handle points into an append-only
// arena of operands expressed relative to the ap value at the start of the
// session, so a captured State needs only the handle bindings and the
// ap-change at capture time.
//
// A Builder is single-use; Build freezes it.
type Builder struct {
	arena    []ResOperand
	bindings []int

	apChange  int
	allocated int

	instrs []Instruction
	hints  []Hint

	jumps  []pendingJump
	states map[string]State
	placed map[string]int

	unreachable bool
	built       bool
}

type pendingJump struct {
	instr int
	label string
}

// State is the builder state captured at an exit point.
type State struct {
	// ApChange is the number of cells ap advanced since the session start.
	ApChange int

	arena    []ResOperand
	bindings []int
}

// BuildResult is the frozen output of a builder session.
type BuildResult struct {
	Instructions []Instruction
	// AwaitingRelocations holds the indices of jumps whose labels were never
	// placed in this session.
	AwaitingRelocations []int
	LabelStates         map[string]State
	Fallthrough         State
	HasFallthrough      bool
}

// NewBuilder returns an empty builder session.
func NewBuilder() *Builder {
	return &Builder{
		states: make(map[string]State),
		placed: make(map[string]int),
	}
}

func (b *Builder) live() {
	if b.built {
		panic("casm: builder used after Build")
	}
	if b.unreachable {
		panic("casm: instruction emitted in unreachable code; place a label first")
	}
}

func (b *Builder) bind(op ResOperand) Var {
	b.arena = append(b.arena, op)
	b.bindings = append(b.bindings, len(b.arena)-1)
	return Var(len(b.bindings) - 1)
}

func (b *Builder) rebind(v Var, op ResOperand) {
	b.arena = append(b.arena, op)
	b.bindings[v] = len(b.arena) - 1
}

func (b *Builder) value(v Var) ResOperand {
	if int(v) < 0 || int(v) >= len(b.bindings) {
		panic(fmt.Sprintf("casm: unknown variable %d", v))
	}
	return b.arena[b.bindings[v]]
}

// AddVar introduces a variable bound to op, an operand valid at the current
// position.
func (b *Builder) AddVar(op ResOperand) Var {
	b.live()
	return b.bind(shiftRes(op, b.apChange))
}

// AddImmediate introduces a variable bound to an immediate.
func (b *Builder) AddImmediate(v felt.Int) Var {
	return b.AddVar(ResFromImmediate(v))
}

// AllocTemp reserves the next free cell above ap and binds a variable to it.
// The reservation becomes an ap advance before the next jump or at Build.
func (b *Builder) AllocTemp() Var {
	b.live()
	v := b.bind(ResFromDeref(APRef(offset16(b.allocated))))
	b.allocated++
	return v
}

// Alias introduces a new handle for the current value of v.
func (b *Builder) Alias(v Var) Var {
	b.live()
	return b.bind(b.value(v))
}

// Assert emits "dst = value". dst must be bound to a cell.
func (b *Builder) Assert(dst, value Var) {
	b.live()
	lhs := b.cellOf(dst, "assert destination")
	b.emit(Instruction{
		Kind:     InstrAssertEq,
		AssertEq: AssertEqInstr{Lhs: b.current(lhs), Rhs: shiftRes(b.value(value), -b.apChange)},
	})
}

// BufferWrite emits "*(buf++) = value". buf must be a cell, optionally plus
// an immediate, and value must be bound to a cell.
func (b *Builder) BufferWrite(buf, value Var) {
	b.live()
	base, off := b.cursor(buf)
	lhs := b.cellOf(value, "buffer write value")
	b.emit(Instruction{
		Kind: InstrAssertEq,
		AssertEq: AssertEqInstr{
			Lhs: b.current(lhs),
			Rhs: ResFromDoubleDeref(b.current(base), off),
		},
	})
	b.advance(buf, base, off)
}

// BufferRead binds a new variable to "*(buf++)" without emitting code.
func (b *Builder) BufferRead(buf Var) Var {
	b.live()
	base, off := b.cursor(buf)
	v := b.bind(ResFromDoubleDeref(base, off))
	b.advance(buf, base, off)
	return v
}

// SystemCall attaches a system call hint on the request at sys to the next
// emitted instruction.
func (b *Builder) SystemCall(sys Var) {
	b.live()
	b.hints = append(b.hints, Hint{Kind: HintSystemCall, System: shiftRes(b.value(sys), -b.apChange)})
}

// JumpNz emits a relative jump to label taken when cond is non-zero.
func (b *Builder) JumpNz(label string, cond Var) {
	b.live()
	c := b.cellOf(cond, "jump condition")
	b.flushAllocations()
	b.jumps = append(b.jumps, pendingJump{instr: len(b.instrs), label: label})
	b.emit(Instruction{
		Kind: InstrJnz,
		Jnz:  JnzInstr{Target: ImmInt64(0), Condition: b.current(c)},
	})
	b.capture(label)
}

// Jump emits an unconditional relative jump to label. Code following it is
// unreachable until a label is placed.
func (b *Builder) Jump(label string) {
	b.live()
	b.flushAllocations()
	b.jumps = append(b.jumps, pendingJump{instr: len(b.instrs), label: label})
	b.emit(Instruction{
		Kind: InstrJump,
		Jump: JumpInstr{Target: ImmInt64(0), Relative: true},
	})
	b.capture(label)
	b.unreachable = true
}

// Label places label at the current position. Execution reaching it by
// falling through must agree on ap-change with every jump already targeting
// it; bindings continue from the first state that reached it.
func (b *Builder) Label(label string) {
	if b.built {
		panic("casm: builder used after Build")
	}
	if _, dup := b.placed[label]; dup {
		panic(fmt.Sprintf("casm: label %q placed twice", label))
	}
	if !b.unreachable {
		b.flushAllocations()
		b.capture(label)
	}
	st, ok := b.states[label]
	if !ok {
		panic(fmt.Sprintf("casm: label %q is never reached", label))
	}
	b.placed[label] = len(b.instrs)
	b.arena = st.arena
	b.bindings = slices.Clone(st.bindings)
	b.apChange = st.ApChange
	b.allocated = st.ApChange
	b.unreachable = false
}

// Build freezes the session. Jumps to labels placed in this session are
// resolved to relative offsets; the rest are returned as awaiting
// relocations.
func (b *Builder) Build() BuildResult {
	if b.built {
		panic("casm: Build called twice")
	}
	res := BuildResult{}
	if !b.unreachable {
		b.flushAllocations()
		if len(b.hints) > 0 {
			// Hints attach to the next instruction; ap += 0 carries trailing ones.
			b.emit(Instruction{Kind: InstrAddAp, AddAp: AddApInstr{Operand: ResFromImmediate(felt.FromInt64(0))}})
		}
		res.Fallthrough = b.snapshot()
		res.HasFallthrough = true
	}
	b.built = true

	pcs := Offsets(b.instrs)
	for _, j := range b.jumps {
		at, ok := b.placed[j.label]
		if !ok {
			res.AwaitingRelocations = append(res.AwaitingRelocations, j.instr)
			continue
		}
		b.instrs[j.instr].SetJumpTarget(ImmInt64(int64(pcs[at] - pcs[j.instr])))
	}
	res.Instructions = b.instrs
	res.LabelStates = maps.Clone(b.states)
	return res
}

// ApChange reports how far ap has advanced so far, not counting pending
// reservations.
func (b *Builder) ApChange() int { return b.apChange }

func (b *Builder) emit(in Instruction) {
	if len(b.hints) > 0 {
		in.Hints = append(in.Hints, b.hints...)
		b.hints = nil
	}
	b.instrs = append(b.instrs, in)
}

func (b *Builder) flushAllocations() {
	n := b.allocated - b.apChange
	if n == 0 {
		return
	}
	b.emit(Instruction{Kind: InstrAddAp, AddAp: AddApInstr{Operand: ResFromImmediate(felt.FromInt64(int64(n)))}})
	b.apChange = b.allocated
}

func (b *Builder) snapshot() State {
	return State{
		ApChange: b.apChange,
		arena:    b.arena[:len(b.arena):len(b.arena)],
		bindings: slices.Clone(b.bindings),
	}
}

func (b *Builder) capture(label string) {
	st := b.snapshot()
	if prev, ok := b.states[label]; ok {
		if prev.ApChange != st.ApChange {
			panic(fmt.Sprintf("casm: label %q reached with ap-change %d and %d", label, prev.ApChange, st.ApChange))
		}
		return
	}
	b.states[label] = st
}

func (b *Builder) cellOf(v Var, what string) CellRef {
	op := b.value(v)
	if op.Kind != ResDeref {
		panic(fmt.Sprintf("casm: %s must be a cell, got %s", what, op))
	}
	return op.Cell
}

func (b *Builder) cursor(buf Var) (CellRef, int16) {
	op := b.value(buf)
	switch {
	case op.Kind == ResDeref:
		return op.Cell, 0
	case op.Kind == ResBinOp && op.Op == OpAdd && op.B.IsImmediate:
		off, ok := op.B.Imm.Int64()
		if !ok {
			break
		}
		return op.Cell, offset16(int(off))
	}
	panic(fmt.Sprintf("casm: buffer must be a cell plus an immediate, got %s", op))
}

func (b *Builder) advance(buf Var, base CellRef, off int16) {
	next := int(off) + 1
	b.rebind(buf, ResFromBinOp(OpAdd, base, ImmInt64(int64(next))))
}

// current converts a session-relative cell to one valid at the current ap.
func (b *Builder) current(c CellRef) CellRef {
	return shiftCell(c, -b.apChange)
}

// GetAdjusted returns v as an operand valid at this state's ap.
func (s State) GetAdjusted(v Var) ResOperand {
	if int(v) < 0 || int(v) >= len(s.bindings) {
		panic(fmt.Sprintf("casm: variable %d is not bound in this state", v))
	}
	return shiftRes(s.arena[s.bindings[v]], -s.ApChange)
}

// GetAdjustedAsCellRef is GetAdjusted for variables bound to a cell.
func (s State) GetAdjustedAsCellRef(v Var) CellRef {
	op := s.GetAdjusted(v)
	if op.Kind != ResDeref {
		panic(fmt.Sprintf("casm: variable %d is %s, not a cell", v, op))
	}
	return op.Cell
}

func shiftCell(c CellRef, delta int) CellRef {
	if c.Register != AP || delta == 0 {
		return c
	}
	return CellRef{Register: AP, Offset: offset16(int(c.Offset) + delta)}
}

func shiftRes(op ResOperand, delta int) ResOperand {
	switch op.Kind {
	case ResDeref, ResDoubleDeref:
		op.Cell = shiftCell(op.Cell, delta)
	case ResBinOp:
		op.Cell = shiftCell(op.Cell, delta)
		if !op.B.IsImmediate {
			op.B.Cell = shiftCell(op.B.Cell, delta)
		}
	}
	return op
}

func offset16(n int) int16 {
	v, err := safecast.Conv[int16](n)
	if err != nil {
		panic(fmt.Errorf("casm: cell offset %d out of range: %w", n, err))
	}
	return v
}
