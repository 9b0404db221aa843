package casm_test

import (
	"strings"
	"testing"

	"sierracasm/internal/casm"
	"sierracasm/internal/felt"
)

func mustPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", want)
		}
		msg := ""
		switch v := r.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		}
		if !strings.Contains(msg, want) {
			t.Fatalf("panic %q does not mention %q", msg, want)
		}
	}()
	fn()
}

func TestBuilderSyscallSequence(t *testing.T) {
	b := casm.NewBuilder()
	sys := b.AddVar(casm.ResFromDeref(casm.FPRef(-4)))
	addr := b.AddVar(casm.ResFromDeref(casm.FPRef(-3)))
	result := b.AllocTemp()
	selector := b.AllocTemp()
	b.Assert(selector, b.AddImmediate(felt.FromInt64(77)))
	original := b.Alias(sys)
	b.BufferWrite(sys, selector)
	b.BufferWrite(sys, addr)
	b.SystemCall(original)
	res := b.Build()

	want := []string{
		"[ap + 1] = 77;",
		"[ap + 1] = [[fp + (-4)]];",
		"[fp + (-3)] = [[fp + (-4)] + 1];",
		"ap += 2;",
	}
	if len(res.Instructions) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(res.Instructions), len(want))
	}
	for i, w := range want {
		if got := res.Instructions[i].String(); got != w {
			t.Errorf("instr %d = %q, want %q", i, got, w)
		}
	}
	hints := res.Instructions[3].Hints
	if len(hints) != 1 || hints[0].Kind != casm.HintSystemCall ||
		!hints[0].System.Equal(casm.ResFromDeref(casm.FPRef(-4))) {
		t.Fatalf("unexpected hints on last instruction: %v", hints)
	}
	if !res.HasFallthrough || res.Fallthrough.ApChange != 2 {
		t.Fatalf("fallthrough = %+v, want ap-change 2", res.Fallthrough)
	}
	if got := res.Fallthrough.GetAdjustedAsCellRef(result); got != casm.APRef(-2) {
		t.Fatalf("result cell = %s, want [ap + (-2)]", got)
	}
	wantSys := casm.ResFromBinOp(casm.OpAdd, casm.FPRef(-4), casm.ImmInt64(2))
	if got := res.Fallthrough.GetAdjusted(sys); !got.Equal(wantSys) {
		t.Fatalf("system = %s, want %s", got, wantSys)
	}
	if len(res.AwaitingRelocations) != 0 || len(res.LabelStates) != 0 {
		t.Fatalf("no jumps were emitted, got %v / %v", res.AwaitingRelocations, res.LabelStates)
	}
}

func TestBuilderUnplacedLabelAwaitsRelocation(t *testing.T) {
	b := casm.NewBuilder()
	gas := b.AddVar(casm.ResFromDeref(casm.APRef(-1)))
	flag := b.AllocTemp()
	b.Assert(flag, b.AddImmediate(felt.FromInt64(1)))
	b.JumpNz("Failure", flag)
	res := b.Build()

	if len(res.Instructions) != 3 {
		t.Fatalf("got %d instructions, want 3", len(res.Instructions))
	}
	if res.Instructions[1].Kind != casm.InstrAddAp {
		t.Fatalf("allocation must be flushed before the jump, got %s", res.Instructions[1])
	}
	if len(res.AwaitingRelocations) != 1 || res.AwaitingRelocations[0] != 2 {
		t.Fatalf("awaiting relocations = %v, want [2]", res.AwaitingRelocations)
	}
	failure, ok := res.LabelStates["Failure"]
	if !ok {
		t.Fatalf("missing Failure state")
	}
	if failure.ApChange != 1 || res.Fallthrough.ApChange != 1 {
		t.Fatalf("ap-changes = %d/%d, want 1/1", res.Fallthrough.ApChange, failure.ApChange)
	}
	if got := failure.GetAdjustedAsCellRef(gas); got != casm.APRef(-2) {
		t.Fatalf("gas = %s, want [ap + (-2)]", got)
	}
	if got := res.Instructions[2].Jnz.Condition; got != casm.APRef(-1) {
		t.Fatalf("jnz condition = %s, want [ap + (-1)]", got)
	}
}

func TestBuilderPlacedLabelResolvesLocally(t *testing.T) {
	b := casm.NewBuilder()
	cond := b.AddVar(casm.ResFromDeref(casm.FPRef(-3)))
	out := b.AddVar(casm.ResFromDeref(casm.FPRef(-4)))
	b.JumpNz("Skip", cond)
	b.Assert(out, b.AddImmediate(felt.FromInt64(5)))
	b.Label("Skip")
	res := b.Build()

	if len(res.AwaitingRelocations) != 0 {
		t.Fatalf("local label must not await relocation: %v", res.AwaitingRelocations)
	}
	// jnz (2 words) + assert with immediate (2 words).
	target, ok := res.Instructions[0].Jnz.Target.Imm.Int64()
	if !ok || target != 4 {
		t.Fatalf("jnz target = %s, want 4", res.Instructions[0].Jnz.Target)
	}
	if !res.HasFallthrough {
		t.Fatalf("expected fallthrough after the label")
	}
}

func TestBuilderUnconditionalJump(t *testing.T) {
	b := casm.NewBuilder()
	v := b.AddVar(casm.ResFromDeref(casm.FPRef(-3)))
	b.Jump("Out")
	res := b.Build()
	if res.HasFallthrough {
		t.Fatalf("code after an unconditional jump has no fallthrough")
	}
	if res.Instructions[0].Kind != casm.InstrJump || !res.Instructions[0].Jump.Relative {
		t.Fatalf("unexpected jump instruction %s", res.Instructions[0])
	}
	if got := res.LabelStates["Out"].GetAdjustedAsCellRef(v); got != casm.FPRef(-3) {
		t.Fatalf("fp cells are not adjusted, got %s", got)
	}
}

func TestBuilderTrailingHintGetsCarrier(t *testing.T) {
	b := casm.NewBuilder()
	sys := b.AddVar(casm.ResFromDeref(casm.FPRef(-3)))
	b.SystemCall(sys)
	res := b.Build()
	if len(res.Instructions) != 1 {
		t.Fatalf("got %d instructions, want 1", len(res.Instructions))
	}
	in := res.Instructions[0]
	if in.Kind != casm.InstrAddAp || len(in.Hints) != 1 {
		t.Fatalf("hint carrier = %s with %d hints", in, len(in.Hints))
	}
	if res.Fallthrough.ApChange != 0 {
		t.Fatalf("ap += 0 must not change ap, got %d", res.Fallthrough.ApChange)
	}
}

func TestBufferReadEmitsNothing(t *testing.T) {
	b := casm.NewBuilder()
	buf := b.AddVar(casm.ResFromBinOp(casm.OpAdd, casm.APRef(-2), casm.ImmInt64(3)))
	first := b.BufferRead(buf)
	second := b.BufferRead(buf)
	res := b.Build()
	if len(res.Instructions) != 0 {
		t.Fatalf("buffer reads emitted %d instructions", len(res.Instructions))
	}
	if got := res.Fallthrough.GetAdjusted(first); !got.Equal(casm.ResFromDoubleDeref(casm.APRef(-2), 3)) {
		t.Fatalf("first = %s", got)
	}
	if got := res.Fallthrough.GetAdjusted(second); !got.Equal(casm.ResFromDoubleDeref(casm.APRef(-2), 4)) {
		t.Fatalf("second = %s", got)
	}
}

func TestBuilderMisuse(t *testing.T) {
	tests := []struct {
		name string
		want string
		fn   func()
	}{
		{"assert into immediate", "must be a cell", func() {
			b := casm.NewBuilder()
			imm := b.AddImmediate(felt.FromInt64(1))
			b.Assert(imm, imm)
		}},
		{"buffer over immediate", "buffer must be", func() {
			b := casm.NewBuilder()
			b.BufferRead(b.AddImmediate(felt.FromInt64(1)))
		}},
		{"build twice", "Build called twice", func() {
			b := casm.NewBuilder()
			b.Build()
			b.Build()
		}},
		{"use after build", "after Build", func() {
			b := casm.NewBuilder()
			b.Build()
			b.AllocTemp()
		}},
		{"label never reached", "never reached", func() {
			b := casm.NewBuilder()
			b.Jump("A")
			b.Label("B")
		}},
		{"code after jump", "unreachable", func() {
			b := casm.NewBuilder()
			b.Jump("A")
			b.AllocTemp()
		}},
		{"ap mismatch at label", "reached with ap-change", func() {
			b := casm.NewBuilder()
			c := b.AddVar(casm.ResFromDeref(casm.FPRef(-3)))
			b.JumpNz("L", c)
			tmp := b.AllocTemp()
			b.Assert(tmp, c)
			b.Label("L")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustPanic(t, tt.want, tt.fn)
		})
	}
}

func TestDumpPrintsHintsBeforeInstructions(t *testing.T) {
	instrs := []casm.Instruction{
		{
			Kind:     casm.InstrAssertEq,
			AssertEq: casm.AssertEqInstr{Lhs: casm.APRef(0), Rhs: casm.ResFromDoubleDeref(casm.FPRef(-3), 2)},
			Hints:    []casm.Hint{{Kind: casm.HintSystemCall, System: casm.ResFromDeref(casm.FPRef(-3))}},
		},
		{Kind: casm.InstrRet},
	}
	var sb strings.Builder
	if err := casm.Dump(&sb, instrs); err != nil {
		t.Fatal(err)
	}
	want := "%{ syscall_handler.syscall(syscall_ptr=[fp + (-3)]) %}\n" +
		"[ap + 0] = [[fp + (-3)] + 2];\n" +
		"ret;\n"
	if sb.String() != want {
		t.Fatalf("dump:\n%s\nwant:\n%s", sb.String(), want)
	}
	if got := casm.Offsets(instrs); got[2] != 2 {
		t.Fatalf("offsets = %v", got)
	}
}
