package compiler_test

import (
	"context"
	"strings"
	"testing"

	"sierracasm/internal/casm"
	"sierracasm/internal/compiler"
	"sierracasm/internal/diag"
	"sierracasm/internal/felt"
	"sierracasm/internal/observ"
	"sierracasm/internal/sierra"
	"sierracasm/internal/testkit"
)

type fixture struct {
	reg                            *sierra.Registry
	felt, gas, system, addr, caddr sierra.ConcreteTypeID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := sierra.NewCoreRegistry()
	get := func(id sierra.GenericTypeID) sierra.ConcreteTypeID {
		ty, err := reg.GetConcreteType(id, nil)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		return ty
	}
	return fixture{
		reg:    reg,
		felt:   get(sierra.FeltTypeID),
		gas:    get(sierra.GasBuiltinTypeID),
		system: get(sierra.SystemTypeID),
		addr:   get(sierra.StorageAddressTypeID),
		caddr:  get(sierra.ContractAddressTypeID),
	}
}

func invoke(lib sierra.ConcreteLibfuncID, args []sierra.VarID, branches ...sierra.BranchInfo) sierra.Statement {
	return sierra.Statement{
		Kind:       sierra.StatementInvocation,
		Invocation: sierra.Invocation{Libfunc: lib, Args: args, Branches: branches},
	}
}

func next(results ...sierra.VarID) sierra.BranchInfo {
	return sierra.BranchInfo{Results: results}
}

func jumpTo(idx sierra.StatementIdx, results ...sierra.VarID) sierra.BranchInfo {
	return sierra.BranchInfo{Target: sierra.BranchTarget{Kind: sierra.TargetStatement, Statement: idx}, Results: results}
}

func ret(vars ...sierra.VarID) sierra.Statement {
	return sierra.Statement{Kind: sierra.StatementReturn, Return: vars}
}

func compile(t *testing.T, f fixture, prog *sierra.Program) (*compiler.Program, *diag.Bag) {
	t.Helper()
	out, bag, err := compiler.Compile(context.Background(), f.reg, prog, compiler.Options{File: "test.toml", Jobs: 2})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return out, bag
}

func dump(t *testing.T, p *compiler.Program) []string {
	t.Helper()
	var sb strings.Builder
	if err := p.Dump(&sb); err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
}

func expectLines(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCompileStorageRead(t *testing.T) {
	f := newFixture(t)
	prog := &sierra.Program{
		Libfuncs: []sierra.LibfuncDeclaration{{ID: "read", Generic: sierra.StorageReadLibfuncID}},
		Statements: []sierra.Statement{
			invoke("read", []sierra.VarID{0, 1}, next(2, 3)),
			ret(2, 3),
		},
		Funcs: []sierra.Function{{
			Name:    "read",
			Params:  []sierra.Param{{ID: 0, Type: f.system}, {ID: 1, Type: f.addr}},
			Returns: []sierra.ConcreteTypeID{f.system, f.felt},
		}},
	}
	out, bag := compile(t, f, prog)
	if bag.HasErrors() || out == nil {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	sel := "[ap + 1] = " + felt.ShortString("storage_read").String() + ";"
	expectLines(t, dump(t, out), []string{
		sel,
		"[ap + 1] = [[fp + (-4)]];",
		"[fp + (-3)] = [[fp + (-4)] + 1];",
		"%{ syscall_handler.syscall(syscall_ptr=[fp + (-4)]) %}",
		"ap += 2;",
		"[ap + 0] = [fp + (-4)] + 2, ap++;",
		"[ap + 0] = [ap + (-3)], ap++;",
		"ret;",
	})
	if got, want := out.StatementOffsets, []int{0, 6, 10}; !equalInts(got, want) {
		t.Fatalf("statement offsets = %v, want %v", got, want)
	}
	if out.Size() != 10 {
		t.Fatalf("size = %d", out.Size())
	}
	if d := out.Debug.Statements[0]; d.Libfunc != "read" || d.Instructions != 4 {
		t.Fatalf("debug = %+v", d)
	}
	if err := testkit.CheckProgram(out.Instructions, out.StatementOffsets); err != nil {
		t.Fatal(err)
	}
}

func TestCompileConstThroughStoreTemp(t *testing.T) {
	f := newFixture(t)
	prog := &sierra.Program{
		Libfuncs: []sierra.LibfuncDeclaration{
			{ID: "addr5", Generic: sierra.StorageAddressConstLibfuncID, Args: []sierra.GenericArg{sierra.ValueArg(felt.FromInt64(5))}},
			{ID: "store", Generic: sierra.StoreTempLibfuncID, Args: []sierra.GenericArg{sierra.TypeArg(f.addr)}},
			{ID: "read", Generic: sierra.StorageReadLibfuncID},
		},
		Statements: []sierra.Statement{
			invoke("addr5", nil, next(1)),
			invoke("store", []sierra.VarID{1}, next(2)),
			invoke("read", []sierra.VarID{0, 2}, next(3, 4)),
			ret(3, 4),
		},
		Funcs: []sierra.Function{{
			Name:    "main",
			Params:  []sierra.Param{{ID: 0, Type: f.system}},
			Returns: []sierra.ConcreteTypeID{f.system, f.felt},
		}},
	}
	out, bag := compile(t, f, prog)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	lines := dump(t, out)
	if lines[0] != "[ap + 0] = 5;" || lines[1] != "ap += 1;" {
		t.Fatalf("store_temp lowering:\n%s", strings.Join(lines, "\n"))
	}
	// the stored address moved from [ap + 0] to [ap + (-1)]
	if lines[4] != "[ap + (-1)] = [[fp + (-3)] + 1];" {
		t.Fatalf("address write = %q", lines[4])
	}
	if out.StatementOffsets[0] != 0 || out.StatementOffsets[1] != 0 {
		t.Fatalf("const emits no code, offsets = %v", out.StatementOffsets)
	}
}

func TestCompileStorageWriteRelocatesFailureBranch(t *testing.T) {
	f := newFixture(t)
	prog := &sierra.Program{
		Libfuncs: []sierra.LibfuncDeclaration{{ID: "write", Generic: sierra.StorageWriteLibfuncID}},
		Statements: []sierra.Statement{
			invoke("write", []sierra.VarID{0, 1, 2, 3}, next(4, 5), jumpTo(2, 6, 7, 8)),
			ret(4, 5),
			ret(6, 7),
		},
		Funcs: []sierra.Function{{
			Name: "write",
			Params: []sierra.Param{
				{ID: 0, Type: f.gas}, {ID: 1, Type: f.system},
				{ID: 2, Type: f.addr}, {ID: 3, Type: f.felt},
			},
			Returns: []sierra.ConcreteTypeID{f.gas, f.system},
		}},
	}
	tm := observ.NewTimer()
	out, bag, err := compiler.Compile(context.Background(), f.reg, prog, compiler.Options{File: "w.toml", Timer: tm})
	if err != nil || bag.HasErrors() {
		t.Fatalf("err=%v diagnostics=%v", err, bag.Items())
	}
	if err := testkit.CheckProgram(out.Instructions, out.StatementOffsets); err != nil {
		t.Fatal(err)
	}
	jnz := out.Debug.Statements[0].Instructions - 1
	in := out.Instructions[jnz]
	if in.Kind != casm.InstrJnz {
		t.Fatalf("last instruction of the write is %s", in)
	}
	pcs := casm.Offsets(out.Instructions)
	rel, _ := in.Jnz.Target.Imm.Int64()
	if pcs[jnz]+int(rel) != out.StatementOffsets[2] {
		t.Fatalf("jnz lands at %d, failure statement starts at %d", pcs[jnz]+int(rel), out.StatementOffsets[2])
	}
	if r := tm.Report(); len(r.Phases) != 3 || r.Phases[2].Name != "relocate" {
		t.Fatalf("phases = %+v", r.Phases)
	}
}

func TestCompileDiagnostics(t *testing.T) {
	f := newFixture(t)
	readFn := func(params ...sierra.Param) []sierra.Function {
		return []sierra.Function{{Name: "f", Params: params, Returns: []sierra.ConcreteTypeID{f.system, f.felt}}}
	}
	sysAddr := []sierra.Param{{ID: 0, Type: f.system}, {ID: 1, Type: f.addr}}
	readDecl := []sierra.LibfuncDeclaration{{ID: "read", Generic: sierra.StorageReadLibfuncID}}

	tests := []struct {
		name string
		prog *sierra.Program
		want diag.Code
	}{
		{
			name: "unknown generic libfunc",
			prog: &sierra.Program{
				Libfuncs:   []sierra.LibfuncDeclaration{{ID: "x", Generic: "no_such_libfunc"}},
				Statements: []sierra.Statement{invoke("x", nil, next()), ret()},
			},
			want: diag.SpcUnsupportedID,
		},
		{
			name: "undeclared libfunc",
			prog: &sierra.Program{Statements: []sierra.Statement{invoke("x", nil, next()), ret()}},
			want: diag.PrgInvalid,
		},
		{
			name: "undefined variable",
			prog: &sierra.Program{
				Libfuncs:   readDecl,
				Statements: []sierra.Statement{invoke("read", []sierra.VarID{0, 9}, next(2, 3)), ret(2, 3)},
				Funcs:      readFn(sysAddr...),
			},
			want: diag.RefUnknownVariable,
		},
		{
			name: "argument type",
			prog: &sierra.Program{
				Libfuncs:   readDecl,
				Statements: []sierra.Statement{invoke("read", []sierra.VarID{1, 0}, next(2, 3)), ret(2, 3)},
				Funcs:      readFn(sysAddr...),
			},
			want: diag.PrgArgumentMismatch,
		},
		{
			name: "branch count",
			prog: &sierra.Program{
				Libfuncs: readDecl,
				Statements: []sierra.Statement{
					invoke("read", []sierra.VarID{0, 1}, next(2, 3), jumpTo(1, 2, 3)),
					ret(2, 3),
				},
				Funcs: readFn(sysAddr...),
			},
			want: diag.PrgBranchMismatch,
		},
		{
			name: "jump on a branch that must fall through",
			prog: &sierra.Program{
				Libfuncs: readDecl,
				Statements: []sierra.Statement{
					invoke("read", []sierra.VarID{0, 1}, jumpTo(2, 2, 3)),
					ret(2, 3),
					ret(2, 3),
				},
				Funcs: readFn(sysAddr...),
			},
			want: diag.PrgBranchMismatch,
		},
		{
			name: "explicit target on the write success branch",
			prog: &sierra.Program{
				Libfuncs: []sierra.LibfuncDeclaration{{ID: "write", Generic: sierra.StorageWriteLibfuncID}},
				Statements: []sierra.Statement{
					invoke("write", []sierra.VarID{0, 1, 2, 3}, jumpTo(1, 4, 5), jumpTo(2, 6, 7, 8)),
					ret(4, 5),
					ret(6, 7),
				},
				Funcs: writeFn(f),
			},
			want: diag.PrgBranchMismatch,
		},
		{
			name: "write failure branch falls through",
			prog: &sierra.Program{
				Libfuncs: []sierra.LibfuncDeclaration{{ID: "write", Generic: sierra.StorageWriteLibfuncID}},
				Statements: []sierra.Statement{
					invoke("write", []sierra.VarID{0, 1, 2, 3}, next(4, 5), next(6, 7, 8)),
					ret(4, 5),
				},
				Funcs: writeFn(f),
			},
			want: diag.PrgBranchMismatch,
		},
		{
			name: "return arity",
			prog: &sierra.Program{
				Libfuncs:   readDecl,
				Statements: []sierra.Statement{invoke("read", []sierra.VarID{0, 1}, next(2, 3)), ret(2)},
				Funcs:      readFn(sysAddr...),
			},
			want: diag.RefReturnMismatch,
		},
		{
			name: "redefined variable",
			prog: &sierra.Program{
				Libfuncs:   readDecl,
				Statements: []sierra.Statement{invoke("read", []sierra.VarID{0, 1}, next(2, 5)), ret(2, 5)},
				Funcs:      readFn(sysAddr[0], sysAddr[1], sierra.Param{ID: 5, Type: f.felt}),
			},
			want: diag.RefVariableRedefined,
		},
		{
			name: "address not in a cell",
			prog: &sierra.Program{
				Libfuncs: []sierra.LibfuncDeclaration{
					{ID: "addr5", Generic: sierra.StorageAddressConstLibfuncID, Args: []sierra.GenericArg{sierra.ValueArg(felt.FromInt64(5))}},
					{ID: "read", Generic: sierra.StorageReadLibfuncID},
				},
				Statements: []sierra.Statement{
					invoke("addr5", nil, next(1)),
					invoke("read", []sierra.VarID{0, 1}, next(2, 3)),
					ret(2, 3),
				},
				Funcs: readFn(sysAddr[0]),
			},
			want: diag.InvInvalidReference,
		},
		{
			name: "states disagree",
			prog: &sierra.Program{
				Libfuncs: []sierra.LibfuncDeclaration{{ID: "write", Generic: sierra.StorageWriteLibfuncID}},
				Statements: []sierra.Statement{
					invoke("write", []sierra.VarID{0, 1, 2, 3}, next(4, 5), jumpTo(1, 6, 7, 8)),
					ret(4, 5),
				},
				Funcs: []sierra.Function{{
					Name: "w",
					Params: []sierra.Param{
						{ID: 0, Type: f.gas}, {ID: 1, Type: f.system},
						{ID: 2, Type: f.addr}, {ID: 3, Type: f.felt},
					},
					Returns: []sierra.ConcreteTypeID{f.gas, f.system},
				}},
			},
			want: diag.RefStateMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, bag := compile(t, f, tt.prog)
			if out != nil {
				t.Fatalf("expected no program")
			}
			if !hasCode(bag, tt.want) {
				t.Fatalf("want %s, got %v", tt.want, bag.Items())
			}
		})
	}
}

func TestCompileWarnsOnUnreachableStatement(t *testing.T) {
	f := newFixture(t)
	prog := &sierra.Program{
		Statements: []sierra.Statement{ret(0), ret(0)},
		Funcs: []sierra.Function{{
			Name:    "id",
			Params:  []sierra.Param{{ID: 0, Type: f.felt}},
			Returns: []sierra.ConcreteTypeID{f.felt},
		}},
	}
	out, bag := compile(t, f, prog)
	if out == nil || bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if !hasCode(bag, diag.PrgUnreachable) {
		t.Fatalf("missing unreachable warning: %v", bag.Items())
	}
	expectLines(t, dump(t, out), []string{"[ap + 0] = [fp + (-3)], ap++;", "ret;"})
}

func TestCompileCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prog := &sierra.Program{
		Libfuncs:   []sierra.LibfuncDeclaration{{ID: "read", Generic: sierra.StorageReadLibfuncID}},
		Statements: []sierra.Statement{ret()},
		Funcs:      []sierra.Function{{Name: "f"}},
	}
	if _, _, err := compiler.Compile(ctx, f.reg, prog, compiler.Options{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func writeFn(f fixture) []sierra.Function {
	return []sierra.Function{{
		Name: "w",
		Params: []sierra.Param{
			{ID: 0, Type: f.gas}, {ID: 1, Type: f.system},
			{ID: 2, Type: f.addr}, {ID: 3, Type: f.felt},
		},
		Returns: []sierra.ConcreteTypeID{f.gas, f.system},
	}}
}
