package compiler

import (
	"context"
	"fmt"

	"sierracasm/internal/casm"
	"sierracasm/internal/diag"
	"sierracasm/internal/invocations"
	"sierracasm/internal/observ"
	"sierracasm/internal/relocations"
	"sierracasm/internal/sierra"
	"sierracasm/internal/trace"
)

// Options configures a compilation.
type Options struct {
	// File names the program in diagnostics.
	File string
	// Jobs bounds parallel specialization; 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the diagnostics kept; 0 means no limit.
	MaxDiagnostics int
	// Timer, when set, records the duration of each pass.
	Timer *observ.Timer
}

// compiled is the output of one statement before relocation.
type compiled struct {
	instrs  []casm.Instruction
	relocs  []relocations.RelocationEntry
	libfunc string
}

type session struct {
	reg      *sierra.Registry
	prog     *sierra.Program
	info     invocations.ProgramInfo
	libfuncs map[sierra.ConcreteLibfuncID]*sierra.ConcreteLibfunc
	opts     Options
	bag      *diag.Bag

	states []*state
	out    []compiled
	queue  []sierra.StatementIdx
}

// Compile lowers prog, whose types were resolved against reg. The
// returned program is nil when the bag holds errors. The error result is
// reserved for cancellation.
func Compile(ctx context.Context, reg *sierra.Registry, prog *sierra.Program, opts Options) (*Program, *diag.Bag, error) {
	tracer := trace.FromContext(ctx)
	parent := trace.ParentID(ctx)
	bag := diag.NewBag(opts.MaxDiagnostics)
	rep := &diag.BagReporter{Bag: bag}

	if err := prog.Validate(); err != nil {
		rep.Report(diag.NewError(diag.PrgInvalid, diag.InFile(opts.File), err.Error()))
		return nil, bag, nil
	}

	phase := opts.Timer.Begin("specialize")
	span := trace.Begin(tracer, trace.ScopePass, "specialize", parent)
	libfuncs, err := specializeLibfuncs(ctx, reg, prog, opts.Jobs, opts.File, rep)
	span.End(fmt.Sprintf("libfuncs=%d", len(libfuncs)))
	opts.Timer.End(phase, "")
	if err != nil {
		return nil, bag, err
	}
	if bag.HasErrors() {
		bag.Sort()
		return nil, bag, nil
	}

	s := &session{
		reg:      reg,
		prog:     prog,
		info:     invocations.ProgramInfo{Types: reg},
		libfuncs: libfuncs,
		opts:     opts,
		bag:      bag,
		states:   make([]*state, len(prog.Statements)),
		out:      make([]compiled, len(prog.Statements)),
	}

	phase = opts.Timer.Begin("compile")
	span = trace.Begin(tracer, trace.ScopePass, "compile", parent)
	err = s.walk(ctx, tracer, span.ID())
	span.End(fmt.Sprintf("statements=%d", len(prog.Statements)))
	opts.Timer.End(phase, fmt.Sprintf("%d statements", len(prog.Statements)))
	if err != nil {
		return nil, bag, err
	}
	if bag.HasErrors() {
		bag.Sort()
		return nil, bag, nil
	}

	phase = opts.Timer.Begin("relocate")
	span = trace.Begin(tracer, trace.ScopePass, "relocate", parent)
	out := s.link()
	span.End("")
	opts.Timer.End(phase, "")
	bag.Sort()
	if bag.HasErrors() {
		return nil, bag, nil
	}
	return out, bag, nil
}

func (s *session) errorAt(idx sierra.StatementIdx, code diag.Code, format string, args ...any) {
	s.bag.Add(diag.NewError(code, diag.At(s.opts.File, int(idx)), fmt.Sprintf(format, args...)))
}

// walk visits every statement reachable from a function entry.
func (s *session) walk(ctx context.Context, tracer trace.Tracer, parent uint64) error {
	for fi, f := range s.prog.Funcs {
		st, err := entryState(fi, f, s.info)
		if err != nil {
			s.errorAt(f.Entry, diag.PrgUnknownFunction, "function %s: %v", f.Name, err)
			continue
		}
		s.arrive(f.Entry, f.Entry, st)
	}

	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx := s.queue[0]
		s.queue = s.queue[1:]
		stmt := &s.prog.Statements[idx]
		switch stmt.Kind {
		case sierra.StatementReturn:
			s.compileReturn(idx, stmt.Return)
		case sierra.StatementInvocation:
			span := trace.Begin(tracer, trace.ScopeStatement, string(stmt.Invocation.Libfunc), parent)
			s.compileInvocation(idx, &stmt.Invocation)
			span.End(fmt.Sprintf("#%d instrs=%d", idx, len(s.out[idx].instrs)))
		}
	}

	for i, st := range s.states {
		if st == nil {
			s.bag.Add(diag.New(diag.SevWarning, diag.PrgUnreachable, diag.At(s.opts.File, i), "statement is never reached"))
		}
	}
	return nil
}

// arrive merges st into the state of statement to, reached from from.
func (s *session) arrive(from, to sierra.StatementIdx, st *state) {
	prev := s.states[to]
	if prev == nil {
		s.states[to] = st
		s.queue = append(s.queue, to)
		return
	}
	if !prev.equal(st) {
		d := diag.NewError(diag.RefStateMismatch, diag.At(s.opts.File, int(to)), prev.diff(st)).
			WithNote(diag.At(s.opts.File, int(from)), "conflicting state comes from here")
		s.bag.Add(d)
	}
}

func (s *session) compileInvocation(idx sierra.StatementIdx, inv *sierra.Invocation) {
	lf, ok := s.libfuncs[inv.Libfunc]
	if !ok {
		s.errorAt(idx, diag.PrgUnknownLibfunc, "libfunc %s was not specialized", inv.Libfunc)
		return
	}
	sig := lf.Signature
	if len(inv.Args) != len(sig.Params) {
		s.errorAt(idx, diag.PrgArgumentMismatch, "%s takes %d arguments, got %d", inv.Libfunc, len(sig.Params), len(inv.Args))
		return
	}
	if len(inv.Branches) != len(sig.Branches) {
		s.errorAt(idx, diag.PrgBranchMismatch, "%s has %d branches, got %d", inv.Libfunc, len(sig.Branches), len(inv.Branches))
		return
	}
	for i, br := range inv.Branches {
		if len(br.Results) != len(sig.Branches[i].Vars) {
			s.errorAt(idx, diag.PrgBranchMismatch, "branch %d of %s binds %d results, got %d",
				i, inv.Libfunc, len(sig.Branches[i].Vars), len(br.Results))
			return
		}
		// Only the signature's fallthrough branch continues without a jump.
		wantFallthrough := sig.HasFallthrough && i == sig.Fallthrough
		if isFallthrough := br.Target.Kind == sierra.TargetFallthrough; isFallthrough != wantFallthrough {
			want := "an explicit target"
			if wantFallthrough {
				want = "to fall through"
			}
			s.errorAt(idx, diag.PrgBranchMismatch, "branch %d of %s must be %s, got %s",
				i, inv.Libfunc, want, br.Target.String())
			return
		}
	}

	st := s.states[idx].clone()
	refs, err := st.take(inv.Args)
	if err != nil {
		s.errorAt(idx, diag.RefUnknownVariable, "%v", err)
		return
	}
	for i, ref := range refs {
		if want := sig.Params[i].Type; ref.Type != want {
			s.errorAt(idx, diag.PrgArgumentMismatch, "argument %d of %s: expected %s, got %s",
				i, inv.Libfunc, s.reg.TypeName(want), s.reg.TypeName(ref.Type))
			return
		}
	}

	ci, err := invocations.CompileInvocation(invocations.CompiledInvocationBuilder{
		Program:    s.info,
		Invocation: inv,
		Libfunc:    lf,
		Idx:        idx,
		Refs:       refs,
	})
	if err != nil {
		s.errorAt(idx, invocationCode(err), "%s: %v", inv.Libfunc, err)
		return
	}
	s.out[idx] = compiled{instrs: ci.Instructions, relocs: ci.Relocations, libfunc: string(inv.Libfunc)}

	for i, br := range inv.Branches {
		next := st.clone()
		if err := next.advance(ci.Results[i].ApChange); err != nil {
			s.errorAt(idx, diag.RefApChangeUnknown, "branch %d: %v", i, err)
			continue
		}
		redefined := false
		for j, v := range br.Results {
			if _, dup := next.refs[v]; dup {
				s.errorAt(idx, diag.RefVariableRedefined, "branch %d redefines variable %d", i, v)
				redefined = true
				break
			}
			next.refs[v] = ci.Results[i].Refs[j]
		}
		if !redefined {
			s.arrive(idx, br.Target.NextStatement(idx), next)
		}
	}
}

// compileReturn pushes every returned cell with "[ap + 0] = cell, ap++"
// and returns.
func (s *session) compileReturn(idx sierra.StatementIdx, vars []sierra.VarID) {
	st := s.states[idx].clone()
	refs, err := st.take(vars)
	if err != nil {
		s.errorAt(idx, diag.RefUnknownVariable, "%v", err)
		return
	}
	f := s.prog.Funcs[st.fn]
	if len(refs) != len(f.Returns) {
		s.errorAt(idx, diag.RefReturnMismatch, "function %s returns %d values, got %d", f.Name, len(f.Returns), len(refs))
		return
	}
	var instrs []casm.Instruction
	pushed := 0
	for i, ref := range refs {
		if ref.Type != f.Returns[i] {
			s.errorAt(idx, diag.RefReturnMismatch, "return value %d of %s: expected %s, got %s",
				i, f.Name, s.reg.TypeName(f.Returns[i]), s.reg.TypeName(ref.Type))
			return
		}
		for _, c := range ref.Expression.Cells {
			moved, err := c.ApplyApChange(pushed)
			if err != nil {
				s.errorAt(idx, diag.RefApChangeUnknown, "return value %d: %v", i, err)
				return
			}
			instrs = append(instrs, casm.Instruction{
				Kind:     casm.InstrAssertEq,
				AssertEq: casm.AssertEqInstr{Lhs: casm.APRef(0), Rhs: moved.ToResOperand()},
				IncAp:    true,
			})
			pushed++
		}
	}
	instrs = append(instrs, casm.Instruction{Kind: casm.InstrRet})
	s.out[idx] = compiled{instrs: instrs}
}

// link concatenates the statements and resolves their relocations.
func (s *session) link() *Program {
	n := len(s.out)
	bases := make([]int, n)
	var all []casm.Instruction
	for i, c := range s.out {
		bases[i] = len(all)
		all = append(all, c.instrs...)
	}
	pcs := casm.Offsets(all)

	offsets := make([]int, n+1)
	for i := range s.out {
		offsets[i] = pcs[bases[i]]
	}
	offsets[n] = pcs[len(all)]

	dbg := Debug{Statements: make([]StatementDebug, n)}
	for i, c := range s.out {
		if err := relocations.Relocate(c.relocs, all, bases[i], pcs, offsets); err != nil {
			s.errorAt(sierra.StatementIdx(i), diag.PrgInvalid, "%v", err)
		}
		dbg.Statements[i] = StatementDebug{
			Statement:    i,
			Libfunc:      c.libfunc,
			Offset:       offsets[i],
			Instructions: len(c.instrs),
		}
	}
	return &Program{Instructions: all, StatementOffsets: offsets, Debug: dbg}
}
