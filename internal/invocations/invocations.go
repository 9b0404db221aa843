// Package invocations compiles a single libfunc invocation into assembly.
//
// Each compiler validates the shapes of its argument references, drives a
// casm.Builder, and returns the emitted instructions together with the
// relocations of jumps leaving the invocation and the reference
// expressions of every branch's outputs. Disagreement between a compiler
// and the ap-change oracle is a compiler defect and panics.
package invocations

import (
	"fmt"

	"sierracasm/internal/apchange"
	"sierracasm/internal/casm"
	"sierracasm/internal/references"
	"sierracasm/internal/relocations"
	"sierracasm/internal/sierra"
)

// TypeInfoSource is the read-only view of the type registry used while
// compiling.
type TypeInfoSource interface {
	TypeInfo(id sierra.ConcreteTypeID) (sierra.TypeInfo, bool)
}

// ProgramInfo is the program-wide information available to compilers.
type ProgramInfo struct {
	Types TypeInfoSource
}

// TypeSize reports the cell size of id.
func (p ProgramInfo) TypeSize(id sierra.ConcreteTypeID) (int16, bool) {
	if p.Types == nil {
		return 0, false
	}
	info, ok := p.Types.TypeInfo(id)
	return info.Size, ok
}

// CompiledInvocationBuilder carries the context of one invocation.
type CompiledInvocationBuilder struct {
	Program    ProgramInfo
	Invocation *sierra.Invocation
	Libfunc    *sierra.ConcreteLibfunc
	Idx        sierra.StatementIdx
	Refs       []references.ReferenceValue
}

// BranchChanges describes the state after taking one branch.
type BranchChanges struct {
	Refs     []references.ReferenceValue
	ApChange apchange.ApChange
}

// CompiledInvocation is the output of compiling one invocation.
type CompiledInvocation struct {
	Instructions []casm.Instruction
	Relocations  []relocations.RelocationEntry
	Results      []BranchChanges
}

// Build assembles the compiled invocation. outputs holds one list of
// reference expressions per branch, in signature order.
func (b CompiledInvocationBuilder) Build(
	instrs []casm.Instruction,
	relocs []relocations.RelocationEntry,
	outputs [][]references.ReferenceExpression,
) CompiledInvocation {
	sig := b.Libfunc.Signature
	if len(outputs) != len(sig.Branches) {
		panic(b.defect("built %d branches, signature has %d", len(outputs), len(sig.Branches)))
	}
	changes := apchange.CoreLibfuncApChange(b.Libfunc, b.Program)
	results := make([]BranchChanges, len(outputs))
	for i, exprs := range outputs {
		vars := sig.Branches[i].Vars
		if len(exprs) != len(vars) {
			panic(b.defect("branch %d: built %d outputs, signature has %d", i, len(exprs), len(vars)))
		}
		refs := make([]references.ReferenceValue, len(exprs))
		for j, e := range exprs {
			refs[j] = references.ReferenceValue{Expression: e, Type: vars[j].Type}
		}
		results[i] = BranchChanges{Refs: refs, ApChange: changes[i]}
	}
	return CompiledInvocation{Instructions: instrs, Relocations: relocs, Results: results}
}

// BuildOnlyReferenceChanges builds a single-branch invocation that emits no
// code.
func (b CompiledInvocationBuilder) BuildOnlyReferenceChanges(outputs []references.ReferenceExpression) CompiledInvocation {
	b.checkApChanges(0)
	return b.Build(nil, nil, [][]references.ReferenceExpression{outputs})
}

// checkApChanges asserts that the computed per-branch ap-changes match the
// oracle.
func (b CompiledInvocationBuilder) checkApChanges(computed ...int) {
	want := apchange.CoreLibfuncApChange(b.Libfunc, b.Program)
	got := make([]apchange.ApChange, len(computed))
	for i, n := range computed {
		got[i] = apchange.KnownChange(n)
	}
	if !apchange.Equal(want, got) {
		panic(b.defect("ap-change mismatch: oracle %v, computed %v", want, got))
	}
}

func (b CompiledInvocationBuilder) defect(format string, args ...any) string {
	return fmt.Sprintf("statement #%d (%s): %s", b.Idx, b.libfuncName(), fmt.Sprintf(format, args...))
}

func (b CompiledInvocationBuilder) libfuncName() string {
	if b.Invocation != nil && b.Invocation.Libfunc != "" {
		return string(b.Invocation.Libfunc)
	}
	return string(b.Libfunc.Generic)
}

// GetNonFallthroughStatementID returns the target of the second branch of
// a two-way invocation whose first branch falls through.
func GetNonFallthroughStatementID(b CompiledInvocationBuilder) sierra.StatementIdx {
	br := b.Invocation.Branches
	if len(br) != 2 || br[0].Target.Kind != sierra.TargetFallthrough || br[1].Target.Kind != sierra.TargetStatement {
		panic(b.defect("malformed branches: expected [fallthrough, statement]"))
	}
	return br[1].Target.Statement
}

// CompileInvocation dispatches to the compiler of b.Libfunc.
func CompileInvocation(b CompiledInvocationBuilder) (CompiledInvocation, error) {
	switch b.Libfunc.Kind {
	case sierra.LibfuncStorageRead:
		return BuildStorageRead(b)
	case sierra.LibfuncStorageWrite:
		return BuildStorageWrite(b)
	case sierra.LibfuncCallContract:
		return BuildCallContract(b)
	case sierra.LibfuncStorageAddressConst, sierra.LibfuncContractAddressConst:
		return BuildContractAddressConst(b)
	case sierra.LibfuncFeltConst:
		return BuildFeltConst(b)
	case sierra.LibfuncStoreTemp:
		return BuildStoreTemp(b)
	case 0:
		return CompiledInvocation{}, &InvocationError{Kind: ErrNotImplemented}
	}
	return CompiledInvocation{}, &InvocationError{Kind: ErrUnknownLibfunc}
}
