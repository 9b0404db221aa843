package invocations

import (
	"sierracasm/internal/casm"
	"sierracasm/internal/felt"
	"sierracasm/internal/references"
	"sierracasm/internal/relocations"
	"sierracasm/internal/sierra"
)

// maxSystemOffset bounds the pending offset of a system pointer passed to a
// syscall.
const maxSystemOffset = 8

// Syscall selectors: the little-endian integer value of the ASCII name.
var (
	StorageReadSelector  = felt.ShortString("storage_read")
	StorageWriteSelector = felt.ShortString("storage_write")
	CallContractSelector = felt.ShortString("call_contract")
)

func singleDeref(v references.ReferenceValue) (casm.CellRef, error) {
	c, err := v.Expression.TryUnpackSingle()
	if err != nil {
		return casm.CellRef{}, invalidRef(err)
	}
	cell, err := c.ToDeref()
	if err != nil {
		return casm.CellRef{}, invalidRef(err)
	}
	return cell, nil
}

func systemBuffer(v references.ReferenceValue) (casm.ResOperand, error) {
	c, err := v.Expression.TryUnpackSingle()
	if err != nil {
		return casm.ResOperand{}, invalidRef(err)
	}
	op, err := c.ToBuffer(maxSystemOffset)
	if err != nil {
		return casm.ResOperand{}, invalidRef(err)
	}
	return op, nil
}

func cellRef(op casm.ResOperand) references.ReferenceExpression {
	return references.FromCell(references.FromResOperand(op))
}

// BuildStorageRead compiles storage_read_syscall.
//
// Request: [selector, address]. The host writes the read value into the
// first reserved temp before execution resumes.
func BuildStorageRead(b CompiledInvocationBuilder) (CompiledInvocation, error) {
	if len(b.Refs) != 2 {
		return CompiledInvocation{}, wrongArgs(2, len(b.Refs))
	}
	system, err := systemBuffer(b.Refs[0])
	if err != nil {
		return CompiledInvocation{}, err
	}
	address, err := singleDeref(b.Refs[1])
	if err != nil {
		return CompiledInvocation{}, err
	}

	cb := casm.NewBuilder()
	sys := cb.AddVar(system)
	addr := cb.AddVar(casm.ResFromDeref(address))
	value := cb.AllocTemp()
	selector := cb.AllocTemp()
	cb.Assert(selector, cb.AddImmediate(StorageReadSelector))
	original := cb.Alias(sys)
	cb.BufferWrite(sys, selector)
	cb.BufferWrite(sys, addr)
	cb.SystemCall(original)
	res := cb.Build()

	ft := res.Fallthrough
	b.checkApChanges(ft.ApChange)
	return b.Build(res.Instructions, nil, [][]references.ReferenceExpression{{
		cellRef(ft.GetAdjusted(sys)),
		references.FromCell(references.FromDeref(ft.GetAdjustedAsCellRef(value))),
	}}), nil
}

// BuildStorageWrite compiles storage_write_syscall.
//
// Request: [selector, gas, address, value]. Response: [updated gas,
// revert reason]. A non-zero revert reason takes the failure branch.
func BuildStorageWrite(b CompiledInvocationBuilder) (CompiledInvocation, error) {
	failure := GetNonFallthroughStatementID(b)
	if len(b.Refs) != 4 {
		return CompiledInvocation{}, wrongArgs(4, len(b.Refs))
	}
	gasCell, err := singleDeref(b.Refs[0])
	if err != nil {
		return CompiledInvocation{}, err
	}
	system, err := systemBuffer(b.Refs[1])
	if err != nil {
		return CompiledInvocation{}, err
	}
	address, err := singleDeref(b.Refs[2])
	if err != nil {
		return CompiledInvocation{}, err
	}
	valueCell, err := singleDeref(b.Refs[3])
	if err != nil {
		return CompiledInvocation{}, err
	}

	cb := casm.NewBuilder()
	sys := cb.AddVar(system)
	gas := cb.AddVar(casm.ResFromDeref(gasCell))
	addr := cb.AddVar(casm.ResFromDeref(address))
	value := cb.AddVar(casm.ResFromDeref(valueCell))
	revertReason := cb.AllocTemp()
	selector := cb.AllocTemp()
	cb.Assert(selector, cb.AddImmediate(StorageWriteSelector))
	original := cb.Alias(sys)
	cb.BufferWrite(sys, selector)
	cb.BufferWrite(sys, gas)
	cb.BufferWrite(sys, addr)
	cb.BufferWrite(sys, value)
	cb.SystemCall(original)
	updatedGas := cb.BufferRead(sys)
	cb.BufferWrite(sys, revertReason)
	cb.JumpNz("Failure", revertReason)
	res := cb.Build()

	ft, fail := res.Fallthrough, res.LabelStates["Failure"]
	b.checkApChanges(ft.ApChange, fail.ApChange)
	relocs := singleRelocation(b, res.AwaitingRelocations, failure)
	return b.Build(res.Instructions, relocs, [][]references.ReferenceExpression{
		{
			cellRef(ft.GetAdjusted(updatedGas)),
			cellRef(ft.GetAdjusted(sys)),
		},
		{
			cellRef(fail.GetAdjusted(updatedGas)),
			cellRef(fail.GetAdjusted(sys)),
			references.FromCell(references.FromDeref(fail.GetAdjustedAsCellRef(revertReason))),
		},
	}), nil
}

// BuildCallContract compiles call_contract_syscall.
//
// Request: [selector, gas, address, calldata start, calldata end].
// Response: [updated gas, revert reason, result start, result end].
func BuildCallContract(b CompiledInvocationBuilder) (CompiledInvocation, error) {
	failure := GetNonFallthroughStatementID(b)
	if len(b.Refs) != 4 {
		return CompiledInvocation{}, wrongArgs(4, len(b.Refs))
	}
	gasCell, err := singleDeref(b.Refs[0])
	if err != nil {
		return CompiledInvocation{}, err
	}
	system, err := systemBuffer(b.Refs[1])
	if err != nil {
		return CompiledInvocation{}, err
	}
	address, err := singleDeref(b.Refs[2])
	if err != nil {
		return CompiledInvocation{}, err
	}
	arrayTy := b.Libfunc.Signature.Params[3].Type
	callData, err := references.TryGetView(b.Refs[3].Expression, b.Program, arrayTy)
	if err != nil {
		return CompiledInvocation{}, invalidRef(err)
	}
	if callData.EndOffset != 0 {
		return CompiledInvocation{}, invalidRef(nil)
	}

	cb := casm.NewBuilder()
	sys := cb.AddVar(system)
	gas := cb.AddVar(casm.ResFromDeref(gasCell))
	contract := cb.AddVar(casm.ResFromDeref(address))
	start := cb.AddVar(casm.ResFromDeref(callData.Start))
	end := cb.AddVar(casm.ResFromDeref(callData.End))
	revertReason := cb.AllocTemp()
	selector := cb.AllocTemp()
	cb.Assert(selector, cb.AddImmediate(CallContractSelector))
	original := cb.Alias(sys)
	cb.BufferWrite(sys, selector)
	cb.BufferWrite(sys, gas)
	cb.BufferWrite(sys, contract)
	cb.BufferWrite(sys, start)
	cb.BufferWrite(sys, end)
	cb.SystemCall(original)
	updatedGas := cb.BufferRead(sys)
	cb.BufferWrite(sys, revertReason)
	resStart := cb.BufferRead(sys)
	resEnd := cb.BufferRead(sys)
	cb.JumpNz("Failure", revertReason)
	res := cb.Build()

	ft, fail := res.Fallthrough, res.LabelStates["Failure"]
	b.checkApChanges(ft.ApChange, fail.ApChange)
	relocs := singleRelocation(b, res.AwaitingRelocations, failure)
	resultArray := func(st casm.State) references.ReferenceExpression {
		return references.ReferenceExpression{Cells: []references.CellExpression{
			references.FromResOperand(st.GetAdjusted(resStart)),
			references.FromResOperand(st.GetAdjusted(resEnd)),
		}}
	}
	return b.Build(res.Instructions, relocs, [][]references.ReferenceExpression{
		{
			cellRef(ft.GetAdjusted(updatedGas)),
			cellRef(ft.GetAdjusted(sys)),
			resultArray(ft),
		},
		{
			cellRef(fail.GetAdjusted(updatedGas)),
			cellRef(fail.GetAdjusted(sys)),
			references.FromCell(references.FromDeref(fail.GetAdjustedAsCellRef(revertReason))),
			resultArray(fail),
		},
	}), nil
}

// BuildContractAddressConst compiles storage_address_const and
// contract_address_const. The value must be below 2^251.
func BuildContractAddressConst(b CompiledInvocationBuilder) (CompiledInvocation, error) {
	if !felt.InAddrRange(b.Libfunc.Const) {
		return CompiledInvocation{}, &InvocationError{Kind: ErrInvalidGenericArg}
	}
	if len(b.Refs) != 0 {
		return CompiledInvocation{}, wrongArgs(0, len(b.Refs))
	}
	return b.BuildOnlyReferenceChanges([]references.ReferenceExpression{
		references.FromCell(references.FromImmediate(b.Libfunc.Const)),
	}), nil
}

func singleRelocation(b CompiledInvocationBuilder, awaiting []int, target sierra.StatementIdx) []relocations.RelocationEntry {
	if len(awaiting) != 1 {
		panic(b.defect("malformed builder usage: %d awaiting relocations, expected 1", len(awaiting)))
	}
	return []relocations.RelocationEntry{{
		InstructionIdx: awaiting[0],
		Relocation:     relocations.Relocation{Kind: relocations.RelativeStatementID, Statement: target},
	}}
}
