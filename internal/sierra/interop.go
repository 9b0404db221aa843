package sierra

import "sierracasm/internal/felt"

const (
	CallContractLibfuncID         GenericLibfuncID = "call_contract_syscall"
	ContractAddressConstLibfuncID GenericLibfuncID = "contract_address_const"
)

// ContractAddressType is the address of a deployed contract.
type ContractAddressType struct{}

func (ContractAddressType) ID() GenericTypeID { return ContractAddressTypeID }

func (ContractAddressType) SpecializeNoArgs() TypeInfo {
	return scalarInfo(ContractAddressTypeID)
}

// ContractAddressConstLibfunc creates a constant contract address.
var ContractAddressConstLibfunc = ConstGenLibfunc{
	id:      ContractAddressConstLibfuncID,
	kind:    LibfuncContractAddressConst,
	typeID:  ContractAddressTypeID,
	inRange: felt.InAddrRange,
}

// CallContractLibfunc calls another contract with a felt array of call
// data. Branch 0 returns the result array; branch 1 also returns the
// revert reason.
type CallContractLibfunc struct{}

func (CallContractLibfunc) ID() GenericLibfuncID { return CallContractLibfuncID }
func (CallContractLibfunc) Kind() LibfuncKind    { return LibfuncCallContract }

func (CallContractLibfunc) SpecializeNoArgs(ctx SpecializationContext) (LibfuncSignature, error) {
	tys, err := getTypes(ctx, GasBuiltinTypeID, SystemTypeID, ContractAddressTypeID, FeltTypeID)
	if err != nil {
		return LibfuncSignature{}, err
	}
	gasTy, systemTy, addrTy, feltTy := tys[0], tys[1], tys[2], tys[3]
	arrTy, err := ctx.GetConcreteType(ArrayTypeID, []GenericArg{TypeArg(feltTy)})
	if err != nil {
		return LibfuncSignature{}, err
	}
	gas := OutputVarInfo{Type: gasTy, RefInfo: Deferred(DeferredGeneric)}
	system := OutputVarInfo{Type: systemTy, RefInfo: DeferredAddConstOf(1)}
	result := OutputVarInfo{Type: arrTy, RefInfo: Deferred(DeferredGeneric)}
	return LibfuncSignature{
		Params: []ParamSignature{
			NewParamSignature(gasTy),
			systemParam(systemTy),
			NewParamSignature(addrTy),
			NewParamSignature(arrTy),
		},
		Branches: []BranchSignature{
			{Vars: []OutputVarInfo{gas, system, result}, ApChange: KnownApChange(false)},
			{
				Vars: []OutputVarInfo{
					gas,
					system,
					{Type: feltTy, RefInfo: NewTempVar(0)},
					result,
				},
				ApChange: KnownApChange(false),
			},
		},
		HasFallthrough: true,
		Fallthrough:    0,
	}, nil
}
