package sierra

import "sierracasm/internal/felt"

const (
	StorageReadLibfuncID         GenericLibfuncID = "storage_read_syscall"
	StorageWriteLibfuncID        GenericLibfuncID = "storage_write_syscall"
	StorageAddressConstLibfuncID GenericLibfuncID = "storage_address_const"
)

// StorageAddressType is a storage address, semantically a value in
// [0, 2^251 - 256). The range is not enforced here; constants are checked
// against the looser bound 2^251 by StorageAddressConstLibfunc.
type StorageAddressType struct{}

func (StorageAddressType) ID() GenericTypeID { return StorageAddressTypeID }

func (StorageAddressType) SpecializeNoArgs() TypeInfo {
	return scalarInfo(StorageAddressTypeID)
}

// StorageAddressConstLibfunc creates a constant storage address.
var StorageAddressConstLibfunc = ConstGenLibfunc{
	id:      StorageAddressConstLibfuncID,
	kind:    LibfuncStorageAddressConst,
	typeID:  StorageAddressTypeID,
	inRange: felt.InAddrRange,
}

// systemParam is the syscall channel: a real cell, possibly advanced by a
// constant, never an immediate.
func systemParam(ty ConcreteTypeID) ParamSignature {
	return ParamSignature{Type: ty, AllowDeferred: false, AllowAddConst: true, AllowConst: false}
}

func getTypes(ctx SpecializationContext, ids ...GenericTypeID) ([]ConcreteTypeID, error) {
	out := make([]ConcreteTypeID, 0, len(ids))
	for _, id := range ids {
		ty, err := ctx.GetConcreteType(id, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, ty)
	}
	return out, nil
}

// StorageReadLibfunc reads a storage value through the syscall channel.
type StorageReadLibfunc struct{}

func (StorageReadLibfunc) ID() GenericLibfuncID { return StorageReadLibfuncID }
func (StorageReadLibfunc) Kind() LibfuncKind    { return LibfuncStorageRead }

func (StorageReadLibfunc) SpecializeNoArgs(ctx SpecializationContext) (LibfuncSignature, error) {
	tys, err := getTypes(ctx, SystemTypeID, StorageAddressTypeID, FeltTypeID)
	if err != nil {
		return LibfuncSignature{}, err
	}
	systemTy, addrTy, feltTy := tys[0], tys[1], tys[2]
	return NewNonBranchSignature(
		[]ParamSignature{
			systemParam(systemTy),
			NewParamSignature(addrTy),
		},
		[]OutputVarInfo{
			{Type: systemTy, RefInfo: DeferredAddConstOf(0)},
			{Type: feltTy, RefInfo: NewTempVar(0)},
		},
		KnownApChange(false),
	), nil
}

// StorageWriteLibfunc writes a storage value. It branches on the host's
// revert reason: branch 0 succeeds, branch 1 carries the reason.
type StorageWriteLibfunc struct{}

func (StorageWriteLibfunc) ID() GenericLibfuncID { return StorageWriteLibfuncID }
func (StorageWriteLibfunc) Kind() LibfuncKind    { return LibfuncStorageWrite }

func (StorageWriteLibfunc) SpecializeNoArgs(ctx SpecializationContext) (LibfuncSignature, error) {
	tys, err := getTypes(ctx, GasBuiltinTypeID, SystemTypeID, StorageAddressTypeID, FeltTypeID)
	if err != nil {
		return LibfuncSignature{}, err
	}
	gasTy, systemTy, addrTy, feltTy := tys[0], tys[1], tys[2], tys[3]
	common := func() []OutputVarInfo {
		return []OutputVarInfo{
			{Type: gasTy, RefInfo: Deferred(DeferredGeneric)},
			{Type: systemTy, RefInfo: DeferredAddConstOf(1)},
		}
	}
	return LibfuncSignature{
		Params: []ParamSignature{
			NewParamSignature(gasTy),
			systemParam(systemTy),
			NewParamSignature(addrTy),
			NewParamSignature(feltTy),
		},
		Branches: []BranchSignature{
			{Vars: common(), ApChange: KnownApChange(false)},
			{
				Vars:     append(common(), OutputVarInfo{Type: feltTy, RefInfo: NewTempVar(0)}),
				ApChange: KnownApChange(false),
			},
		},
		HasFallthrough: true,
		Fallthrough:    0,
	}, nil
}
