package sierra

// Identity constants of the built-in type families.
const (
	FeltTypeID            GenericTypeID = "felt"
	GasBuiltinTypeID      GenericTypeID = "GasBuiltin"
	SystemTypeID          GenericTypeID = "System"
	ArrayTypeID           GenericTypeID = "Array"
	StorageAddressTypeID  GenericTypeID = "StorageAddress"
	ContractAddressTypeID GenericTypeID = "ContractAddress"
)

func coreTypes() []GenericType {
	return []GenericType{
		WrapNoGenericArgsType(FeltType{}),
		WrapNoGenericArgsType(GasBuiltinType{}),
		WrapNoGenericArgsType(SystemType{}),
		WrapNoGenericArgsType(StorageAddressType{}),
		WrapNoGenericArgsType(ContractAddressType{}),
		ArrayType{},
	}
}

func coreLibfuncs() []GenericLibfunc {
	return []GenericLibfunc{
		WrapNoGenericArgsLibfunc(StorageReadLibfunc{}),
		WrapNoGenericArgsLibfunc(StorageWriteLibfunc{}),
		WrapNoGenericArgsLibfunc(CallContractLibfunc{}),
		StorageAddressConstLibfunc,
		ContractAddressConstLibfunc,
		FeltConstLibfunc,
		StoreTempLibfunc{},
	}
}

// FeltType is the field element.
type FeltType struct{}

func (FeltType) ID() GenericTypeID          { return FeltTypeID }
func (FeltType) SpecializeNoArgs() TypeInfo { return scalarInfo(FeltTypeID) }

// GasBuiltinType is the gas counter threaded through syscalls.
type GasBuiltinType struct{}

func (GasBuiltinType) ID() GenericTypeID { return GasBuiltinTypeID }

func (GasBuiltinType) SpecializeNoArgs() TypeInfo {
	return TypeInfo{LongID: LongID{Generic: GasBuiltinTypeID}, Storable: true, Size: 1}
}

// SystemType is the system-call channel pointer. It is linear: it can be
// neither dropped nor duplicated.
type SystemType struct{}

func (SystemType) ID() GenericTypeID { return SystemTypeID }

func (SystemType) SpecializeNoArgs() TypeInfo {
	return TypeInfo{LongID: LongID{Generic: SystemTypeID}, Storable: true, Size: 1}
}

// ArrayType is a contiguous buffer described by its start and end cursors.
type ArrayType struct{}

func (ArrayType) ID() GenericTypeID { return ArrayTypeID }

func (ArrayType) Specialize(ctx SpecializationContext, args []GenericArg) (TypeInfo, error) {
	if len(args) != 1 {
		return TypeInfo{}, specErr(ErrWrongNumberOfGenericArgs, string(ArrayTypeID), "expected 1, got %d", len(args))
	}
	if args[0].Kind != ArgType {
		return TypeInfo{}, specErr(ErrUnsupportedGenericArg, string(ArrayTypeID), "element must be a type")
	}
	elem, ok := ctx.TypeInfo(args[0].Type)
	if !ok {
		return TypeInfo{}, specErr(ErrMissingTypeInfo, string(ArrayTypeID), "element type#%d", args[0].Type)
	}
	if !elem.Storable {
		return TypeInfo{}, specErr(ErrUnsupportedGenericArg, string(ArrayTypeID), "element type is not storable")
	}
	return TypeInfo{
		Storable:     true,
		Droppable:    elem.Droppable,
		Duplicatable: false,
		Size:         2,
	}, nil
}
