package sierra

// StoreTempLibfuncID and FeltConstLibfuncID name the memory helpers that
// let programs turn deferred values into stored cells.
const (
	StoreTempLibfuncID GenericLibfuncID = "store_temp"
	FeltConstLibfuncID GenericLibfuncID = "felt_const"
)

// FeltConstLibfunc produces a felt constant. Any value is accepted.
var FeltConstLibfunc = ConstGenLibfunc{
	id:     FeltConstLibfuncID,
	kind:   LibfuncFeltConst,
	typeID: FeltTypeID,
}

// StoreTempLibfunc copies a value of type T, deferred or not, into fresh
// cells at the top of the stack.
type StoreTempLibfunc struct{}

func (StoreTempLibfunc) ID() GenericLibfuncID { return StoreTempLibfuncID }

func (StoreTempLibfunc) typeArg(ctx SpecializationContext, args []GenericArg) (ConcreteTypeID, error) {
	if len(args) != 1 {
		return NoTypeID, specErr(ErrWrongNumberOfGenericArgs, string(StoreTempLibfuncID), "expected 1, got %d", len(args))
	}
	if args[0].Kind != ArgType {
		return NoTypeID, specErr(ErrUnsupportedGenericArg, string(StoreTempLibfuncID), "expected a type argument")
	}
	info, ok := ctx.TypeInfo(args[0].Type)
	if !ok {
		return NoTypeID, specErr(ErrMissingTypeInfo, string(StoreTempLibfuncID), "type#%d", args[0].Type)
	}
	if !info.Storable {
		return NoTypeID, specErr(ErrUnsupportedGenericArg, string(StoreTempLibfuncID), "type#%d is not storable", args[0].Type)
	}
	return args[0].Type, nil
}

func (l StoreTempLibfunc) SpecializeSignature(ctx SpecializationContext, args []GenericArg) (LibfuncSignature, error) {
	ty, err := l.typeArg(ctx, args)
	if err != nil {
		return LibfuncSignature{}, err
	}
	return NewNonBranchSignature(
		[]ParamSignature{{Type: ty, AllowDeferred: true, AllowAddConst: true, AllowConst: true}},
		[]OutputVarInfo{{Type: ty, RefInfo: NewTempVar(0)}},
		KnownApChange(true),
	), nil
}

func (l StoreTempLibfunc) Specialize(ctx SpecializationContext, args []GenericArg) (*ConcreteLibfunc, error) {
	sig, err := l.SpecializeSignature(ctx, args)
	if err != nil {
		return nil, err
	}
	return &ConcreteLibfunc{Kind: LibfuncStoreTemp, Generic: StoreTempLibfuncID, Signature: sig, Type: args[0].Type}, nil
}
