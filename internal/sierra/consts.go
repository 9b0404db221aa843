package sierra

import "sierracasm/internal/felt"

// ConstGenLibfunc builds constants of a single-word type from a value
// argument. The range check is part of specialization.
type ConstGenLibfunc struct {
	id      GenericLibfuncID
	kind    LibfuncKind
	typeID  GenericTypeID
	inRange func(felt.Int) bool
}

func (l ConstGenLibfunc) ID() GenericLibfuncID { return l.id }

func (l ConstGenLibfunc) constArg(args []GenericArg) (felt.Int, error) {
	if len(args) != 1 {
		return felt.Int{}, specErr(ErrWrongNumberOfGenericArgs, string(l.id), "expected 1, got %d", len(args))
	}
	if args[0].Kind != ArgValue {
		return felt.Int{}, specErr(ErrUnsupportedGenericArg, string(l.id), "expected a value argument")
	}
	c := args[0].Value
	if l.inRange != nil && !l.inRange(c) {
		return felt.Int{}, specErr(ErrInvalidGenericArg, string(l.id), "%s is out of range", c)
	}
	return c, nil
}

func (l ConstGenLibfunc) SpecializeSignature(ctx SpecializationContext, args []GenericArg) (LibfuncSignature, error) {
	if _, err := l.constArg(args); err != nil {
		return LibfuncSignature{}, err
	}
	ty, err := ctx.GetConcreteType(l.typeID, nil)
	if err != nil {
		return LibfuncSignature{}, err
	}
	return NewNonBranchSignature(
		nil,
		[]OutputVarInfo{{Type: ty, RefInfo: Deferred(DeferredConst)}},
		KnownApChange(true),
	), nil
}

func (l ConstGenLibfunc) Specialize(ctx SpecializationContext, args []GenericArg) (*ConcreteLibfunc, error) {
	sig, err := l.SpecializeSignature(ctx, args)
	if err != nil {
		return nil, err
	}
	c, _ := l.constArg(args)
	return &ConcreteLibfunc{Kind: l.kind, Generic: l.id, Signature: sig, Const: c}, nil
}
