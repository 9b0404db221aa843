package sierra

// TypeInfo describes a concrete type. It never changes once the type has
// been interned.
type TypeInfo struct {
	LongID       LongID
	Storable     bool
	Droppable    bool
	Duplicatable bool
	Size         int16 // in machine words
}

// SpecializationContext is what specializers may query while building a
// concrete type or a libfunc signature.
type SpecializationContext interface {
	GetConcreteType(id GenericTypeID, args []GenericArg) (ConcreteTypeID, error)
	TypeInfo(id ConcreteTypeID) (TypeInfo, bool)
}

// GenericType specializes a type family for concrete arguments.
type GenericType interface {
	ID() GenericTypeID
	Specialize(ctx SpecializationContext, args []GenericArg) (TypeInfo, error)
}

// NoGenericArgsType is a type family with exactly one member.
type NoGenericArgsType interface {
	ID() GenericTypeID
	SpecializeNoArgs() TypeInfo
}

type noArgsType struct{ inner NoGenericArgsType }

// WrapNoGenericArgsType adapts t into a GenericType that rejects any
// generic argument.
func WrapNoGenericArgsType(t NoGenericArgsType) GenericType {
	return noArgsType{inner: t}
}

func (t noArgsType) ID() GenericTypeID { return t.inner.ID() }

func (t noArgsType) Specialize(_ SpecializationContext, args []GenericArg) (TypeInfo, error) {
	if len(args) != 0 {
		return TypeInfo{}, specErr(ErrWrongNumberOfGenericArgs, string(t.inner.ID()), "expected 0, got %d", len(args))
	}
	return t.inner.SpecializeNoArgs(), nil
}

// scalarInfo is the info shared by all single-word plain value types.
func scalarInfo(id GenericTypeID) TypeInfo {
	return TypeInfo{
		LongID:       LongID{Generic: id},
		Storable:     true,
		Droppable:    true,
		Duplicatable: true,
		Size:         1,
	}
}
