package sierra

import (
	"errors"
	"fmt"

	"sierracasm/internal/felt"
)

// ParamSignature restricts the locations an argument may occupy.
type ParamSignature struct {
	Type ConcreteTypeID
	// AllowDeferred accepts a value not yet written to memory.
	AllowDeferred bool
	// AllowAddConst accepts a memory cell plus a constant offset.
	AllowAddConst bool
	// AllowConst accepts an immediate.
	AllowConst bool
}

// NewParamSignature describes a plain parameter: it must live in a cell.
func NewParamSignature(ty ConcreteTypeID) ParamSignature {
	return ParamSignature{Type: ty}
}

// RefKind classifies how an output's location relates to the inputs.
type RefKind uint8

const (
	// RefSameAsParam keeps the location of an input.
	RefSameAsParam RefKind = iota + 1
	// RefPartialParam reuses part of an input's cells.
	RefPartialParam
	// RefNewTempVar is a freshly allocated ap-based cell.
	RefNewTempVar
	RefNewLocalVar
	// RefDeferred is an expression not yet materialized in memory.
	RefDeferred
)

func (k RefKind) String() string {
	switch k {
	case RefSameAsParam:
		return "same_as_param"
	case RefPartialParam:
		return "partial_param"
	case RefNewTempVar:
		return "new_temp_var"
	case RefNewLocalVar:
		return "new_local_var"
	case RefDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("RefKind(%d)", k)
	}
}

// DeferredKind refines RefDeferred.
type DeferredKind uint8

const (
	DeferredConst DeferredKind = iota + 1
	// DeferredAddConst is an input cell plus a constant.
	DeferredAddConst
	DeferredGeneric
)

// DeferredOutputKind describes a deferred output.
type DeferredOutputKind struct {
	Kind     DeferredKind
	ParamIdx int // for DeferredAddConst
}

// OutputVarReferenceInfo tells later passes where an output lives.
type OutputVarReferenceInfo struct {
	Kind     RefKind
	ParamIdx int // for RefSameAsParam and RefPartialParam
	// HasIdx and Idx give the allocation offset of a RefNewTempVar relative
	// to ap before the invocation.
	HasIdx   bool
	Idx      int
	Deferred DeferredOutputKind
}

// NewTempVar is an output allocated at [ap + idx] of the invocation frame.
func NewTempVar(idx int) OutputVarReferenceInfo {
	return OutputVarReferenceInfo{Kind: RefNewTempVar, HasIdx: true, Idx: idx}
}

// SameAsParam keeps the location of param idx.
func SameAsParam(idx int) OutputVarReferenceInfo {
	return OutputVarReferenceInfo{Kind: RefSameAsParam, ParamIdx: idx}
}

// Deferred builds a deferred output reference.
func Deferred(kind DeferredKind) OutputVarReferenceInfo {
	return OutputVarReferenceInfo{Kind: RefDeferred, Deferred: DeferredOutputKind{Kind: kind}}
}

// DeferredAddConstOf is param idx advanced by a constant.
func DeferredAddConstOf(idx int) OutputVarReferenceInfo {
	return OutputVarReferenceInfo{Kind: RefDeferred, Deferred: DeferredOutputKind{Kind: DeferredAddConst, ParamIdx: idx}}
}

// OutputVarInfo is one output of a branch.
type OutputVarInfo struct {
	Type    ConcreteTypeID
	RefInfo OutputVarReferenceInfo
}

// ApChangeKind classifies the declared ap change of a branch.
type ApChangeKind uint8

const (
	ApChangeKnown ApChangeKind = iota + 1
	ApChangeNotImplemented
	ApChangeBranchAlign
)

// SierraApChange is the declared stack effect of a branch. NewVarsOnly
// means ap only grows by the outputs' own new temp vars.
type SierraApChange struct {
	Kind        ApChangeKind
	NewVarsOnly bool
}

// KnownApChange builds a Known ap change.
func KnownApChange(newVarsOnly bool) SierraApChange {
	return SierraApChange{Kind: ApChangeKnown, NewVarsOnly: newVarsOnly}
}

// BranchSignature lists a branch's outputs and its ap change.
type BranchSignature struct {
	Vars     []OutputVarInfo
	ApChange SierraApChange
}

// LibfuncSignature is the full typed signature of a concrete libfunc.
type LibfuncSignature struct {
	Params         []ParamSignature
	Branches       []BranchSignature
	HasFallthrough bool
	Fallthrough    int
}

// NewNonBranchSignature builds a single-branch signature that falls through.
func NewNonBranchSignature(params []ParamSignature, vars []OutputVarInfo, apChange SierraApChange) LibfuncSignature {
	return LibfuncSignature{
		Params:         params,
		Branches:       []BranchSignature{{Vars: vars, ApChange: apChange}},
		HasFallthrough: true,
		Fallthrough:    0,
	}
}

// Validate checks that every output reference is realizable from the
// declared params.
func (s LibfuncSignature) Validate(ctx SpecializationContext) error {
	var errs []error
	if len(s.Branches) == 0 {
		errs = append(errs, errors.New("no branches"))
	}
	if s.HasFallthrough && (s.Fallthrough < 0 || s.Fallthrough >= len(s.Branches)) {
		errs = append(errs, fmt.Errorf("fallthrough branch %d out of range", s.Fallthrough))
	}
	for i, p := range s.Params {
		if _, ok := ctx.TypeInfo(p.Type); !ok {
			errs = append(errs, fmt.Errorf("param %d: unknown type#%d", i, p.Type))
		}
	}
	for bi, b := range s.Branches {
		for vi, v := range b.Vars {
			if _, ok := ctx.TypeInfo(v.Type); !ok {
				errs = append(errs, fmt.Errorf("branch %d var %d: unknown type#%d", bi, vi, v.Type))
			}
			if err := s.validateRef(v); err != nil {
				errs = append(errs, fmt.Errorf("branch %d var %d: %w", bi, vi, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s LibfuncSignature) validateRef(v OutputVarInfo) error {
	paramIdx := -1
	switch v.RefInfo.Kind {
	case RefSameAsParam, RefPartialParam:
		paramIdx = v.RefInfo.ParamIdx
	case RefDeferred:
		if v.RefInfo.Deferred.Kind == DeferredAddConst {
			paramIdx = v.RefInfo.Deferred.ParamIdx
		}
	case RefNewTempVar:
		if v.RefInfo.HasIdx && v.RefInfo.Idx < 0 {
			return fmt.Errorf("negative temp var index %d", v.RefInfo.Idx)
		}
		return nil
	case RefNewLocalVar:
		return nil
	default:
		return fmt.Errorf("unknown reference kind %s", v.RefInfo.Kind)
	}
	if paramIdx < 0 {
		return nil
	}
	if paramIdx >= len(s.Params) {
		return fmt.Errorf("%s refers to param %d of %d", v.RefInfo.Kind, paramIdx, len(s.Params))
	}
	p := s.Params[paramIdx]
	if v.RefInfo.Kind == RefDeferred && p.AllowConst {
		return fmt.Errorf("add-const output on param %d which may be an immediate", paramIdx)
	}
	if v.RefInfo.Kind != RefPartialParam && p.Type != v.Type {
		return fmt.Errorf("output type#%d differs from param %d type#%d", v.Type, paramIdx, p.Type)
	}
	return nil
}

// LibfuncKind identifies the concrete libfunc implementation.
type LibfuncKind uint8

const (
	LibfuncStorageRead LibfuncKind = iota + 1
	LibfuncStorageWrite
	LibfuncStorageAddressConst
	LibfuncContractAddressConst
	LibfuncCallContract
	LibfuncStoreTemp
	LibfuncFeltConst
)

func (k LibfuncKind) String() string {
	switch k {
	case LibfuncStorageRead:
		return "storage_read"
	case LibfuncStorageWrite:
		return "storage_write"
	case LibfuncStorageAddressConst:
		return "storage_address_const"
	case LibfuncContractAddressConst:
		return "contract_address_const"
	case LibfuncCallContract:
		return "call_contract"
	case LibfuncStoreTemp:
		return "store_temp"
	case LibfuncFeltConst:
		return "felt_const"
	}
	return fmt.Sprintf("LibfuncKind(%d)", k)
}

// ConcreteLibfunc is a specialized libfunc ready to be compiled.
type ConcreteLibfunc struct {
	Kind      LibfuncKind
	Generic   GenericLibfuncID
	Signature LibfuncSignature
	// Const holds the value argument of const libfuncs.
	Const felt.Int
	// Type is the type argument of type-generic libfuncs.
	Type ConcreteTypeID
}

// GenericLibfunc specializes a libfunc family for concrete arguments.
type GenericLibfunc interface {
	ID() GenericLibfuncID
	SpecializeSignature(ctx SpecializationContext, args []GenericArg) (LibfuncSignature, error)
	Specialize(ctx SpecializationContext, args []GenericArg) (*ConcreteLibfunc, error)
}

// NoGenericArgsLibfunc is a libfunc family with exactly one member.
type NoGenericArgsLibfunc interface {
	ID() GenericLibfuncID
	Kind() LibfuncKind
	SpecializeNoArgs(ctx SpecializationContext) (LibfuncSignature, error)
}

type noArgsLibfunc struct{ inner NoGenericArgsLibfunc }

// WrapNoGenericArgsLibfunc adapts l into a GenericLibfunc.
func WrapNoGenericArgsLibfunc(l NoGenericArgsLibfunc) GenericLibfunc {
	return noArgsLibfunc{inner: l}
}

func (l noArgsLibfunc) ID() GenericLibfuncID { return l.inner.ID() }

func (l noArgsLibfunc) SpecializeSignature(ctx SpecializationContext, args []GenericArg) (LibfuncSignature, error) {
	if len(args) != 0 {
		return LibfuncSignature{}, specErr(ErrWrongNumberOfGenericArgs, string(l.inner.ID()), "expected 0, got %d", len(args))
	}
	return l.inner.SpecializeNoArgs(ctx)
}

func (l noArgsLibfunc) Specialize(ctx SpecializationContext, args []GenericArg) (*ConcreteLibfunc, error) {
	sig, err := l.SpecializeSignature(ctx, args)
	if err != nil {
		return nil, err
	}
	return &ConcreteLibfunc{Kind: l.inner.Kind(), Generic: l.inner.ID(), Signature: sig}, nil
}
