package compiler

import (
	"errors"

	"sierracasm/internal/diag"
	"sierracasm/internal/invocations"
	"sierracasm/internal/sierra"
)

// SpecializationCode maps a specialization failure to its diagnostic code.
func SpecializationCode(err error) diag.Code {
	var se *sierra.SpecializationError
	if !errors.As(err, &se) {
		return diag.PrgInvalid
	}
	switch se.Kind {
	case sierra.ErrUnsupportedID:
		return diag.SpcUnsupportedID
	case sierra.ErrWrongNumberOfGenericArgs:
		return diag.SpcWrongGenericArgs
	case sierra.ErrUnsupportedGenericArg:
		return diag.SpcUnsupportedArg
	case sierra.ErrInvalidGenericArg:
		return diag.SpcInvalidArg
	case sierra.ErrMissingTypeInfo:
		return diag.SpcMissingTypeInfo
	case sierra.ErrInvalidSignature:
		return diag.SpcInvalidSignature
	}
	return diag.PrgInvalid
}

func invocationCode(err error) diag.Code {
	var ie *invocations.InvocationError
	if !errors.As(err, &ie) {
		return diag.PrgInvalid
	}
	switch ie.Kind {
	case invocations.ErrWrongNumberOfArguments:
		return diag.InvWrongNumberOfArgs
	case invocations.ErrInvalidReferenceExpressionForArgument:
		return diag.InvInvalidReference
	case invocations.ErrInvalidGenericArg:
		return diag.InvInvalidGenericArg
	case invocations.ErrNotImplemented:
		return diag.InvNotImplemented
	case invocations.ErrUnknownLibfunc:
		return diag.InvUnknownLibfunc
	}
	return diag.PrgInvalid
}
