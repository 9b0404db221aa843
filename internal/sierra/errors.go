package sierra

import "fmt"

// SpecializationErrorKind enumerates the ways a generic type or libfunc
// can fail to specialize.
type SpecializationErrorKind uint8

const (
	// ErrUnsupportedID reports an unknown generic type or libfunc id.
	ErrUnsupportedID SpecializationErrorKind = iota + 1
	ErrWrongNumberOfGenericArgs
	ErrUnsupportedGenericArg
	// ErrInvalidGenericArg reports a well-shaped argument with a bad value,
	// e.g. an out-of-range constant.
	ErrInvalidGenericArg
	ErrMissingTypeInfo
	ErrInvalidSignature
)

func (k SpecializationErrorKind) String() string {
	switch k {
	case ErrUnsupportedID:
		return "unsupported id"
	case ErrWrongNumberOfGenericArgs:
		return "wrong number of generic args"
	case ErrUnsupportedGenericArg:
		return "unsupported generic arg"
	case ErrInvalidGenericArg:
		return "invalid generic arg"
	case ErrMissingTypeInfo:
		return "missing type info"
	case ErrInvalidSignature:
		return "invalid signature"
	default:
		return fmt.Sprintf("SpecializationErrorKind(%d)", k)
	}
}

// SpecializationError is returned when specialization fails. It is
// deterministic: retrying with the same inputs yields the same error.
type SpecializationError struct {
	Kind   SpecializationErrorKind
	ID     string // generic id being specialized
	Detail string
}

func (e *SpecializationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("specialization of %q failed: %s", e.ID, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any *SpecializationError with the same Kind, so callers can
// write errors.Is(err, &SpecializationError{Kind: ErrInvalidGenericArg}).
func (e *SpecializationError) Is(target error) bool {
	t, ok := target.(*SpecializationError)
	return ok && e != nil && t.Kind == e.Kind
}

func specErr(kind SpecializationErrorKind, id string, format string, args ...any) *SpecializationError {
	return &SpecializationError{Kind: kind, ID: id, Detail: fmt.Sprintf(format, args...)}
}
