package invocations

import "fmt"

// ErrorKind classifies invocation compilation failures.
type ErrorKind uint8

const (
	ErrWrongNumberOfArguments ErrorKind = iota + 1
	ErrInvalidReferenceExpressionForArgument
	ErrInvalidGenericArg
	ErrNotImplemented
	ErrUnknownLibfunc
)

func (k ErrorKind) String() string {
	switch k {
	case ErrWrongNumberOfArguments:
		return "WrongNumberOfArguments"
	case ErrInvalidReferenceExpressionForArgument:
		return "InvalidReferenceExpressionForArgument"
	case ErrInvalidGenericArg:
		return "InvalidGenericArg"
	case ErrNotImplemented:
		return "NotImplemented"
	case ErrUnknownLibfunc:
		return "UnknownLibfunc"
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// InvocationError is returned when an invocation cannot be compiled
// because of its input.
type InvocationError struct {
	Kind     ErrorKind
	Expected int
	Actual   int
	Err      error
}

func (e *InvocationError) Error() string {
	switch e.Kind {
	case ErrWrongNumberOfArguments:
		return fmt.Sprintf("wrong number of arguments: expected %d, got %d", e.Expected, e.Actual)
	case ErrInvalidReferenceExpressionForArgument:
		if e.Err != nil {
			return "invalid reference expression for argument: " + e.Err.Error()
		}
		return "invalid reference expression for argument"
	case ErrInvalidGenericArg:
		return "invalid generic argument"
	case ErrNotImplemented:
		return "libfunc has no implementation"
	case ErrUnknownLibfunc:
		return "unknown libfunc"
	}
	return e.Kind.String()
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Is matches any InvocationError of the same kind.
func (e *InvocationError) Is(target error) bool {
	t, ok := target.(*InvocationError)
	return ok && t.Kind == e.Kind
}

func wrongArgs(expected, actual int) error {
	return &InvocationError{Kind: ErrWrongNumberOfArguments, Expected: expected, Actual: actual}
}

func invalidRef(err error) error {
	return &InvocationError{Kind: ErrInvalidReferenceExpressionForArgument, Err: err}
}
