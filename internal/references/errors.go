package references

import "fmt"

// ErrorKind classifies reference shape failures.
type ErrorKind uint8

const (
	ErrInvalidReferenceTypeForArgument ErrorKind = iota
	ErrUnexpectedNumberOfCells
	ErrApChangeOutOfRange
)

// ReferencesError reports a reference that does not have the shape an
// instruction needs.
type ReferencesError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ReferencesError) Error() string {
	var what string
	switch e.Kind {
	case ErrInvalidReferenceTypeForArgument:
		what = "invalid reference type for argument"
	case ErrUnexpectedNumberOfCells:
		what = "unexpected number of cells"
	case ErrApChangeOutOfRange:
		what = "ap-change moves a reference out of range"
	default:
		what = fmt.Sprintf("reference error %d", e.Kind)
	}
	if e.Detail == "" {
		return what
	}
	return what + ": " + e.Detail
}

// Is matches any ReferencesError of the same kind.
func (e *ReferencesError) Is(target error) bool {
	t, ok := target.(*ReferencesError)
	return ok && t.Kind == e.Kind
}
