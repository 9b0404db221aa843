// Package apchange computes the ap-change of every branch of a concrete
// libfunc independently of code generation. Invocation compilers check
// their output against it.
package apchange

import (
	"fmt"

	"sierracasm/internal/sierra"
)

// Kind tells whether an ap-change is statically known.
type Kind uint8

const (
	Known Kind = iota
	Unknown
)

// ApChange is the ap advance of one branch.
type ApChange struct {
	Kind  Kind
	Value int
}

// KnownChange builds a known ap-change of n cells.
func KnownChange(n int) ApChange { return ApChange{Kind: Known, Value: n} }

func (a ApChange) String() string {
	if a.Kind == Unknown {
		return "unknown"
	}
	return fmt.Sprintf("known(%d)", a.Value)
}

// TypeSizes reports the cell size of concrete types.
type TypeSizes interface {
	TypeSize(id sierra.ConcreteTypeID) (int16, bool)
}

// CoreLibfuncApChange returns one ap-change per branch of lib.
func CoreLibfuncApChange(lib *sierra.ConcreteLibfunc, sizes TypeSizes) []ApChange {
	switch lib.Kind {
	case sierra.LibfuncStorageRead:
		return []ApChange{KnownChange(2)}
	case sierra.LibfuncStorageWrite, sierra.LibfuncCallContract:
		return []ApChange{KnownChange(2), KnownChange(2)}
	case sierra.LibfuncStorageAddressConst, sierra.LibfuncContractAddressConst, sierra.LibfuncFeltConst:
		return []ApChange{KnownChange(0)}
	case sierra.LibfuncStoreTemp:
		if n, ok := sizes.TypeSize(lib.Type); ok {
			return []ApChange{KnownChange(int(n))}
		}
	}
	out := make([]ApChange, len(lib.Signature.Branches))
	for i := range out {
		out[i] = ApChange{Kind: Unknown}
	}
	return out
}

// Equal compares two per-branch ap-change lists.
func Equal(a, b []ApChange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
