package sierra

import (
	"fmt"
	"strings"

	"sierracasm/internal/felt"
)

// GenericTypeID names a family of types, e.g. "Array".
type GenericTypeID string

// GenericLibfuncID names a family of libfuncs, e.g. "storage_read_syscall".
type GenericLibfuncID string

// ConcreteTypeID identifies a specialized type inside a Registry.
type ConcreteTypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID ConcreteTypeID = 0

// ConcreteLibfuncID is the user-facing name of a declared libfunc.
type ConcreteLibfuncID string

// VarID names an IR variable.
type VarID uint64

// StatementIdx is the index of a statement in a program.
type StatementIdx int

// GenericArgKind distinguishes generic argument shapes.
type GenericArgKind uint8

const (
	// ArgType is a concrete type argument.
	ArgType GenericArgKind = iota + 1
	// ArgValue is an integer value argument.
	ArgValue
)

// GenericArg is a type or value argument of a generic type or libfunc.
type GenericArg struct {
	Kind  GenericArgKind
	Type  ConcreteTypeID
	Value felt.Int
}

// TypeArg builds a type argument.
func TypeArg(id ConcreteTypeID) GenericArg {
	return GenericArg{Kind: ArgType, Type: id}
}

// ValueArg builds a value argument.
func ValueArg(v felt.Int) GenericArg {
	return GenericArg{Kind: ArgValue, Value: v}
}

func (a GenericArg) key() string {
	switch a.Kind {
	case ArgType:
		return fmt.Sprintf("t%d", a.Type)
	case ArgValue:
		return "v" + a.Value.String()
	default:
		return "?"
	}
}

// LongID is the structural identity of a concrete type.
type LongID struct {
	Generic GenericTypeID
	Args    []GenericArg
}

func (l LongID) key() string {
	if len(l.Args) == 0 {
		return string(l.Generic)
	}
	parts := make([]string, 0, len(l.Args))
	for _, a := range l.Args {
		parts = append(parts, a.key())
	}
	return string(l.Generic) + "<" + strings.Join(parts, ",") + ">"
}
