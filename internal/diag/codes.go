package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	IOReadFailed      Code = 1001
	IODecodeFailed    Code = 1002
	IOUnknownField    Code = 1003
	IOBadValue        Code = 1004
	IOWriteFailed     Code = 1005
	IOConfigMalformed Code = 1006

	PrgInvalid          Code = 2001
	PrgUnknownType      Code = 2002
	PrgUnknownLibfunc   Code = 2003
	PrgBranchMismatch   Code = 2004
	PrgArgumentMismatch Code = 2005
	PrgUnknownFunction  Code = 2006
	PrgUnreachable      Code = 2007

	SpcUnsupportedID     Code = 3001
	SpcWrongGenericArgs  Code = 3002
	SpcUnsupportedArg    Code = 3003
	SpcInvalidArg        Code = 3004
	SpcMissingTypeInfo   Code = 3005
	SpcInvalidSignature  Code = 3006
	SpcTypeNotStorable   Code = 3007
	SpcDuplicateTypeName Code = 3008

	InvWrongNumberOfArgs Code = 4001
	InvInvalidReference  Code = 4002
	InvInvalidGenericArg Code = 4003
	InvNotImplemented    Code = 4004
	InvUnknownLibfunc    Code = 4005

	RefUnknownVariable   Code = 5001
	RefVariableRedefined Code = 5002
	RefStateMismatch     Code = 5003
	RefApChangeUnknown   Code = 5004
	RefReturnMismatch    Code = 5005

	ArtIncompatible Code = 6001
	ArtCorrupt      Code = 6002
)

var codeDescription = map[Code]string{
	UnknownCode:          "unknown error",
	IOReadFailed:         "cannot read input",
	IODecodeFailed:       "cannot decode input",
	IOUnknownField:       "unknown field in input",
	IOBadValue:           "malformed value",
	IOWriteFailed:        "cannot write output",
	IOConfigMalformed:    "malformed configuration",
	PrgInvalid:           "invalid program",
	PrgUnknownType:       "unknown type",
	PrgUnknownLibfunc:    "unknown libfunc",
	PrgBranchMismatch:    "branch count does not match the libfunc signature",
	PrgArgumentMismatch:  "argument does not match the libfunc signature",
	PrgUnknownFunction:   "unknown function",
	PrgUnreachable:       "statement is never reached",
	SpcUnsupportedID:     "unsupported generic id",
	SpcWrongGenericArgs:  "wrong number of generic arguments",
	SpcUnsupportedArg:    "unsupported generic argument",
	SpcInvalidArg:        "invalid generic argument",
	SpcMissingTypeInfo:   "missing type info",
	SpcInvalidSignature:  "invalid libfunc signature",
	SpcTypeNotStorable:   "type is not storable",
	SpcDuplicateTypeName: "type declared twice",
	InvWrongNumberOfArgs: "wrong number of arguments",
	InvInvalidReference:  "invalid reference expression for argument",
	InvInvalidGenericArg: "invalid generic argument",
	InvNotImplemented:    "libfunc is not implemented",
	InvUnknownLibfunc:    "libfunc has no compiler",
	RefUnknownVariable:   "unknown variable",
	RefVariableRedefined: "variable redefined",
	RefStateMismatch:     "variable locations disagree between incoming branches",
	RefApChangeUnknown:   "ap-change is not statically known",
	RefReturnMismatch:    "returned values do not match the function signature",
	ArtIncompatible:      "artifact was produced by an incompatible compiler",
	ArtCorrupt:           "artifact is corrupt",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PRG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SPC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("INV%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("REF%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("ART%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	if desc, ok := codeDescription[c]; ok {
		return desc
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
