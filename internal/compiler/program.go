package compiler

import (
	"io"

	"sierracasm/internal/casm"
)

// StatementDebug maps a statement to the code it produced.
type StatementDebug struct {
	Statement    int    `msgpack:"statement"`
	Libfunc      string `msgpack:"libfunc,omitempty"`
	Offset       int    `msgpack:"offset"`
	Instructions int    `msgpack:"instructions"`
}

// Debug is the side information kept next to the compiled code.
type Debug struct {
	Statements []StatementDebug `msgpack:"statements"`
}

// Program is a compiled program.
type Program struct {
	Instructions []casm.Instruction `msgpack:"instructions"`
	// StatementOffsets holds the program counter of every statement's
	// first instruction, plus the total size as its last element.
	StatementOffsets []int `msgpack:"statement_offsets"`
	Debug            Debug `msgpack:"debug"`
}

// Size is the encoded size of the program in words.
func (p *Program) Size() int {
	if p == nil || len(p.StatementOffsets) == 0 {
		return 0
	}
	return p.StatementOffsets[len(p.StatementOffsets)-1]
}

// Dump renders the program as assembly text.
func (p *Program) Dump(w io.Writer) error {
	return casm.Dump(w, p.Instructions)
}
