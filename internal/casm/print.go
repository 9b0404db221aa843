package casm

import (
	"fmt"
	"io"
	"strings"
)

func (h Hint) String() string {
	switch h.Kind {
	case HintSystemCall:
		return fmt.Sprintf("%%{ syscall_handler.syscall(syscall_ptr=%s) %%}", h.System)
	}
	return fmt.Sprintf("%%{ hint(kind=%d) %%}", h.Kind)
}

func (in Instruction) String() string {
	var sb strings.Builder
	switch in.Kind {
	case InstrAssertEq:
		fmt.Fprintf(&sb, "%s = %s", in.AssertEq.Lhs, in.AssertEq.Rhs)
	case InstrJnz:
		fmt.Fprintf(&sb, "jmp rel %s if %s != 0", in.Jnz.Target, in.Jnz.Condition)
	case InstrJump:
		if in.Jump.Relative {
			fmt.Fprintf(&sb, "jmp rel %s", in.Jump.Target)
		} else {
			fmt.Fprintf(&sb, "jmp abs %s", in.Jump.Target)
		}
	case InstrAddAp:
		fmt.Fprintf(&sb, "ap += %s", in.AddAp.Operand)
	case InstrRet:
		sb.WriteString("ret")
	default:
		fmt.Fprintf(&sb, "<instr kind=%d>", in.Kind)
	}
	if in.IncAp {
		sb.WriteString(", ap++")
	}
	sb.WriteString(";")
	return sb.String()
}

// Dump writes one instruction per line, hints on their own lines above
// the instruction they belong to.
func Dump(w io.Writer, instrs []Instruction) error {
	for _, in := range instrs {
		for _, h := range in.Hints {
			if _, err := fmt.Fprintln(w, h); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, in); err != nil {
			return err
		}
	}
	return nil
}
