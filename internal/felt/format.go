package felt

import (
	"fmt"
	"strings"
)

// String renders the magnitude in decimal.
func (u Uint) String() string {
	limbs := trimLimbs(u.Limbs)
	if len(limbs) == 0 {
		return "0"
	}

	const base = uint32(1_000_000_000)

	cur := Uint{Limbs: limbs}
	var parts []uint32
	for !cur.IsZero() {
		q, r, err := cur.divModSmall(base)
		if err != nil {
			return "<format-error>"
		}
		parts = append(parts, r)
		cur = q
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", parts[len(parts)-1])
	for i := len(parts) - 2; i >= 0; i-- {
		fmt.Fprintf(&sb, "%09d", parts[i])
	}
	return sb.String()
}

// String renders the value in decimal with a leading '-' when negative.
func (i Int) String() string {
	s := i.Abs().String()
	if i.IsNeg() {
		return "-" + s
	}
	return s
}
