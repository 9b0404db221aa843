package felt

import (
	"errors"
	"fmt"
	"strings"
)

var ErrParse = errors.New("invalid numeric format")

// Parse reads a signed decimal, hex (0x), octal (0o) or binary (0b)
// literal. Underscores are accepted as digit separators.
func Parse(s string) (Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Int{}, ErrParse
	}
	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	u, err := ParseUint(s)
	if err != nil {
		return Int{}, err
	}
	if u.IsZero() {
		return Int{}, nil
	}
	return Int{Neg: neg, Limbs: u.Limbs}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Int {
	v, err := Parse(s)
	if err != nil {
		panic(fmt.Errorf("felt: %w", err))
	}
	return v
}

// ParseUint reads an unsigned literal.
func ParseUint(s string) (Uint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Uint{}, ErrParse
	}
	s = strings.ReplaceAll(s, "_", "")

	base := uint32(10)
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base = 16
			s = s[2:]
		case 'b', 'B':
			base = 2
			s = s[2:]
		case 'o', 'O':
			base = 8
			s = s[2:]
		}
	}
	if s == "" {
		return Uint{}, ErrParse
	}

	var out Uint
	for i := range len(s) {
		d, ok := digitValue(s[i], base)
		if !ok {
			return Uint{}, fmt.Errorf("%w: %q", ErrParse, s)
		}
		var err error
		out, err = out.mulAddSmall(base, d)
		if err != nil {
			return Uint{}, err
		}
	}
	return out, nil
}

func digitValue(ch byte, base uint32) (uint32, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		d := uint32(ch - '0')
		return d, d < base
	case base == 16 && ch >= 'a' && ch <= 'f':
		return 10 + uint32(ch-'a'), true
	case base == 16 && ch >= 'A' && ch <= 'F':
		return 10 + uint32(ch-'A'), true
	default:
		return 0, false
	}
}
