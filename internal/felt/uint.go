package felt

import (
	"errors"
	"math/bits"
)

// MaxLimbs bounds the size of any value handled by this package. Field
// elements never need more than 8 limbs; the slack keeps intermediate
// products of parsing and shifting cheap to validate.
const MaxLimbs = 64

var (
	// ErrMaxLimbs indicates the numeric size limit was exceeded.
	ErrMaxLimbs = errors.New("numeric size limit exceeded")
	// ErrDivByZero indicates an attempt to divide by zero.
	ErrDivByZero = errors.New("division by zero")
	ErrUnderflow = errors.New("unsigned underflow")
)

// Uint is an arbitrary precision unsigned integer.
type Uint struct {
	// Limbs are base-2^32 little-endian (Limbs[0] is least significant).
	//
	// Canonical zero is represented as nil/empty slice.
	Limbs []uint32
}

// UintFromUint64 creates a Uint from a uint64.
func UintFromUint64(v uint64) Uint {
	if v == 0 {
		return Uint{}
	}
	lo := uint32(v)       //nolint:gosec // G115: truncation is intentional (low limb).
	hi := uint32(v >> 32) //nolint:gosec // G115: truncation is intentional (high limb).
	if hi == 0 {
		return Uint{Limbs: []uint32{lo}}
	}
	return Uint{Limbs: []uint32{lo, hi}}
}

// UintFromBytesLE interprets b as a little-endian magnitude.
func UintFromBytesLE(b []byte) (Uint, error) {
	if (len(b)+3)/4 > MaxLimbs {
		return Uint{}, ErrMaxLimbs
	}
	out := make([]uint32, (len(b)+3)/4)
	for i, c := range b {
		out[i/4] |= uint32(c) << (8 * (i % 4))
	}
	return Uint{Limbs: trimLimbs(out)}, nil
}

// Pow2 returns 2^n.
func Pow2(n int) Uint {
	out, err := UintFromUint64(1).Shl(n)
	if err != nil {
		panic(err)
	}
	return out
}

// IsZero reports whether the value is zero.
func (u Uint) IsZero() bool {
	return len(trimLimbs(u.Limbs)) == 0
}

func (u Uint) BitLen() int {
	return bitLenLimbs(u.Limbs)
}

// Cmp compares two values and returns -1, 0 or 1.
func (u Uint) Cmp(v Uint) int {
	return cmpLimbs(u.Limbs, v.Limbs)
}

// Uint64 converts the value to uint64 if it fits.
func (u Uint) Uint64() (uint64, bool) {
	limbs := trimLimbs(u.Limbs)
	switch len(limbs) {
	case 0:
		return 0, true
	case 1:
		return uint64(limbs[0]), true
	case 2:
		return uint64(limbs[0]) | (uint64(limbs[1]) << 32), true
	default:
		return 0, false
	}
}

// Add returns u + v.
func (u Uint) Add(v Uint) (Uint, error) {
	al := trimLimbs(u.Limbs)
	bl := trimLimbs(v.Limbs)
	n := max(len(al), len(bl))
	if n == 0 {
		return Uint{}, nil
	}

	out := make([]uint32, n+1)
	var carry uint64
	for i := range n {
		var av, bv uint64
		if i < len(al) {
			av = uint64(al[i])
		}
		if i < len(bl) {
			bv = uint64(bl[i])
		}
		sum := av + bv + carry
		out[i] = uint32(sum) //nolint:gosec // G115: truncation is intentional (limb arithmetic).
		carry = sum >> 32
	}
	out[n] = uint32(carry) //nolint:gosec // G115: truncation is intentional (limb arithmetic).
	out = trimLimbs(out)
	if len(out) > MaxLimbs {
		return Uint{}, ErrMaxLimbs
	}
	return Uint{Limbs: out}, nil
}

// Sub returns u - v, failing with ErrUnderflow when v > u.
func (u Uint) Sub(v Uint) (Uint, error) {
	if cmpLimbs(u.Limbs, v.Limbs) < 0 {
		return Uint{}, ErrUnderflow
	}
	al := trimLimbs(u.Limbs)
	bl := trimLimbs(v.Limbs)
	if len(bl) == 0 {
		return Uint{Limbs: al}, nil
	}
	out := make([]uint32, len(al))
	copy(out, al)
	subInPlace(out, bl)
	return Uint{Limbs: trimLimbs(out)}, nil
}

func (u Uint) mulAddSmall(m, a uint32) (Uint, error) {
	limbs := trimLimbs(u.Limbs)
	out := make([]uint32, len(limbs)+1)
	carry := uint64(a)
	for i := range limbs {
		prod := uint64(limbs[i])*uint64(m) + carry
		out[i] = uint32(prod) //nolint:gosec // G115: truncation is intentional (limb arithmetic).
		carry = prod >> 32
	}
	out[len(limbs)] = uint32(carry) //nolint:gosec // G115: truncation is intentional (limb arithmetic).
	out = trimLimbs(out)
	if len(out) > MaxLimbs {
		return Uint{}, ErrMaxLimbs
	}
	return Uint{Limbs: out}, nil
}

func (u Uint) divModSmall(d uint32) (q Uint, r uint32, err error) {
	if d == 0 {
		return Uint{}, 0, ErrDivByZero
	}
	limbs := trimLimbs(u.Limbs)
	if len(limbs) == 0 {
		return Uint{}, 0, nil
	}

	out := make([]uint32, len(limbs))
	var rem uint64
	for i := len(limbs) - 1; i >= 0; i-- {
		cur := (rem << 32) | uint64(limbs[i])
		out[i] = uint32(cur / uint64(d)) //nolint:gosec // G115: quotient fits in uint32.
		rem = cur % uint64(d)
	}
	return Uint{Limbs: trimLimbs(out)}, uint32(rem), nil //nolint:gosec // G115: remainder fits in uint32.
}

// Shl returns u << n.
func (u Uint) Shl(n int) (Uint, error) {
	if n < 0 {
		return Uint{}, errors.New("negative shift")
	}
	limbs := trimLimbs(u.Limbs)
	if len(limbs) == 0 || n == 0 {
		return Uint{Limbs: limbs}, nil
	}
	wordShift := n / 32
	bitShift := n % 32
	if len(limbs)+wordShift > MaxLimbs {
		return Uint{}, ErrMaxLimbs
	}

	out := make([]uint32, len(limbs)+wordShift+1)
	if bitShift == 0 {
		copy(out[wordShift:], limbs)
		return Uint{Limbs: trimLimbs(out)}, nil
	}

	var carry uint32
	for i := range limbs {
		v := limbs[i]
		out[i+wordShift] = (v << bitShift) | carry
		carry = v >> (32 - bitShift)
	}
	out[len(limbs)+wordShift] = carry
	return Uint{Limbs: trimLimbs(out)}, nil
}

func trimLimbs(limbs []uint32) []uint32 {
	for len(limbs) > 0 && limbs[len(limbs)-1] == 0 {
		limbs = limbs[:len(limbs)-1]
	}
	if len(limbs) == 0 {
		return nil
	}
	return limbs
}

func bitLenLimbs(limbs []uint32) int {
	limbs = trimLimbs(limbs)
	if len(limbs) == 0 {
		return 0
	}
	ms := limbs[len(limbs)-1]
	return (len(limbs)-1)*32 + (32 - bits.LeadingZeros32(ms))
}

func cmpLimbs(a, b []uint32) int {
	a = trimLimbs(a)
	b = trimLimbs(b)
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	for i := len(a) - 1; i >= 0; i-- {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

func subInPlace(dst, sub []uint32) {
	var borrow uint64
	for i := range dst {
		av := uint64(dst[i])
		bv := uint64(0)
		if i < len(sub) {
			bv = uint64(sub[i])
		}
		tmp := av - bv - borrow
		dst[i] = uint32(tmp) //nolint:gosec // G115: truncation is intentional (limb arithmetic).
		if av < bv+borrow {
			borrow = 1
		} else {
			borrow = 0
		}
	}
}
