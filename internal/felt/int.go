package felt

// Int is an arbitrary precision signed integer. Immediates and generic
// value arguments are carried as Int; the field reduction is left to the
// encoder.
type Int struct {
	Neg bool
	// Limbs are base-2^32 little-endian magnitude (Limbs[0] is least significant).
	//
	// Canonical zero is represented as Neg=false and nil/empty Limbs.
	Limbs []uint32
}

// FromInt64 creates an Int from an int64.
func FromInt64(v int64) Int {
	if v == 0 {
		return Int{}
	}
	if v > 0 {
		return Int{Limbs: UintFromUint64(uint64(v)).Limbs}
	}
	u := uint64(-(v + 1)) //nolint:gosec // G115: -(v+1) is non-negative and fits in uint64 here.
	u++
	return Int{Neg: true, Limbs: UintFromUint64(u).Limbs}
}

// FromUint wraps a non-negative magnitude.
func FromUint(u Uint) Int {
	limbs := trimLimbs(u.Limbs)
	if len(limbs) == 0 {
		return Int{}
	}
	return Int{Limbs: limbs}
}

// FromBytesLE interprets b as a little-endian non-negative integer.
func FromBytesLE(b []byte) (Int, error) {
	u, err := UintFromBytesLE(b)
	if err != nil {
		return Int{}, err
	}
	return FromUint(u), nil
}

// IsZero reports whether the integer is zero.
func (i Int) IsZero() bool {
	return len(trimLimbs(i.Limbs)) == 0
}

// IsNeg reports whether the integer is strictly negative.
func (i Int) IsNeg() bool {
	return i.Neg && !i.IsZero()
}

// Abs returns the magnitude.
func (i Int) Abs() Uint {
	return Uint{Limbs: trimLimbs(i.Limbs)}
}

// Negated returns -i.
func (i Int) Negated() Int {
	if i.IsZero() {
		return Int{}
	}
	return Int{Neg: !i.Neg, Limbs: trimLimbs(i.Limbs)}
}

// Cmp compares two integers and returns -1, 0 or 1.
func (i Int) Cmp(j Int) int {
	ia := trimLimbs(i.Limbs)
	ja := trimLimbs(j.Limbs)
	switch {
	case len(ia) == 0 && len(ja) == 0:
		return 0
	case i.IsNeg() != j.IsNeg():
		if i.IsNeg() {
			return -1
		}
		return 1
	default:
		cmp := cmpLimbs(ia, ja)
		if i.IsNeg() {
			return -cmp
		}
		return cmp
	}
}

// CmpUint compares i against a non-negative bound.
func (i Int) CmpUint(u Uint) int {
	return i.Cmp(FromUint(u))
}

// Equal reports whether both integers hold the same value.
func (i Int) Equal(j Int) bool {
	return i.Cmp(j) == 0
}

// Int64 converts the value to int64 if possible.
func (i Int) Int64() (int64, bool) {
	mag, ok := Uint{Limbs: trimLimbs(i.Limbs)}.Uint64()
	if !ok {
		return 0, false
	}
	if !i.Neg {
		if mag > uint64(^uint64(0)>>1) {
			return 0, false
		}
		return int64(mag), true
	}
	if mag > uint64(^uint64(0)>>1)+1 {
		return 0, false
	}
	if mag == uint64(^uint64(0)>>1)+1 {
		return -1 << 63, true
	}
	return -int64(mag), true //nolint:gosec // G115: bounded above.
}

// Add returns i + j.
func (i Int) Add(j Int) (Int, error) {
	ia := i.Abs()
	ja := j.Abs()

	if i.IsNeg() == j.IsNeg() {
		sum, err := ia.Add(ja)
		if err != nil {
			return Int{}, err
		}
		if sum.IsZero() {
			return Int{}, nil
		}
		return Int{Neg: i.IsNeg(), Limbs: sum.Limbs}, nil
	}

	switch cmp := ia.Cmp(ja); {
	case cmp == 0:
		return Int{}, nil
	case cmp > 0:
		diff, err := ia.Sub(ja)
		if err != nil {
			return Int{}, err
		}
		return Int{Neg: i.IsNeg(), Limbs: diff.Limbs}, nil
	default:
		diff, err := ja.Sub(ia)
		if err != nil {
			return Int{}, err
		}
		return Int{Neg: j.IsNeg(), Limbs: diff.Limbs}, nil
	}
}

// Sub returns i - j.
func (i Int) Sub(j Int) (Int, error) {
	return i.Add(j.Negated())
}
