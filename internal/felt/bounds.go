package felt

// AddrBoundBits is the bit width of the addressable range for storage and
// contract addresses: valid constants lie in [0, 2^251).
const AddrBoundBits = 251

var addrBound = Pow2(AddrBoundBits)

// AddrBound returns 2^251.
func AddrBound() Uint { return addrBound }

// InAddrRange reports whether v lies in [0, 2^251).
func InAddrRange(v Int) bool {
	return !v.IsNeg() && v.CmpUint(addrBound) < 0
}

// ShortString encodes an ASCII string as the little-endian integer of its
// bytes. Syscall selectors are derived this way.
func ShortString(s string) Int {
	v, err := FromBytesLE([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}
