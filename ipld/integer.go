package ipld

import (
	"math"
	"math/big"
	"strconv"
)

// Integer holds any integer in the range [-(2^64), 2^64-1], which is the
// union of CBOR major types 0 and 1.
//
// It mirrors the wire form: a non-negative value n is stored as
// (false, n) and a negative value is stored as (true, m) meaning -1-m.
// The zero value is 0. Integers are comparable with ==.
type Integer struct {
	negative  bool
	magnitude uint64
}

// NewInt returns the Integer for n.
func NewInt(n int64) Integer {
	if n < 0 {
		// -1-n is non-negative and fits in uint64 for every negative int64.
		return Integer{negative: true, magnitude: uint64(-(n + 1))}
	}
	return Integer{magnitude: uint64(n)}
}

// NewUint returns the Integer for n.
func NewUint(n uint64) Integer {
	return Integer{magnitude: n}
}

// NewNegative returns the Integer -1-m, the value of a CBOR major type 1
// item with argument m.
func NewNegative(m uint64) Integer {
	return Integer{negative: true, magnitude: m}
}

// IsNegative reports whether i < 0.
func (i Integer) IsNegative() bool { return i.negative }

// Magnitude returns the raw CBOR argument: i itself when non-negative,
// -1-i when negative.
func (i Integer) Magnitude() uint64 { return i.magnitude }

// Int64 returns i as an int64. ok is false when i does not fit.
func (i Integer) Int64() (n int64, ok bool) {
	if i.magnitude > math.MaxInt64 {
		return 0, false
	}
	if i.negative {
		return -1 - int64(i.magnitude), true
	}
	return int64(i.magnitude), true
}

// Uint64 returns i as a uint64. ok is false when i is negative.
func (i Integer) Uint64() (n uint64, ok bool) {
	if i.negative {
		return 0, false
	}
	return i.magnitude, true
}

// BigInt returns i as a newly allocated big.Int.
func (i Integer) BigInt() *big.Int {
	b := new(big.Int).SetUint64(i.magnitude)
	if i.negative {
		b.Neg(b)
		b.Sub(b, big.NewInt(1))
	}
	return b
}

// IntegerFromBig converts b. ok is false when b is outside the Integer range.
func IntegerFromBig(b *big.Int) (Integer, bool) {
	if b.Sign() >= 0 {
		if !b.IsUint64() {
			return Integer{}, false
		}
		return NewUint(b.Uint64()), true
	}
	// m = -1 - b
	m := new(big.Int).Neg(b)
	m.Sub(m, big.NewInt(1))
	if !m.IsUint64() {
		return Integer{}, false
	}
	return NewNegative(m.Uint64()), true
}

// Cmp compares i and j and returns -1, 0 or +1.
func (i Integer) Cmp(j Integer) int {
	switch {
	case i.negative && !j.negative:
		return -1
	case !i.negative && j.negative:
		return 1
	}
	c := 0
	switch {
	case i.magnitude < j.magnitude:
		c = -1
	case i.magnitude > j.magnitude:
		c = 1
	}
	if i.negative {
		// Larger magnitude means a smaller negative number.
		return -c
	}
	return c
}

func (i Integer) String() string {
	if !i.negative {
		return strconv.FormatUint(i.magnitude, 10)
	}
	if n, ok := i.Int64(); ok {
		return strconv.FormatInt(n, 10)
	}
	return i.BigInt().String()
}
