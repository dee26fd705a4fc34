// Package fixp provides saturating fixed-point arithmetic on unsigned
// 64-bit values. Rates and ratios use basis points (1 bp = 0.01%), so a
// full scale is 10000.
package fixp

import "math/bits"

// ScaleBP is the basis-point full scale: 10000 bp = 100%.
const ScaleBP uint64 = 10000

// SatAdd returns a+b, saturating at the maximum uint64.
func SatAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}

// SatSub returns a-b, clamped at zero.
func SatSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// SatMul returns a*b, saturating at the maximum uint64.
func SatMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}

// MulDiv returns a*b/den using 128-bit intermediate precision.
// Saturates when the quotient does not fit in 64 bits. den must be nonzero.
func MulDiv(a, b, den uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, den)
	return q
}

// ApplyBP scales v by rate basis points: v * rate / 10000.
func ApplyBP(v, rate uint64) uint64 {
	return MulDiv(v, rate, ScaleBP)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min returns the smaller of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
