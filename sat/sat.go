// package sat contains the integer rounding and saturation primitives the
// block floating-point kernels are built from. Like most of the hot helpers in
// this module, a couple of them have more than one implementation: the
// exported function uses whichever did best in sat_test.go's benchmarks. The
// variants are kept so the benchmarks (and the agreement tests) have something
// to compare against.
package sat

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// width returns the number of bits in T.
func width[T constraints.Unsigned]() int {
	return bits.Len64(uint64(^T(0)))
}

// RoundShift shifts x right by shift bits, rounding to nearest with ties to
// even. A zero or negative shift is a left shift by -shift. Shifting by the
// width of T or more (in either direction) returns 0.
//
//	RoundShift(0b1010, 2) == 2 // 2.5 -> 2
//	RoundShift(0b1110, 2) == 4 // 3.5 -> 4
//	RoundShift(0b1011, 2) == 3 // 2.75 -> 3
func RoundShift[T constraints.Unsigned](x T, shift int) T {
	return roundShiftMask(x, shift)
}

// roundShiftBranch is the obvious version: split into quotient and remainder
// and compare the remainder against one half.
func roundShiftBranch[T constraints.Unsigned](x T, shift int) T {
	w := width[T]()
	if shift <= 0 {
		if -shift >= w {
			return 0
		}
		return x << -shift
	}
	if shift >= w {
		return 0
	}
	q := x >> shift
	rem := x & (T(1)<<shift - 1)
	half := T(1) << (shift - 1)
	if rem > half || (rem == half && q&1 == 1) {
		q++
	}
	return q
}

// roundShiftMask looks only at the bit just below the cut (the guard bit) and
// whether anything below that is set (sticky). Rounding up happens when the
// guard bit is set and either sticky or the lowest kept bit is set, which is
// the same condition as roundShiftBranch without the second comparison.
func roundShiftMask[T constraints.Unsigned](x T, shift int) T {
	w := width[T]()
	if shift <= 0 {
		if -shift >= w {
			return 0
		}
		return x << -shift
	}
	if shift >= w {
		return 0
	}
	q := x >> shift
	guard := (x >> (shift - 1)) & 1
	sticky := x&(T(1)<<(shift-1)-1) != 0
	if guard == 1 && (sticky || q&1 == 1) {
		q++
	}
	return q
}

// RoundDiv divides num by den, rounding to nearest with ties to even. den must
// not be zero.
func RoundDiv(num, den uint64) uint64 {
	q, rem := num/den, num%den
	// rem < den, so doubling it can only overflow when den is above 2^63,
	// in which case rem > den/2 exactly when it is >= 2^63.
	if rem >= 1<<63 {
		return q + 1
	}
	if r2 := rem << 1; r2 > den || (r2 == den && q&1 == 1) {
		q++
	}
	return q
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Saturate returns x, or limit if x is larger. The result always fits in a
// uint32 when limit does.
func Saturate(x uint64, limit uint32) uint32 {
	return uint32(min(x, uint64(limit)))
}

// saturateBranch is Saturate with an explicit comparison.
func saturateBranch(x uint64, limit uint32) uint32 {
	if x > uint64(limit) {
		return limit
	}
	return uint32(x)
}

// SatShiftLeft shifts x left by n bits, saturating at limit instead of
// losing the high bits.
func SatShiftLeft(x uint64, n int, limit uint32) uint32 {
	if x == 0 {
		return 0
	}
	if n >= 64 || bits.Len64(x)+n > 64 {
		return limit
	}
	return Saturate(x<<n, limit)
}
