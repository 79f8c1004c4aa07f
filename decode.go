package bfp

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Float32 decodes lane i of b.
func (b Block[F]) Float32(i int) float32 {
	var f F
	m, d := b.Mant[i], b.Delta[i]
	if d == 0 {
		switch m {
		case MantMax[F]():
			return float32(math.Inf(1 - 2*int(b.Sign[i])))
		case NaNMant[F]():
			return float32(math.NaN())
		}
	}
	if b.Exp == 0 && m == 0 {
		return 0
	}
	// (m << d) / 2^wm * 2^(exp - d) is m * 2^(exp - wm); the delta cancels,
	// so a large one can't overflow. m has at most 31 bits, so this is exact in
	// a float64 and only rounds on the way to float32.
	v := math.Ldexp(float64(m), trueExp[F](b.Exp)-f.MantBits())
	if b.Sign[i] == 1 {
		v = -v
	}
	return float32(v)
}

// Decode unpacks every lane of b.
func Decode[F Format](b Block[F]) []float32 {
	out := make([]float32, len(b.Mant))
	for i := range out {
		out[i] = b.Float32(i)
	}
	return out
}

// DecodeInto decodes the first len(dst) lanes of b into dst, returning the
// number of lanes written.
func DecodeInto[F Format, T constraints.Float](dst []T, b Block[F]) int {
	n := min(len(dst), len(b.Mant))
	for i := 0; i < n; i++ {
		dst[i] = T(b.Float32(i))
	}
	return n
}
