package bfp

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/pfcm/bfp/sat"
)

// float32 fields.
const (
	f32MantBits = 23
	f32ExpMask  = 0xff
	f32Bias     = 127
	f32MantMask = 1<<f32MantBits - 1
	f32Implicit = 1 << f32MantBits
)

// underflowShift is the shift at which a quantized mantissa is lost entirely.
const underflowShift = 31

// Encode packs xs into a block. The shared exponent is the largest exponent
// in xs, and every other lane is rounded (to nearest, ties to even) onto that
// scale, so lanes much smaller than the largest quietly become zero.
//
// Zeros and subnormals encode as +0. Infinities and NaNs become sentinel
// lanes; note that their exponent (which is all ones) counts towards the
// block maximum like any other.
//
// If xs is shorter than the block the missing lanes are zero. Encode panics if
// xs is longer.
func Encode[F Format](xs []float32) Block[F] {
	out := NewBlock[F]()
	if len(xs) > len(out.Mant) {
		panic(fmt.Errorf("bfp: %d values for a %d lane block", len(xs), len(out.Mant)))
	}

	emax, found := 0, false
	for _, x := range xs {
		e := int(math.Float32bits(x)>>f32MantBits) & f32ExpMask
		if e == 0 {
			continue
		}
		if e -= f32Bias; !found || e > emax {
			emax, found = e, true
		}
	}
	if !found {
		return out
	}
	out.Exp = clampExp[F](emax)

	var (
		f    F
		wm   = f.MantBits()
		mmax = MantMax[F]()
	)
	for i, x := range xs {
		if x == 0 {
			continue
		}
		u := math.Float32bits(x)
		s := uint8(u >> 31)
		e := int(u>>f32MantBits) & f32ExpMask
		switch e {
		case 0:
			// subnormal, too small for any block to hold.
			continue
		case f32ExpMask:
			out.Sign[i] = s
			if u&f32MantMask == 0 {
				out.Mant[i] = mmax
			} else {
				out.Mant[i] = NaNMant[F]()
			}
			continue
		}
		delta := emax - (e - f32Bias)
		out.Delta[i] = uint32(delta)
		m := quantize(u&f32MantMask|f32Implicit, (f32MantBits-wm)+delta)
		if m == 0 {
			continue
		}
		out.Sign[i] = s
		out.Mant[i] = sat.Saturate(uint64(m), mmax)
	}
	return out
}

// quantize rounds a 24 bit mantissa by shift. Large shifts lose the lane
// completely, negative ones (only possible when WM > 23) widen it.
func quantize(m24 uint32, shift int) uint32 {
	if shift >= underflowShift {
		return 0
	}
	return sat.RoundShift(m24, shift)
}

// EncodeFloats is Encode for any float type. Values are converted to float32
// first.
func EncodeFloats[F Format, T constraints.Float](xs []T) Block[F] {
	fs := make([]float32, len(xs))
	for i, x := range xs {
		fs[i] = float32(x)
	}
	return Encode[F](fs)
}
