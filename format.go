// package bfp implements block floating-point numbers: groups of float32
// values that share a single exponent, each lane keeping its own sign and a
// short rounded mantissa. Blocks can be added, subtracted, multiplied and
// divided without going back to float32.
//
// A block's shape is fixed by its Format: the number of exponent bits WE, the
// number of mantissa bits WM and the number of lanes. Formats are types, so
// blocks of different shapes can't be mixed by accident:
//
//	a := bfp.Encode[bfp.E5M7](xs)
//	b := bfp.Encode[bfp.E5M7](ys)
//	sum := bfp.Decode(bfp.Add(a, b))
//
// None of the arithmetic can fail. Exponents that don't fit are clamped,
// mantissas that overflow renormalize the whole block, and division by zero
// saturates.
package bfp

import (
	"fmt"

	"github.com/pfcm/bfp/sat"
)

// Format describes a block floating-point number system. Implementations are
// expected to be zero size types returning constants.
type Format interface {
	// ExpBits is WE, the width of the shared biased exponent.
	ExpBits() int
	// MantBits is WM, the number of fractional mantissa bits. Lane
	// magnitudes have WM+1 bits: the leading one is stored explicitly.
	MantBits() int
	// Lanes is the number of values in each block.
	Lanes() int
}

// E4M5 has 4 exponent bits, 5 mantissa bits and 16 lanes.
type E4M5 struct{}

func (E4M5) ExpBits() int  { return 4 }
func (E4M5) MantBits() int { return 5 }
func (E4M5) Lanes() int    { return 16 }

// E5M7 has 5 exponent bits, 7 mantissa bits and 16 lanes.
type E5M7 struct{}

func (E5M7) ExpBits() int  { return 5 }
func (E5M7) MantBits() int { return 7 }
func (E5M7) Lanes() int    { return 16 }

// E8M23 keeps as many mantissa bits as a float32, with 16 lanes.
type E8M23 struct{}

func (E8M23) ExpBits() int  { return 8 }
func (E8M23) MantBits() int { return 23 }
func (E8M23) Lanes() int    { return 16 }

// E8M24 has one mantissa bit more than a float32 and 8 lanes. Encoding into it
// shifts mantissas left rather than rounding them.
type E8M24 struct{}

func (E8M24) ExpBits() int  { return 8 }
func (E8M24) MantBits() int { return 24 }
func (E8M24) Lanes() int    { return 8 }

const (
	maxExpBits  = 16
	maxMantBits = 30
)

// Validate reports whether F describes a usable format. Magnitudes are held
// in 32 bits, so WM+1 must leave room for the sign of an intermediate sum.
func Validate[F Format]() error {
	var f F
	if we := f.ExpBits(); we < 1 || we > maxExpBits {
		return fmt.Errorf("%T: exponent bits %d not in [1, %d]", f, we, maxExpBits)
	}
	if wm := f.MantBits(); wm < 1 || wm > maxMantBits {
		return fmt.Errorf("%T: mantissa bits %d not in [1, %d]", f, wm, maxMantBits)
	}
	if n := f.Lanes(); n < 1 {
		return fmt.Errorf("%T: %d lanes", f, n)
	}
	return nil
}

// Bias is the constant added to a true exponent to store it: 2^(WE-1) - 1.
func Bias[F Format]() int {
	var f F
	return 1<<(f.ExpBits()-1) - 1
}

// ExpMax is the largest biased exponent, 2^WE - 1.
func ExpMax[F Format]() uint32 {
	var f F
	return 1<<f.ExpBits() - 1
}

// MantMax is the largest lane magnitude, 2^(WM+1) - 1. As a fresh lane with a
// zero delta it also means infinity.
func MantMax[F Format]() uint32 {
	var f F
	return 1<<(f.MantBits()+1) - 1
}

// NaNMant is the lane magnitude that, with a zero delta, means NaN.
func NaNMant[F Format]() uint32 {
	return MantMax[F]() - 1
}

// Params summarises F.
type Params struct {
	Name  string
	WE    int
	WM    int
	Lanes int
	Bias  int
}

func (p Params) String() string {
	return fmt.Sprintf("%s(we=%d wm=%d n=%d bias=%d)", p.Name, p.WE, p.WM, p.Lanes, p.Bias)
}

// ParamsOf returns the parameters of F.
func ParamsOf[F Format]() Params {
	var f F
	return Params{
		Name:  formatName(f),
		WE:    f.ExpBits(),
		WM:    f.MantBits(),
		Lanes: f.Lanes(),
		Bias:  Bias[F](),
	}
}

func formatName(f Format) string {
	if s, ok := f.(fmt.Stringer); ok {
		return s.String()
	}
	name := fmt.Sprintf("%T", f)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

// clampExp turns a true exponent into a biased one, saturating at the ends of
// the representable range.
func clampExp[F Format](e int) uint32 {
	return uint32(sat.Clamp(e+Bias[F](), 0, int(ExpMax[F]())))
}

// trueExp is the unbiased exponent of a stored one.
func trueExp[F Format](exp uint32) int {
	return int(exp) - Bias[F]()
}
