package bfp

import (
	"github.com/pfcm/bfp/sat"
)

// Add returns a + b. The operand with the smaller exponent is rounded onto the
// larger exponent's scale before the lanes are added.
func Add[F Format](a, b Block[F]) Block[F] {
	ea, eb := trueExp[F](a.Exp), trueExp[F](b.Exp)
	e := max(ea, eb)
	sa, sb := e-ea, e-eb

	l := newLanes(len(a.Mant), e)
	for i := range a.Mant {
		ma := int64(sat.RoundShift(a.Mant[i], sa))
		mb := int64(sat.RoundShift(b.Mant[i], sb))
		if a.Sign[i] == 1 {
			ma = -ma
		}
		if b.Sign[i] == 1 {
			mb = -mb
		}
		l.setSigned(i, ma+mb)
	}
	return block[F](l)
}

// Sub returns a - b.
func Sub[F Format](a, b Block[F]) Block[F] {
	return Add(a, b.Negate())
}

// Mul returns a * b, lane by lane. The exponents simply add.
func Mul[F Format](a, b Block[F]) Block[F] {
	var f F
	wm := f.MantBits()
	l := newLanes(len(a.Mant), trueExp[F](a.Exp)+trueExp[F](b.Exp))
	for i := range a.Mant {
		p := uint64(a.Mant[i]) * uint64(b.Mant[i])
		l.set(i, sat.RoundShift(p, wm), a.Sign[i]^b.Sign[i])
	}
	return block[F](l)
}

// Rcp returns 1/b, lane by lane. A zero lane has no reciprocal; it gets the
// largest magnitude instead, keeping its sign. As a fresh lane that reads back
// as infinity, unless renormalization halves it.
func Rcp[F Format](b Block[F]) Block[F] {
	var (
		f    F
		wm   = f.MantBits()
		one  = uint64(1) << (2 * wm)
		mmax = MantMax[F]()
	)
	l := newLanes(len(b.Mant), -trueExp[F](b.Exp))
	for i, m := range b.Mant {
		if m == 0 {
			l.set(i, uint64(mmax), b.Sign[i])
			continue
		}
		l.set(i, sat.RoundDiv(one, uint64(m)), b.Sign[i])
	}
	return block[F](l)
}

// Div returns a / b, computed as a * (1/b).
func Div[F Format](a, b Block[F]) Block[F] {
	return Mul(a, Rcp(b))
}
