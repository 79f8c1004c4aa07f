package bfp

import (
	"math/bits"

	"github.com/pfcm/bfp/sat"
)

// lanes is the scratch state of a kernel before it becomes a block: a true
// exponent, and per lane magnitudes that may not fit in WM+1 bits yet.
type lanes struct {
	e    int
	mag  []uint64
	sign []uint8
}

func newLanes(n, e int) lanes {
	return lanes{
		e:    e,
		mag:  make([]uint64, n),
		sign: make([]uint8, n),
	}
}

// set stores a lane, keeping zeros positive.
func (l *lanes) set(i int, mag uint64, sign uint8) {
	if mag == 0 {
		sign = 0
	}
	l.mag[i], l.sign[i] = mag, sign
}

// setSigned stores a lane from a signed magnitude.
func (l *lanes) setSigned(i int, v int64) {
	if v < 0 {
		l.set(i, uint64(-v), 1)
		return
	}
	l.set(i, uint64(v), 0)
}

// block renormalizes l into a fresh block. If any magnitude is too wide the
// exponent goes up by one and every lane is halved (and saturated, in case
// halving once wasn't enough). Otherwise, if the largest magnitude doesn't
// reach bit WM, every lane is shifted up until it does and the exponent comes
// down to match. Deltas are all zero.
func block[F Format](l lanes) Block[F] {
	var (
		f    F
		wm   = f.MantBits()
		mmax = MantMax[F]()
		out  = NewBlock[F]()
	)
	var top uint64
	for _, m := range l.mag {
		top = max(top, m)
	}
	if top == 0 {
		return out
	}

	e := l.e
	switch msb := bits.Len64(top) - 1; {
	case top > uint64(mmax):
		e++
		for i, m := range l.mag {
			out.Mant[i] = sat.Saturate(sat.RoundShift(m, 1), mmax)
		}
	case msb < wm:
		shl := wm - msb
		e -= shl
		for i, m := range l.mag {
			out.Mant[i] = sat.SatShiftLeft(m, shl, mmax)
		}
	default:
		for i, m := range l.mag {
			out.Mant[i] = uint32(m)
		}
	}

	for i, m := range out.Mant {
		if m != 0 {
			out.Sign[i] = l.sign[i]
		}
	}
	if out.IsZero() {
		return out
	}
	out.Exp = clampExp[F](e)
	return out
}
