package bfp

import (
	"fmt"
	"strings"
)

// Block is a group of Lanes() values sharing the exponent Exp. Lane i holds
// the value
//
//	(-1)^Sign[i] * Mant[i] / 2^WM * 2^(Exp - bias)
//
// Delta[i] is how far below the block's largest exponent lane i was when it
// was encoded. Blocks produced by arithmetic always have zero deltas. A lane
// with a zero delta and a magnitude of MantMax or MantMax-1 decodes as
// infinity or NaN respectively.
//
// Blocks are values: nothing in this package modifies a block it was given.
// The lane slices always have length Lanes().
type Block[F Format] struct {
	Exp   uint32
	Sign  []uint8
	Mant  []uint32
	Delta []uint32
}

// NewBlock returns the canonical zero block.
func NewBlock[F Format]() Block[F] {
	var f F
	n := f.Lanes()
	return Block[F]{
		Sign:  make([]uint8, n),
		Mant:  make([]uint32, n),
		Delta: make([]uint32, n),
	}
}

// Lanes returns the number of lanes in b.
func (b Block[F]) Lanes() int {
	var f F
	return f.Lanes()
}

// Clone returns a deep copy of b.
func (b Block[F]) Clone() Block[F] {
	c := NewBlock[F]()
	c.Exp = b.Exp
	copy(c.Sign, b.Sign)
	copy(c.Mant, b.Mant)
	copy(c.Delta, b.Delta)
	return c
}

// Negate flips the sign of every nonzero lane. Zero lanes stay +0.
func (b Block[F]) Negate() Block[F] {
	c := b.Clone()
	for i, m := range c.Mant {
		if m == 0 {
			c.Sign[i] = 0
		} else {
			c.Sign[i] ^= 1
		}
	}
	return c
}

// IsZero reports whether every lane of b is zero.
func (b Block[F]) IsZero() bool {
	for _, m := range b.Mant {
		if m != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether b and o have identical fields.
func (b Block[F]) Equal(o Block[F]) bool {
	if b.Exp != o.Exp {
		return false
	}
	for i := range b.Mant {
		if b.Sign[i] != o.Sign[i] || b.Mant[i] != o.Mant[i] || b.Delta[i] != o.Delta[i] {
			return false
		}
	}
	return true
}

// MaxDelta is the largest delta Encode can produce: the distance from an
// infinity's exponent field (2^7) down to the smallest normal float32 (2^-126).
const MaxDelta = 128 + 126

// Check verifies that b is well formed: the lane slices have the right
// length, magnitudes fit in WM+1 bits, zeros are positive, deltas are at
// most MaxDelta, an all-zero block has a zero exponent and the exponent fits
// in WE bits. The arithmetic never produces a block that fails Check; it is
// for blocks from elsewhere.
func (b Block[F]) Check() error {
	var f F
	n := f.Lanes()
	if len(b.Sign) != n || len(b.Mant) != n || len(b.Delta) != n {
		return fmt.Errorf("lane count: sign %d, mant %d, delta %d, want %d",
			len(b.Sign), len(b.Mant), len(b.Delta), n)
	}
	if b.Exp > ExpMax[F]() {
		return fmt.Errorf("exponent %d does not fit in %d bits", b.Exp, f.ExpBits())
	}
	mmax := MantMax[F]()
	for i := range b.Mant {
		if b.Mant[i] > mmax {
			return fmt.Errorf("lane %d: magnitude %d above %d", i, b.Mant[i], mmax)
		}
		if b.Sign[i] > 1 {
			return fmt.Errorf("lane %d: sign %d", i, b.Sign[i])
		}
		if b.Mant[i] == 0 && b.Sign[i] != 0 {
			return fmt.Errorf("lane %d: negative zero", i)
		}
		if b.Delta[i] > MaxDelta {
			return fmt.Errorf("lane %d: delta %d above %d", i, b.Delta[i], MaxDelta)
		}
	}
	if b.IsZero() && b.Exp != 0 {
		return fmt.Errorf("zero block with exponent %d", b.Exp)
	}
	return nil
}

func (b Block[F]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s{exp=%d(2^%d)", formatName(*new(F)), b.Exp, trueExp[F](b.Exp))
	for i := range b.Mant {
		s := '+'
		if b.Sign[i] == 1 {
			s = '-'
		}
		fmt.Fprintf(&sb, " %c%d", s, b.Mant[i])
		if b.Delta[i] != 0 {
			fmt.Fprintf(&sb, ">>%d", b.Delta[i])
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
