package bfp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	for _, c := range []struct {
		name string
		in   Block[E4M5]
		want []float32
	}{{
		name: "zero",
		in:   NewBlock[E4M5](),
		want: make([]float32, 16),
	}, {
		name: "deltas",
		in: Block[E4M5]{
			Exp:   8,
			Sign:  lanes16[uint8](0, 0, 1),
			Mant:  lanes16[uint32](16, 24, 48),
			Delta: lanes16[uint32](1, 1),
		},
		want: lanes16[float32](1, 1.5, -3),
	}, {
		name: "fresh",
		// Arithmetic results have no deltas.
		in: Block[E4M5]{
			Exp:   12,
			Sign:  lanes16[uint8](0, 1, 0),
			Mant:  lanes16[uint32](2, 4, 32),
			Delta: lanes16[uint32](),
		},
		want: lanes16[float32](2, -4, 32),
	}, {
		name: "clamped exponent",
		// Exp 0 with nonzero lanes is not the canonical zero.
		in: Block[E4M5]{
			Exp:   0,
			Sign:  lanes16[uint8](1),
			Mant:  lanes16[uint32](32),
			Delta: lanes16[uint32](),
		},
		want: lanes16[float32](-1.0 / 128),
	}} {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(Decode(c.in), c.want); diff != "" {
				t.Errorf("Decode(%v): unexpected diff (-got,+want):\n%v", c.in, diff)
			}
		})
	}
}

func TestDecodeSentinels(t *testing.T) {
	b := NewBlock[E5M7]()
	b.Exp = 20
	b.Mant[0], b.Mant[1], b.Mant[2] = MantMax[E5M7](), MantMax[E5M7](), NaNMant[E5M7]()
	b.Sign[1] = 1
	// The same magnitudes with a delta are ordinary values.
	b.Mant[3], b.Delta[3] = MantMax[E5M7](), 1
	b.Mant[4], b.Delta[4] = NaNMant[E5M7](), 2

	if got := b.Float32(0); !math.IsInf(float64(got), 1) {
		t.Errorf("lane 0 = %v, want: +Inf", got)
	}
	if got := b.Float32(1); !math.IsInf(float64(got), -1) {
		t.Errorf("lane 1 = %v, want: -Inf", got)
	}
	if got := b.Float32(2); !math.IsNaN(float64(got)) {
		t.Errorf("lane 2 = %v, want: NaN", got)
	}
	// Deltas only matter for the sentinel test.
	if got, want := b.Float32(3), float32(255.0 / 128 * 32); got != want {
		t.Errorf("lane 3 = %v, want: %v", got, want)
	}
	if got, want := b.Float32(4), float32(254.0 / 128 * 32); got != want {
		t.Errorf("lane 4 = %v, want: %v", got, want)
	}
}

func TestDecodeSpecialRoundTrip(t *testing.T) {
	in := []float32{float32(math.Inf(-1)), float32(math.NaN()), float32(math.Inf(1)), 0}
	got := Decode(Encode[E5M7](in))
	if !math.IsInf(float64(got[0]), -1) || !math.IsNaN(float64(got[1])) || !math.IsInf(float64(got[2]), 1) || got[3] != 0 {
		t.Errorf("Decode(Encode(%v)) = %v", in, got[:4])
	}
}

func TestDecodeInto(t *testing.T) {
	b := Encode[E4M5]([]float32{1, 1.5, -3})
	dst := make([]float64, 3)
	if n := DecodeInto(dst, b); n != 3 {
		t.Errorf("DecodeInto wrote %d lanes, want: 3", n)
	}
	if diff := cmp.Diff(dst, []float64{1, 1.5, -3}); diff != "" {
		t.Errorf("DecodeInto: unexpected diff (-got,+want):\n%v", diff)
	}
	big := make([]float32, 20)
	if n := DecodeInto(big, b); n != 16 {
		t.Errorf("DecodeInto wrote %d lanes into 20, want: 16", n)
	}
}

func TestDecodeLargeDelta(t *testing.T) {
	b := NewBlock[E8M23]()
	b.Exp = 127
	b.Mant[0], b.Delta[0] = 1, 2000
	want := float32(math.Ldexp(1, -23))
	if got := b.Float32(0); got != want {
		t.Errorf("Float32 with delta 2000 = %v, want: %v", got, want)
	}
	if err := b.Check(); err == nil {
		t.Errorf("Check accepted delta 2000")
	}
	b.Delta[0] = MaxDelta
	if err := b.Check(); err != nil {
		t.Errorf("Check rejected delta %d: %v", MaxDelta, err)
	}
}

func TestEncodeDeltaBound(t *testing.T) {
	// The widest spread Encode can see: an infinity and the smallest normal.
	b := Encode[E8M23]([]float32{float32(math.Inf(1)), math.SmallestNonzeroFloat32 * (1 << 23)})
	if b.Delta[1] != MaxDelta {
		t.Errorf("delta = %d, want: %d", b.Delta[1], MaxDelta)
	}
	if err := b.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}
}
