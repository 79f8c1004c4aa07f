package bfp

import (
	"testing"
)

func TestChain(t *testing.T) {
	x, y := hostVectors()
	a, b := Encode[E5M7](x), Encode[E5M7](y)
	two := Encode[E5M7](seq(16, func(int) float32 { return 2 }))

	c := Serially[E5M7](
		Offset[E5M7]{By: b},
		Scale[E5M7]{Mul: two, Shift: a},
		DivideBy[E5M7]{By: b},
		Negation[E5M7]{},
		Reciprocal[E5M7]{},
	)
	want := Rcp(Div(Add(Mul(Add(a, b), two), a), b).Negate())
	if got := c.Apply(a); !got.Equal(want) {
		t.Errorf("%v.Apply = %v, want: %v", c, got, want)
	}
}

func TestChainString(t *testing.T) {
	c := Serially[E4M5](
		Negation[E4M5]{},
		Func[E4M5]{Name: "square", Fn: func(b Block[E4M5]) Block[E4M5] { return Mul(b, b) }},
		Reciprocal[E4M5]{},
	)
	if got, want := c.String(), "Chain(Negation -> square -> Reciprocal)"; got != want {
		t.Errorf("String() = %q, want: %q", got, want)
	}
}

func TestSeriallyEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Serially() did not panic")
		}
	}()
	Serially[E4M5]()
}
