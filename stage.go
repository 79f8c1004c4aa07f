package bfp

import (
	"fmt"
	"strings"
)

// Stage is one step of a computation on blocks.
type Stage[F Format] interface {
	// Apply computes the stage's output for a block. It must not modify
	// its argument.
	Apply(Block[F]) Block[F]

	fmt.Stringer
}

// Scale is a Stage that multiplies its input by a block and then adds
// another: x*Mul + Shift.
type Scale[F Format] struct {
	Mul   Block[F]
	Shift Block[F]
}

var _ Stage[E5M7] = Scale[E5M7]{}

func (s Scale[F]) Apply(b Block[F]) Block[F] { return Add(Mul(b, s.Mul), s.Shift) }
func (s Scale[F]) String() string            { return fmt.Sprintf("Scale(%v, %v)", s.Mul, s.Shift) }

// Offset adds a constant block.
type Offset[F Format] struct {
	By Block[F]
}

func (o Offset[F]) Apply(b Block[F]) Block[F] { return Add(b, o.By) }
func (o Offset[F]) String() string            { return fmt.Sprintf("Offset(%v)", o.By) }

// DivideBy divides by a constant block.
type DivideBy[F Format] struct {
	By Block[F]
}

func (d DivideBy[F]) Apply(b Block[F]) Block[F] { return Div(b, d.By) }
func (d DivideBy[F]) String() string            { return fmt.Sprintf("DivideBy(%v)", d.By) }

// Negation flips the sign of every lane.
type Negation[F Format] struct{}

func (Negation[F]) Apply(b Block[F]) Block[F] { return b.Negate() }
func (Negation[F]) String() string            { return "Negation" }

// Reciprocal computes 1/x.
type Reciprocal[F Format] struct{}

func (Reciprocal[F]) Apply(b Block[F]) Block[F] { return Rcp(b) }
func (Reciprocal[F]) String() string            { return "Reciprocal" }

// Chain is a Stage that applies a sequence of stages in order.
type Chain[F Format] struct {
	ss []Stage[F]
}

var _ Stage[E5M7] = Chain[E5M7]{}

// Serially chains stages together. It panics if there are none.
func Serially[F Format](ss ...Stage[F]) Chain[F] {
	if len(ss) == 0 {
		panic(fmt.Errorf("empty chain"))
	}
	return Chain[F]{ss: ss}
}

func (c Chain[F]) Apply(b Block[F]) Block[F] {
	for _, s := range c.ss {
		b = s.Apply(b)
	}
	return b
}

func (c Chain[F]) String() string {
	s := make([]string, len(c.ss))
	for i, st := range c.ss {
		s[i] = st.String()
	}
	return fmt.Sprintf("Chain(%s)", strings.Join(s, " -> "))
}

// Func adapts a function into a Stage.
type Func[F Format] struct {
	Name string
	Fn   func(Block[F]) Block[F]
}

func (f Func[F]) Apply(b Block[F]) Block[F] { return f.Fn(b) }
func (f Func[F]) String() string            { return f.Name }
