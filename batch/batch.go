// package batch runs block operations over many blocks at once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pfcm/bfp"
)

// Op identifies a block operation.
type Op int

const (
	Encode Op = iota
	Decode
	Add
	Sub
	Mul
	Div
	Rcp
)

var opNames = [...]string{
	Encode: "encode",
	Decode: "decode",
	Add:    "add",
	Sub:    "sub",
	Mul:    "mul",
	Div:    "div",
	Rcp:    "rcp",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opNames[o]
}

// ParseOp looks up an operation by name, ignoring case.
func ParseOp(s string) (Op, error) {
	for i, n := range opNames {
		if strings.EqualFold(s, n) {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, s)
}

// Binary reports whether o takes two operands.
func (o Op) Binary() bool {
	switch o {
	case Add, Sub, Mul, Div:
		return true
	}
	return false
}

// ErrUnknownOp is returned for operations Run can't perform.
var ErrUnknownOp = errors.New("unknown op")

// ErrShape is returned when operands don't line up.
var ErrShape = errors.New("operand shape")

// DefaultChunk is how many blocks each goroutine handles at a time.
const DefaultChunk = 256

type options struct {
	workers int
	chunk   int
	log     zerolog.Logger
}

// Option configures Run and Apply.
type Option func(*options)

// WithWorkers limits the number of goroutines. Values below 1 mean
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithChunk sets how many consecutive blocks one goroutine processes.
func WithChunk(n int) Option {
	return func(o *options) { o.chunk = n }
}

// WithLogger sets a logger for debug output. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.chunk < 1 {
		o.chunk = DefaultChunk
	}
	return o
}

// Split encodes xs into as many blocks as it takes, the last one zero padded.
func Split[F bfp.Format](xs []float32) []bfp.Block[F] {
	var f F
	n := f.Lanes()
	out := make([]bfp.Block[F], 0, (len(xs)+n-1)/n)
	for i := 0; i < len(xs); i += n {
		out = append(out, bfp.Encode[F](xs[i:min(i+n, len(xs))]))
	}
	return out
}

// Join decodes blocks back into the first n values. It panics if the blocks
// don't hold n values.
func Join[F bfp.Format](blocks []bfp.Block[F], n int) []float32 {
	var f F
	if have := len(blocks) * f.Lanes(); n > have {
		panic(fmt.Errorf("batch: %d values wanted from %d lanes", n, have))
	}
	out := make([]float32, n)
	for i, b := range blocks {
		if i*f.Lanes() >= n {
			break
		}
		bfp.DecodeInto(out[i*f.Lanes():], b)
	}
	return out
}

func kernel[F bfp.Format](op Op) (func(a, b bfp.Block[F]) bfp.Block[F], error) {
	switch op {
	case Add:
		return bfp.Add[F], nil
	case Sub:
		return bfp.Sub[F], nil
	case Mul:
		return bfp.Mul[F], nil
	case Div:
		return bfp.Div[F], nil
	case Rcp:
		return func(a, _ bfp.Block[F]) bfp.Block[F] { return bfp.Rcp(a) }, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownOp, op)
}

// Run applies op to each pair a[i], b[i]. Unary operations only use a, and b
// must be empty. Encode and Decode aren't block to block operations; use Split
// and Join for those.
func Run[F bfp.Format](ctx context.Context, op Op, a, b []bfp.Block[F], opts ...Option) ([]bfp.Block[F], error) {
	k, err := kernel[F](op)
	if err != nil {
		return nil, err
	}
	switch {
	case op.Binary() && len(a) != len(b):
		return nil, fmt.Errorf("%w: %v of %d and %d blocks", ErrShape, op, len(a), len(b))
	case !op.Binary() && len(b) != 0:
		return nil, fmt.Errorf("%w: %v takes one operand, got %d extra blocks", ErrShape, op, len(b))
	}

	out := make([]bfp.Block[F], len(a))
	o := newOptions(opts)
	o.log.Debug().Stringer("op", op).Str("format", bfp.ParamsOf[F]().Name).Int("blocks", len(a)).Msg("run")
	err = parallel(ctx, len(a), o, func(i int) {
		var y bfp.Block[F]
		if op.Binary() {
			y = b[i]
		}
		out[i] = k(a[i], y)
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", op, err)
	}
	return out, nil
}

// Apply runs s over every block.
func Apply[F bfp.Format](ctx context.Context, s bfp.Stage[F], blocks []bfp.Block[F], opts ...Option) ([]bfp.Block[F], error) {
	out := make([]bfp.Block[F], len(blocks))
	o := newOptions(opts)
	o.log.Debug().Stringer("stage", s).Int("blocks", len(blocks)).Msg("apply")
	if err := parallel(ctx, len(blocks), o, func(i int) {
		out[i] = s.Apply(blocks[i])
	}); err != nil {
		return nil, fmt.Errorf("%v: %w", s, err)
	}
	return out, nil
}

// parallel calls fn for every index below n, o.chunk indices per goroutine.
// Small inputs run on the calling goroutine.
func parallel(ctx context.Context, n int, o options, fn func(i int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n <= o.chunk || o.workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := 0; i < n; i += o.chunk {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i; j < min(n, i+o.chunk); j++ {
				fn(j)
			}
			o.log.Trace().Int("from", i).Int("to", min(n, i+o.chunk)).Msg("chunk done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// Chunks may have been skipped without any of them failing.
	return ctx.Err()
}
