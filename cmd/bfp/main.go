// bfp runs block floating-point operations over a batch of test vectors and
// reports how far the results are from float32 arithmetic.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pfcm/bfp"
	"github.com/pfcm/bfp/batch"
	"github.com/pfcm/bfp/wire"
)

var (
	formatFlag   = flag.String("format", "E5M7", "block `format`: E4M5, E5M7, E8M23 or E8M24")
	opFlag       = flag.String("op", "", "run only this `operation` (encode, add, sub, mul, div, rcp). Defaults to all of them")
	blocksFlag   = flag.Int("blocks", 2, "number of 16 value test vectors to generate when -in is not set")
	inFlag       = flag.String("in", "", "read operands from this `file`, two numbers per line")
	outFlag      = flag.String("out", "", "write the result blocks of -op as a stream to this `file`")
	compressFlag = flag.String("compress", "none", "stream `compression` for -out: none, zstd or lz4")
	workersFlag  = flag.Int("workers", 0, "number of goroutines, 0 means GOMAXPROCS")
	verboseFlag  = flag.Bool("v", false, "log debug output")
)

// The test vectors alternate between these two pairs.
var (
	a0 = []float32{12.35, 6.50, 10.20, 6.60, 8.80, 2.56, 11.11, 8.00, 5.45, 9.99, 0.15, 18.00, 3.80, 90.10, 14.00, 10.00}
	a1 = []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06}
	b0 = []float32{-2, 0, -2, 3, 2, 2, 2, 2, 3, 3, 5, 3, 6, 3, 8, 2}
	b1 = []float32{15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0.5}
)

type config struct {
	ops      []batch.Op
	a, b     []float32
	out      string
	compress wire.Compression
	opts     []batch.Option
	log      zerolog.Logger
}

// runners has an entry point per format.
var runners = map[string]func(context.Context, config) ([]result, error){
	"E4M5":  run[bfp.E4M5],
	"E5M7":  run[bfp.E5M7],
	"E8M23": run[bfp.E8M23],
	"E8M24": run[bfp.E8M24],
}

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if *verboseFlag {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	runner, ok := runners[strings.ToUpper(*formatFlag)]
	if !ok {
		logger.Fatal().Str("format", *formatFlag).Msg("unknown format")
	}
	cfg, err := newConfig(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := runner(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}
	if err := report(os.Stdout, results); err != nil {
		logger.Fatal().Err(err).Msg("writing report")
	}
}

func newConfig(logger zerolog.Logger) (config, error) {
	cfg := config{
		out:  *outFlag,
		log:  logger,
		opts: []batch.Option{batch.WithWorkers(*workersFlag), batch.WithLogger(logger)},
	}
	if *opFlag == "" {
		cfg.ops = []batch.Op{batch.Encode, batch.Add, batch.Sub, batch.Mul, batch.Div, batch.Rcp}
	} else {
		op, err := batch.ParseOp(*opFlag)
		if err != nil {
			return cfg, err
		}
		if op == batch.Decode {
			return cfg, fmt.Errorf("%v runs as part of every other operation", op)
		}
		cfg.ops = []batch.Op{op}
	}
	if cfg.out != "" && len(cfg.ops) != 1 {
		return cfg, fmt.Errorf("-out needs a single -op")
	}

	c, err := wire.ParseCompression(*compressFlag)
	if err != nil {
		return cfg, err
	}
	cfg.compress = c

	if *inFlag != "" {
		cfg.a, cfg.b, err = readPairs(*inFlag)
		return cfg, err
	}
	if *blocksFlag < 1 {
		return cfg, fmt.Errorf("need at least one block, got %d", *blocksFlag)
	}
	for i := 0; i < *blocksFlag; i++ {
		if i%2 == 0 {
			cfg.a, cfg.b = append(cfg.a, a0...), append(cfg.b, b0...)
		} else {
			cfg.a, cfg.b = append(cfg.a, a1...), append(cfg.b, b1...)
		}
	}
	return cfg, nil
}

// readPairs reads lines of "a b" from a file. Blank lines and lines starting
// with # are skipped.
func readPairs(path string) (a, b []float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for line := 1; s.Scan(); line++ {
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("%s:%d: want 2 numbers, got %d", path, line, len(fields))
		}
		var xy [2]float32
		for i, fs := range fields {
			v, err := strconv.ParseFloat(fs, 32)
			if err != nil {
				return nil, nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			xy[i] = float32(v)
		}
		a, b = append(a, xy[0]), append(b, xy[1])
	}
	if err := s.Err(); err != nil {
		return nil, nil, err
	}
	if len(a) == 0 {
		return nil, nil, fmt.Errorf("%s: no values", path)
	}
	return a, b, nil
}

type result struct {
	op     batch.Op
	n      int
	mae    float64
	mape   float64
	worst  float64
	blocks int
}

func run[F bfp.Format](ctx context.Context, cfg config) ([]result, error) {
	p := bfp.ParamsOf[F]()
	cfg.log.Info().Stringer("format", p).Int("values", len(cfg.a)).Msg("encoding")
	a, b := batch.Split[F](cfg.a), batch.Split[F](cfg.b)

	var results []result
	for _, op := range cfg.ops {
		var (
			out []bfp.Block[F]
			err error
		)
		switch op {
		case batch.Encode:
			out = a
		case batch.Rcp:
			out, err = batch.Run(ctx, op, b, nil, cfg.opts...)
		default:
			out, err = batch.Run(ctx, op, a, b, cfg.opts...)
		}
		if err != nil {
			return nil, err
		}
		got := batch.Join(out, len(cfg.a))
		r := compare(op, golden(op, cfg.a, cfg.b), got)
		r.blocks = len(out)
		cfg.log.Debug().Stringer("op", op).Float64("mae", r.mae).Float64("mape", r.mape).Msg("done")
		results = append(results, r)

		if cfg.out != "" {
			if err := writeStream(cfg.out, cfg.compress, out); err != nil {
				return nil, err
			}
			cfg.log.Info().Str("file", cfg.out).Int("blocks", len(out)).Stringer("compression", cfg.compress).Msg("wrote blocks")
		}
	}
	return results, nil
}

func writeStream[F bfp.Format](path string, c wire.Compression, blocks []bfp.Block[F]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := wire.WriteAll(w, c, blocks); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// golden computes op in float32. Division by something tiny gives 0.
func golden(op batch.Op, a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range out {
		switch op {
		case batch.Encode:
			out[i] = a[i]
		case batch.Add:
			out[i] = a[i] + b[i]
		case batch.Sub:
			out[i] = a[i] - b[i]
		case batch.Mul:
			out[i] = a[i] * b[i]
		case batch.Div:
			if math.Abs(float64(b[i])) > 1e-30 {
				out[i] = a[i] / b[i]
			}
		case batch.Rcp:
			if math.Abs(float64(b[i])) > 1e-30 {
				out[i] = 1 / b[i]
			}
		}
	}
	return out
}

// compare computes the mean absolute error and the mean relative error (as a
// percentage) of got. Lanes that decoded as Inf or NaN, or whose reference is
// near zero, are left out of the relative error.
func compare(op batch.Op, want, got []float32) result {
	r := result{op: op, n: len(want)}
	var abs, rel float64
	var relN, absN int
	for i := range want {
		w, g := float64(want[i]), float64(got[i])
		if math.IsInf(g, 0) || math.IsNaN(g) {
			continue
		}
		e := math.Abs(g - w)
		abs += e
		absN++
		if math.Abs(w) > 1e-12 {
			rel += e / math.Abs(w)
			relN++
			r.worst = max(r.worst, e/math.Abs(w))
		}
	}
	if absN > 0 {
		r.mae = abs / float64(absN)
	}
	if relN > 0 {
		r.mape = rel / float64(relN) * 100
	}
	return r
}

func report(f *os.File, results []result) error {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(f, 8, 1, 2, ' ', 0)
	fmt.Fprintln(w, "op\tvalues\tblocks\tmae\tmape\tworst")
	for _, r := range results {
		p.Fprintf(w, "%v\t%d\t%d\t%.6f\t%.4f%%\t%.4f\n", r.op, r.n, r.blocks, r.mae, r.mape, r.worst)
	}
	return w.Flush()
}
