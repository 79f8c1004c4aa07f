// show-bfp shows how float32 values look as block floating-point lanes,
// mostly for debugging rounding and renormalization.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"

	"github.com/pfcm/bfp"
	"github.com/pfcm/bfp/batch"
)

var (
	formatsFlag = flag.String("formats", "", "comma separated list of `format names` to show. Leave empty to show all formats")
	opsFlag     = flag.String("ops", "", "comma separated list of `operations` to show. Available operations are: "+strings.Join(opKeys(), ", ")+". Defaults to all operations")
	rawFlag     = flag.Bool("raw", false, "also dump the blocks' fields")
)

// format shows values in one block format. Every lane of a block holds the
// same value, so lane 0 stands for all of them.
type format struct {
	name    string
	convert func(w io.Writer, x float32)
	op      func(w io.Writer, op batch.Op, x, y float32)
}

var formats = []format{
	newFormat[bfp.E4M5](),
	newFormat[bfp.E5M7](),
	newFormat[bfp.E8M23](),
	newFormat[bfp.E8M24](),
}

func newFormat[F bfp.Format]() format {
	p := bfp.ParamsOf[F]()
	splat := func(x float32) bfp.Block[F] {
		xs := make([]float32, p.Lanes)
		for i := range xs {
			xs[i] = x
		}
		return bfp.Encode[F](xs)
	}
	return format{
		name: p.Name,
		convert: func(w io.Writer, x float32) {
			showLane(w, p.Name, fmt.Sprint(x), splat(x))
		},
		op: func(w io.Writer, op batch.Op, x, y float32) {
			a, b := splat(x), splat(y)
			var r bfp.Block[F]
			switch op {
			case batch.Add:
				r = bfp.Add(a, b)
			case batch.Sub:
				r = bfp.Sub(a, b)
			case batch.Mul:
				r = bfp.Mul(a, b)
			case batch.Div:
				r = bfp.Div(a, b)
			case batch.Rcp:
				r = bfp.Rcp(b)
			}
			showLane(w, p.Name, fmt.Sprintf("%v(%v, %v)", op, x, y), r)
		},
	}
}

func showLane[F bfp.Format](w io.Writer, name, label string, b bfp.Block[F]) {
	sign := "+"
	if b.Sign[0] == 1 {
		sign = "-"
	}
	fmt.Fprintf(w, "%s\t%s\texp=%d\t%s%d\tdelta=%d\t= %v\n", name, label, b.Exp, sign, b.Mant[0], b.Delta[0], b.Float32(0))
	if *rawFlag {
		fmt.Fprint(w, spew.Sdump(b))
	}
}

func opKeys() []string {
	var out []string
	for op := batch.Add; op <= batch.Rcp; op++ {
		out = append(out, op.String())
	}
	return out
}

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), help)
		fmt.Fprintln(flag.CommandLine.Output(), "\nOptional arguments:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if n := flag.NArg(); n < 1 || n > 2 {
		fail("Need exactly one or two arguments.")
	}

	fs, err := parseFormats(*formatsFlag)
	if err != nil {
		fail(err.Error())
	}
	ops, err := parseOps(*opsFlag)
	if err != nil {
		fail(err.Error())
	}

	a, err := parse(flag.Arg(0))
	if err != nil {
		fail(err.Error())
	}
	w := tabwriter.NewWriter(os.Stdout, 8, 1, 1, ' ', 0)

	showConversions(w, fs, a)

	if flag.NArg() == 2 {
		b, err := parse(flag.Arg(1))
		if err != nil {
			fail(err.Error())
		}
		fmt.Fprintln(w)
		showConversions(w, fs, b)
		fmt.Fprintln(w)
		showOps(w, fs, ops, a, b)
	}

	if err := w.Flush(); err != nil {
		fail(err.Error())
	}
}

func parseFormats(s string) ([]format, error) {
	if s == "" {
		return formats, nil
	}
	var out []format
	for _, name := range strings.Split(s, ",") {
		i := indexFormat(name)
		if i < 0 {
			return nil, fmt.Errorf("unknown format %q", name)
		}
		out = append(out, formats[i])
	}
	return out, nil
}

func indexFormat(name string) int {
	for i, f := range formats {
		if strings.EqualFold(f.name, name) {
			return i
		}
	}
	return -1
}

func parseOps(s string) ([]batch.Op, error) {
	if s == "" {
		s = strings.Join(opKeys(), ",")
	}
	var out []batch.Op
	for _, name := range strings.Split(s, ",") {
		op, err := batch.ParseOp(name)
		if err != nil {
			return nil, err
		}
		if op == batch.Encode || op == batch.Decode {
			return nil, fmt.Errorf("%v is not a block operation", op)
		}
		out = append(out, op)
	}
	return out, nil
}

func parse(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(f), nil
}

func showConversions(w io.Writer, fs []format, x float32) {
	for _, f := range fs {
		f.convert(w, x)
	}
}

func showOps(w io.Writer, fs []format, ops []batch.Op, a, b float32) {
	for _, f := range fs {
		for _, op := range ops {
			f.op(w, op, a, b)
		}
	}
}

func fail(reason string) {
	fmt.Fprintln(os.Stderr, reason)
	fmt.Fprint(os.Stderr, help)
	os.Exit(1)
}

const help = `show-bfp shows the block floating-point encodings of a number.
Usage:
	show-bfp [-formats] [-ops] [-raw] num [num]

Where num is a floating point literal. If a second number is provided, also
shows the results of block operations between them. Rcp shows 1/num of the
second number.
`
