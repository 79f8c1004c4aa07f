package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/pfcm/bfp"
	"github.com/pfcm/bfp/batch"
	"github.com/pfcm/bfp/wire"
)

func TestRun(t *testing.T) {
	// Only the first vector pair: b1 has lanes 4 binades below its
	// maximum whose reciprocals saturate, which no amount of precision
	// fixes. The zero divisor in b0 has a golden value of 0 and is left out
	// of the relative error.
	dir := t.TempDir()
	out := filepath.Join(dir, "div.bfp")
	cfg := config{
		ops:      []batch.Op{batch.Div},
		a:        append(append([]float32(nil), a0...), a0...),
		b:        append(append([]float32(nil), b0...), b0...),
		out:      out,
		compress: wire.Zstd,
		log:      zerolog.Nop(),
	}
	results, err := run[bfp.E8M23](context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 || results[0].blocks != 2 {
		t.Fatalf("run = %+v, want one result over 2 blocks", results)
	}
	if r := results[0]; r.mape > 0.01 {
		t.Errorf("div mape = %v%%, want < 0.01%%", r.mape)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	blocks, err := wire.ReadAll[bfp.E8M23](f)
	if err != nil {
		t.Fatalf("reading %s: %v", out, err)
	}
	if len(blocks) != 2 {
		t.Errorf("%s holds %d blocks, want: 2", out, len(blocks))
	}
}

func TestGolden(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{2, 0, -4}
	for _, c := range []struct {
		op   batch.Op
		want []float32
	}{
		{batch.Encode, []float32{1, 2, 3}},
		{batch.Add, []float32{3, 2, -1}},
		{batch.Sub, []float32{-1, 2, 7}},
		{batch.Mul, []float32{2, 0, -12}},
		{batch.Div, []float32{0.5, 0, -0.75}},
		{batch.Rcp, []float32{0.5, 0, -0.25}},
	} {
		if diff := cmp.Diff(golden(c.op, a, b), c.want); diff != "" {
			t.Errorf("golden(%v): unexpected diff (-got,+want):\n%v", c.op, diff)
		}
	}
}

func TestReadPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("# a b\n1 2\n\n-0.5 3e2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, b, err := readPairs(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, []float32{1, -0.5}); diff != "" {
		t.Errorf("a: unexpected diff (-got,+want):\n%v", diff)
	}
	if diff := cmp.Diff(b, []float32{2, 300}); diff != "" {
		t.Errorf("b: unexpected diff (-got,+want):\n%v", diff)
	}

	if err := os.WriteFile(path, []byte("1 2 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readPairs(path); err == nil {
		t.Errorf("readPairs accepted three numbers on a line")
	}
}
