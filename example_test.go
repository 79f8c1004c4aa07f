package bfp_test

import (
	"fmt"

	"github.com/pfcm/bfp"
)

func Example() {
	a := bfp.Encode[bfp.E5M7]([]float32{1, 2, 3, 4})
	b := bfp.Encode[bfp.E5M7]([]float32{0.5, 0.5, 0.5, 0.5})
	fmt.Println(bfp.Decode(bfp.Mul(a, b))[:4])
	// Output: [0.5 1 1.5 2]
}

func ExampleParamsOf() {
	fmt.Println(bfp.ParamsOf[bfp.E5M7]())
	// Output: E5M7(we=5 wm=7 n=16 bias=15)
}
