package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Prints raw and scaled query-key dot product variance across head
// dimensions, showing that the 1/sqrt(H) factor keeps scaled variance
// roughly flat while raw variance grows linearly in H.

var (
	samples = flag.Int("samples", 10000, "Dot products sampled per head dimension")
	seed    = flag.Int64("seed", 1337, "RNG seed")
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("%8s %14s %14s\n", "head_dim", "raw_var", "scaled_var")
	for _, headDim := range []int{4, 8, 16, 32, 64, 128} {
		raw := make([]float64, *samples)
		scaled := make([]float64, *samples)
		scale := 1.0 / math.Sqrt(float64(headDim))
		for s := range raw {
			var dot float64
			for l := 0; l < headDim; l++ {
				dot += (rng.Float64()*2 - 1) * (rng.Float64()*2 - 1)
			}
			raw[s] = dot
			scaled[s] = dot * scale
		}
		fmt.Printf("%8d %14.4f %14.4f\n", headDim,
			stat.Variance(raw, nil), stat.Variance(scaled, nil))
	}
}
