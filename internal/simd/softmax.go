package simd

import "math"

var softmaxImpl func(x []float32)

// Softmax normalizes x in place into a probability distribution.
// Entries of -Inf map to exactly 0.
func Softmax(x []float32) {
	softmaxImpl(x)
}

func init() {
	softmaxImpl = softmaxFallback
}

// softmaxFallback subtracts the row max before exponentiating so that
// large-magnitude scores cannot overflow float32.
func softmaxFallback(x []float32) {
	if len(x) == 0 {
		return
	}
	max := x[0]
	for _, v := range x {
		if v > max {
			max = v
		}
	}

	var sum float32
	for i := range x {
		x[i] = float32(math.Exp(float64(x[i] - max)))
		sum += x[i]
	}

	if sum > 0 {
		invSum := float32(1.0) / sum
		for i := range x {
			x[i] *= invSum
		}
	}
}
