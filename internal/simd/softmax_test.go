package simd

import (
	"math"
	"testing"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	x := []float32{1.0, 2.0, 3.0, 4.0}
	Softmax(x)

	var sum float32
	for _, v := range x {
		if v < 0 {
			t.Errorf("negative probability %v", v)
		}
		sum += v
	}
	if math.Abs(float64(sum)-1.0) > 1e-6 {
		t.Errorf("sum = %v, want 1.0", sum)
	}
	// Monotone scores give monotone probabilities
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			t.Errorf("expected increasing probabilities, got %v", x)
		}
	}
}

func TestSoftmaxSingleElement(t *testing.T) {
	x := []float32{-42.5}
	Softmax(x)
	if x[0] != 1.0 {
		t.Errorf("softmax of one element = %v, want exactly 1.0", x[0])
	}
}

func TestSoftmaxLargeMagnitude(t *testing.T) {
	// Without max subtraction exp(1e4) overflows float32
	x := []float32{10000, 10001, 10002}
	Softmax(x)

	var sum float32
	for _, v := range x {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("instability in output: %v", x)
		}
		sum += v
	}
	if math.Abs(float64(sum)-1.0) > 1e-6 {
		t.Errorf("sum = %v, want 1.0", sum)
	}
}

func TestSoftmaxNegInfMapsToZero(t *testing.T) {
	negInf := float32(math.Inf(-1))
	x := []float32{0.5, negInf, 1.5, negInf}
	Softmax(x)

	if x[1] != 0 || x[3] != 0 {
		t.Errorf("masked entries = %v, %v, want exactly 0", x[1], x[3])
	}
	if math.Abs(float64(x[0]+x[2])-1.0) > 1e-6 {
		t.Errorf("visible mass = %v, want 1.0", x[0]+x[2])
	}
}

func TestSoftmaxEmpty(t *testing.T) {
	Softmax(nil) // must not panic
}

func TestSoftmaxUniform(t *testing.T) {
	x := []float32{3, 3, 3, 3}
	Softmax(x)
	for i, v := range x {
		if math.Abs(float64(v)-0.25) > 1e-6 {
			t.Errorf("x[%d] = %v, want 0.25", i, v)
		}
	}
}
