package tensor

import (
	"math"
	"testing"
)

func TestNewRejectsBadShapes(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("expected error for rank-0 shape")
	}
	if _, err := New(2, 0); err == nil {
		t.Error("expected error for zero dimension")
	}
	if _, err := New(2, -3); err == nil {
		t.Error("expected error for negative dimension")
	}
}

func TestFromSlice(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	m, err := FromSlice(data, 2, 3)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if m.NumElements() != 6 {
		t.Errorf("expected 6 elements, got %d", m.NumElements())
	}
	if _, err := FromSlice(data, 2, 2); err == nil {
		t.Error("expected length/shape mismatch error")
	}
}

func TestRow(t *testing.T) {
	x, _ := FromSlice([]float32{
		1, 2, // b=0 t=0
		3, 4, // b=0 t=1
		5, 6, // b=1 t=0
		7, 8, // b=1 t=1
	}, 2, 2, 2)

	row := x.Row(1, 0)
	if row[0] != 5 || row[1] != 6 {
		t.Errorf("Row(1,0) = %v, want [5 6]", row)
	}
}

func TestMatMul(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b, _ := FromSlice([]float32{7, 8, 9, 10, 11, 12}, 3, 2)

	out, err := MatMul(a, b)
	if err != nil {
		t.Fatalf("MatMul: %v", err)
	}
	want := []float32{58, 64, 139, 154}
	for i, w := range want {
		if out.Data()[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out.Data()[i], w)
		}
	}
}

func TestMatMulShapeMismatch(t *testing.T) {
	a, _ := New(2, 3)
	b, _ := New(4, 2)
	if _, err := MatMul(a, b); err == nil {
		t.Error("expected inner dimension mismatch error")
	}
}

func TestProject(t *testing.T) {
	// (1,2,2) x (2,3) -> (1,2,3), verified by hand
	x, _ := FromSlice([]float32{1, 2, 3, 4}, 1, 2, 2)
	w, _ := FromSlice([]float32{1, 0, 1, 0, 1, 1}, 2, 3)

	out, err := Project(x, w)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	got := out.Shape()
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("shape = %v, want [1 2 3]", got)
	}
	want := []float32{1, 2, 3, 3, 4, 7}
	for i, w := range want {
		if out.Data()[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out.Data()[i], w)
		}
	}
}

func TestProjectDimMismatch(t *testing.T) {
	x, _ := New(1, 2, 5)
	w, _ := New(4, 3)
	if _, err := Project(x, w); err == nil {
		t.Error("expected input dim mismatch error")
	}
}

func TestScores(t *testing.T) {
	// Two positions with orthogonal and parallel vectors
	q, _ := FromSlice([]float32{1, 0, 0, 1}, 1, 2, 2)
	k, _ := FromSlice([]float32{1, 0, 1, 1}, 1, 2, 2)

	out, err := Scores(q, k)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	// scores[0,i,j] = q[i].k[j]
	want := []float32{1, 1, 0, 1}
	for i, w := range want {
		if out.Data()[i] != w {
			t.Errorf("scores[%d] = %v, want %v", i, out.Data()[i], w)
		}
	}
}

func TestScoresBatchIndependence(t *testing.T) {
	// Same q in both batch elements, different k: rows must not cross batches
	q, _ := FromSlice([]float32{1, 1, 1, 1}, 2, 1, 2)
	k, _ := FromSlice([]float32{2, 0, 0, 3}, 2, 1, 2)

	out, err := Scores(q, k)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	if out.Data()[0] != 2 || out.Data()[1] != 3 {
		t.Errorf("scores = %v, want [2 3]", out.Data())
	}
}

func TestWeightedSum(t *testing.T) {
	// Uniform weights over two positions -> mean of values
	w, _ := FromSlice([]float32{1, 0, 0.5, 0.5}, 1, 2, 2)
	v, _ := FromSlice([]float32{2, 4, 6, 8}, 1, 2, 2)

	out, err := WeightedSum(w, v)
	if err != nil {
		t.Fatalf("WeightedSum: %v", err)
	}
	want := []float32{2, 4, 4, 6}
	for i, x := range want {
		if math.Abs(float64(out.Data()[i]-x)) > 1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out.Data()[i], x)
		}
	}
}

func TestWeightedSumSkipsZeroWeights(t *testing.T) {
	// NaN in a zero-weighted value row must not poison the output
	w3, _ := FromSlice([]float32{1, 0, 0, 1}, 1, 2, 2)
	v, _ := FromSlice([]float32{3, 5, float32(math.NaN()), float32(math.NaN())}, 1, 2, 2)

	out, err := WeightedSum(w3, v)
	if err != nil {
		t.Fatalf("WeightedSum: %v", err)
	}
	if out.Data()[0] != 3 || out.Data()[1] != 5 {
		t.Errorf("position 0 output = %v, want [3 5]", out.Data()[:2])
	}
}

func TestCloneIsDeep(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2}, 1, 2)
	b := a.Clone()
	b.Data()[0] = 99
	if a.Data()[0] != 1 {
		t.Error("Clone shares storage with original")
	}
}
