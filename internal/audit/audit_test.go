package audit

import (
	"math"
	"testing"

	"github.com/23skdu/longbow-bodkin/internal/head"
	"github.com/23skdu/longbow-bodkin/internal/tensor"
)

func TestAuditCleanWeights(t *testing.T) {
	h, err := head.New(4, 4, 1)
	if err != nil {
		t.Fatalf("head.New: %v", err)
	}
	x, _ := tensor.New(2, 3, 4)
	for i := range x.Data() {
		x.Data()[i] = float32(i%7) * 0.1
	}

	_, weights, err := h.Attend(x)
	if err != nil {
		t.Fatalf("Attend: %v", err)
	}

	res := AuditWeights(weights)
	if res.RowsChecked != 6 {
		t.Errorf("rows checked = %d, want 6", res.RowsChecked)
	}
	if !res.Clean(1e-6) {
		t.Errorf("expected clean audit, got %+v", res)
	}
}

func TestAuditDetectsCausalLeak(t *testing.T) {
	w, _ := tensor.FromSlice([]float32{
		1, 0.5, // leak at [0,0,1]
		0.25, 0.25,
	}, 1, 2, 2)

	res := AuditWeights(w)
	if res.CausalLeaks != 1 {
		t.Errorf("causal leaks = %d, want 1", res.CausalLeaks)
	}
	if res.MaxRowSumError < 0.4 {
		t.Errorf("max row sum error = %v, want >= 0.5-ish", res.MaxRowSumError)
	}
	if res.Clean(1e-6) {
		t.Error("audit should not be clean")
	}
}

func TestAuditCountsNaNAndInf(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	w, _ := tensor.FromSlice([]float32{
		nan, 0,
		inf, 1,
	}, 1, 2, 2)

	res := AuditWeights(w)
	if res.NumNaNs != 1 {
		t.Errorf("NaNs = %d, want 1", res.NumNaNs)
	}
	if res.NumInfs != 1 {
		t.Errorf("Infs = %d, want 1", res.NumInfs)
	}
}

func TestAuditRejectsWrongRank(t *testing.T) {
	w, _ := tensor.New(2, 2)
	res := AuditWeights(w)
	if res.RowsChecked != 0 {
		t.Errorf("rows checked = %d, want 0 for non-3D input", res.RowsChecked)
	}
	if res := AuditWeights(nil); res.RowsChecked != 0 {
		t.Error("nil tensor should audit zero rows")
	}
}

func TestStats(t *testing.T) {
	data := []float32{1, 2, 3, 4, float32(math.NaN()), float32(math.Inf(-1))}
	res := Stats("test", data)

	if res.NumNaNs != 1 || res.NumInfs != 1 {
		t.Errorf("NaNs/Infs = %d/%d, want 1/1", res.NumNaNs, res.NumInfs)
	}
	if math.Abs(res.Mean-2.5) > 1e-9 {
		t.Errorf("mean = %v, want 2.5", res.Mean)
	}
	if res.Min != 1 || res.Max != 4 {
		t.Errorf("min/max = %v/%v, want 1/4", res.Min, res.Max)
	}
	// gonum's Variance is the unbiased sample variance
	if math.Abs(res.Variance-5.0/3.0) > 1e-9 {
		t.Errorf("variance = %v, want 5/3", res.Variance)
	}
}
