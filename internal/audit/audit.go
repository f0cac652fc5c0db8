// Package audit inspects attention outputs for violated invariants:
// weight rows that fail to sum to one, mass leaking above the causal
// diagonal, and NaN/Inf contamination. Findings are recorded to metrics.
package audit

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/23skdu/longbow-bodkin/internal/metrics"
	"github.com/23skdu/longbow-bodkin/internal/tensor"
)

// WeightAuditResult summarizes a pass over a (B,T,T) weight tensor
type WeightAuditResult struct {
	RowsChecked    int
	MaxRowSumError float64
	CausalLeaks    int
	NumNaNs        int
	NumInfs        int
}

// Clean reports whether no invariant was violated beyond tol on row sums
func (r WeightAuditResult) Clean(tol float64) bool {
	return r.MaxRowSumError <= tol && r.CausalLeaks == 0 && r.NumNaNs == 0 && r.NumInfs == 0
}

// AuditWeights walks every row of a normalized (B,T,T) attention weight
// tensor. Row sums are checked against 1.0 and any nonzero entry strictly
// above the diagonal counts as a causal leak.
func AuditWeights(w *tensor.Tensor) WeightAuditResult {
	res := WeightAuditResult{}
	if w == nil || w.Rank() != 3 {
		return res
	}
	batch, seqLen := w.Dim(0), w.Dim(1)
	for b := 0; b < batch; b++ {
		for i := 0; i < seqLen; i++ {
			row := w.Row(b, i)
			var sum float64
			for j, v := range row {
				f := float64(v)
				if math.IsNaN(f) {
					res.NumNaNs++
					continue
				}
				if math.IsInf(f, 0) {
					res.NumInfs++
					continue
				}
				if j > i && v != 0 {
					res.CausalLeaks++
				}
				sum += f
			}
			dev := math.Abs(sum - 1.0)
			if dev > res.MaxRowSumError {
				res.MaxRowSumError = dev
			}
			metrics.RecordRowSumDeviation(dev)
			res.RowsChecked++
		}
	}
	metrics.RecordCausalLeaks(res.CausalLeaks)
	metrics.RecordNumericalInstability("weights", res.NumNaNs, res.NumInfs)
	return res
}

// TensorStats holds distribution moments of a tensor's finite entries
type TensorStats struct {
	Mean     float64
	Variance float64
	Min      float64
	Max      float64
	NumNaNs  int
	NumInfs  int
}

// Stats computes moments over the finite entries of data, counting NaN/Inf
// separately and reporting them to the instability metrics under name.
func Stats(name string, data []float32) TensorStats {
	res := TensorStats{Min: math.Inf(1), Max: math.Inf(-1)}
	finite := make([]float64, 0, len(data))
	for _, v := range data {
		f := float64(v)
		if math.IsNaN(f) {
			res.NumNaNs++
			continue
		}
		if math.IsInf(f, 0) {
			res.NumInfs++
			continue
		}
		if f < res.Min {
			res.Min = f
		}
		if f > res.Max {
			res.Max = f
		}
		finite = append(finite, f)
	}
	if len(finite) > 0 {
		res.Mean = stat.Mean(finite, nil)
		res.Variance = stat.Variance(finite, nil)
	}
	metrics.RecordNumericalInstability(name, res.NumNaNs, res.NumInfs)
	return res
}
