// Package head implements single-head causal scaled dot-product attention
// over a batch of embedded token sequences.
package head

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/23skdu/longbow-bodkin/internal/metrics"
	"github.com/23skdu/longbow-bodkin/internal/simd"
	"github.com/23skdu/longbow-bodkin/internal/tensor"
)

var (
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrShapeMismatch    = errors.New("shape mismatch")
)

// Head projects a (B,T,C) input batch into query/key/value space and
// computes causally masked attention. The projection matrices are fixed at
// construction and never mutated, so concurrent Forward calls are safe.
type Head struct {
	dim     int
	headDim int
	wq      *tensor.Tensor // (C,H), no bias
	wk      *tensor.Tensor
	wv      *tensor.Tensor
	scale   float32 // 1/sqrt(H)
}

// New allocates a head with dim input features (C) and headDim projected
// features (H). Weights are seeded deterministically: uniform in [-1,1)
// scaled by 1/sqrt(C). The scheme is illustrative, not trained; only
// reproducibility matters.
func New(dim, headDim int, seed int64) (*Head, error) {
	if dim <= 0 {
		metrics.RecordValidationError("new_head", "invalid_dimension")
		return nil, fmt.Errorf("%w: dim %d (must be positive)", ErrInvalidDimension, dim)
	}
	if headDim <= 0 {
		metrics.RecordValidationError("new_head", "invalid_dimension")
		return nil, fmt.Errorf("%w: head_dim %d (must be positive)", ErrInvalidDimension, headDim)
	}

	rng := rand.New(rand.NewSource(seed))
	return &Head{
		dim:     dim,
		headDim: headDim,
		wq:      initWeight(rng, dim, headDim),
		wk:      initWeight(rng, dim, headDim),
		wv:      initWeight(rng, dim, headDim),
		scale:   float32(1.0 / math.Sqrt(float64(headDim))),
	}, nil
}

// NewWithWeights builds a head around caller-supplied (C,H) projections.
// The tensors are used directly and must not be mutated afterwards.
func NewWithWeights(wq, wk, wv *tensor.Tensor) (*Head, error) {
	for _, w := range []*tensor.Tensor{wq, wk, wv} {
		if w == nil || w.Rank() != 2 {
			return nil, fmt.Errorf("%w: projections must be 2D", ErrShapeMismatch)
		}
		if !tensor.SameShape(w, wq) {
			return nil, fmt.Errorf("%w: projections disagree, %v vs %v",
				ErrShapeMismatch, w.Shape(), wq.Shape())
		}
	}
	return &Head{
		dim:     wq.Dim(0),
		headDim: wq.Dim(1),
		wq:      wq,
		wk:      wk,
		wv:      wv,
		scale:   float32(1.0 / math.Sqrt(float64(wq.Dim(1)))),
	}, nil
}

func initWeight(rng *rand.Rand, dim, headDim int) *tensor.Tensor {
	w, _ := tensor.New(dim, headDim)
	scale := float32(1.0 / math.Sqrt(float64(dim)))
	data := w.Data()
	for i := range data {
		data[i] = (rng.Float32()*2 - 1) * scale
	}
	return w
}

func (h *Head) Dim() int {
	return h.dim
}

func (h *Head) HeadDim() int {
	return h.headDim
}

// Weights returns the query, key and value projections. Callers must treat
// them as read-only.
func (h *Head) Weights() (wq, wk, wv *tensor.Tensor) {
	return h.wq, h.wk, h.wv
}

// CausalMask returns the (T,T) lower-triangular visibility matrix: 1 on and
// below the diagonal, 0 strictly above. Position i may attend to 0..i only.
func CausalMask(seqLen int) (*tensor.Tensor, error) {
	if seqLen <= 0 {
		return nil, fmt.Errorf("%w: seq_len %d (must be positive)", ErrInvalidDimension, seqLen)
	}
	m, _ := tensor.New(seqLen, seqLen)
	data := m.Data()
	for i := 0; i < seqLen; i++ {
		for j := 0; j <= i; j++ {
			data[i*seqLen+j] = 1
		}
	}
	return m, nil
}

// Forward computes the attention output for a (B,T,C) batch, returning
// (B,T,H). Pure: no state is read besides the fixed projections.
func (h *Head) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out, _, err := h.Attend(x)
	return out, err
}

// Attend is Forward with the normalized (B,T,T) attention weights exposed,
// for inspection and auditing.
//
// Steps: project to Q/K/V, score Q against K, scale by 1/sqrt(H), mask
// future positions to -Inf, softmax each row, aggregate V.
func (h *Head) Attend(x *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 {
		metrics.RecordValidationError("forward", "shape_mismatch")
		return nil, nil, fmt.Errorf("%w: expected 3D (batch, seq, dim) input", ErrShapeMismatch)
	}
	if x.Dim(2) != h.dim {
		metrics.RecordValidationError("forward", "shape_mismatch")
		return nil, nil, fmt.Errorf("%w: input dim %d, head expects %d",
			ErrShapeMismatch, x.Dim(2), h.dim)
	}
	batch, seqLen := x.Dim(0), x.Dim(1)
	if seqLen <= 0 {
		metrics.RecordValidationError("forward", "invalid_dimension")
		return nil, nil, fmt.Errorf("%w: seq_len %d (must be positive)", ErrInvalidDimension, seqLen)
	}

	start := time.Now()
	defer func() {
		metrics.RecordForward(batch, seqLen, time.Since(start))
	}()

	q, err := tensor.Project(x, h.wq)
	if err != nil {
		return nil, nil, fmt.Errorf("query projection: %w", err)
	}
	k, err := tensor.Project(x, h.wk)
	if err != nil {
		return nil, nil, fmt.Errorf("key projection: %w", err)
	}
	v, err := tensor.Project(x, h.wv)
	if err != nil {
		return nil, nil, fmt.Errorf("value projection: %w", err)
	}

	weights, err := tensor.Scores(q, k)
	if err != nil {
		return nil, nil, fmt.Errorf("scores: %w", err)
	}
	weights.Scale(h.scale)

	mask, err := CausalMask(seqLen)
	if err != nil {
		return nil, nil, err
	}
	maskData := mask.Data()
	negInf := float32(math.Inf(-1))
	for b := 0; b < batch; b++ {
		for i := 0; i < seqLen; i++ {
			row := weights.Row(b, i)
			for j := 0; j < seqLen; j++ {
				if maskData[i*seqLen+j] == 0 {
					row[j] = negInf
				}
			}
			simd.Softmax(row)
		}
	}

	out, err := tensor.WeightedSum(weights, v)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate: %w", err)
	}
	return out, weights, nil
}
