package tensor

import (
	"fmt"
	"runtime"
	"sync"
)

// Tensor is a dense row-major float32 array with an explicit shape.
// Data is flat; the last axis varies fastest.
type Tensor struct {
	shape []int
	data  []float32
}

// New allocates a zero-filled tensor
func New(shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("invalid shape %v: dimensions must be positive", shape)
		}
		n *= d
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("invalid shape: rank 0")
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Tensor{shape: s, data: make([]float32, n)}, nil
}

// FromSlice wraps existing data. The slice is used directly, not copied.
func FromSlice(data []float32, shape ...int) (*Tensor, error) {
	t, err := New(shape...)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("data length %d does not match shape %v (want %d)",
			len(data), shape, len(t.data))
	}
	t.data = data
	return t, nil
}

func (t *Tensor) Shape() []int {
	return t.shape
}

func (t *Tensor) Rank() int {
	return len(t.shape)
}

func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

func (t *Tensor) Data() []float32 {
	return t.data
}

func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Clone returns a deep copy
func (t *Tensor) Clone() *Tensor {
	s := make([]int, len(t.shape))
	copy(s, t.shape)
	d := make([]float32, len(t.data))
	copy(d, t.data)
	return &Tensor{shape: s, data: d}
}

// Row returns the last-axis slice at the given leading indices.
// For a (B,T,C) tensor, Row(b, t) is the C-vector at that position.
func (t *Tensor) Row(idx ...int) []float32 {
	if len(idx) != len(t.shape)-1 {
		panic(fmt.Sprintf("Row: got %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	offset := 0
	for i, ix := range idx {
		offset = offset*t.shape[i] + ix
	}
	width := t.shape[len(t.shape)-1]
	return t.data[offset*width : (offset+1)*width]
}

// Scale multiplies every element in place
func (t *Tensor) Scale(s float32) {
	for i := range t.data {
		t.data[i] *= s
	}
}

// SameShape reports whether two tensors have identical shapes
func SameShape(a, b *Tensor) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// parallelRows splits [0, rows) into NumCPU chunks and runs fn on each.
// Chunks write disjoint output rows, so the result is order-independent.
func parallelRows(rows int, fn func(rowStart, rowEnd int)) {
	parallelism := runtime.NumCPU()
	chunkSize := (rows + parallelism - 1) / parallelism
	var wg sync.WaitGroup
	for i := 0; i < rows; i += chunkSize {
		end := i + chunkSize
		if end > rows {
			end = rows
		}
		wg.Add(1)
		go func(rowStart, rowEnd int) {
			defer wg.Done()
			fn(rowStart, rowEnd)
		}(i, end)
	}
	wg.Wait()
}

// MatMul computes a (m,k) x (k,n) -> (m,n) product
func MatMul(a, b *Tensor) (*Tensor, error) {
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, fmt.Errorf("matmul: expected 2D operands, got %v x %v", a.shape, b.shape)
	}
	m, k := a.shape[0], a.shape[1]
	if b.shape[0] != k {
		return nil, fmt.Errorf("matmul: inner dimensions mismatch %v x %v", a.shape, b.shape)
	}
	n := b.shape[1]
	out, _ := New(m, n)
	ad, bd, od := a.data, b.data, out.data
	parallelRows(m, func(rowStart, rowEnd int) {
		for row := rowStart; row < rowEnd; row++ {
			rowOffset := row * n
			inOffset := row * k
			for col := 0; col < n; col++ {
				var sum float32
				for l := 0; l < k; l++ {
					sum += ad[inOffset+l] * bd[l*n+col]
				}
				od[rowOffset+col] = sum
			}
		}
	})
	return out, nil
}

// Project applies a (C,H) weight matrix position-wise to a (B,T,C) batch,
// producing (B,T,H). Equivalent to a batched matmul broadcast over B.
func Project(x, w *Tensor) (*Tensor, error) {
	if x.Rank() != 3 {
		return nil, fmt.Errorf("project: expected 3D input, got %v", x.shape)
	}
	if w.Rank() != 2 {
		return nil, fmt.Errorf("project: expected 2D weight, got %v", w.shape)
	}
	batch, seqLen, dim := x.shape[0], x.shape[1], x.shape[2]
	if w.shape[0] != dim {
		return nil, fmt.Errorf("project: input dim %d does not match weight %v", dim, w.shape)
	}
	headDim := w.shape[1]
	// Positions are independent, so the batch folds into the row axis
	flat := &Tensor{shape: []int{batch * seqLen, dim}, data: x.data}
	prod, err := MatMul(flat, w)
	if err != nil {
		return nil, err
	}
	return &Tensor{shape: []int{batch, seqLen, headDim}, data: prod.data}, nil
}

// Scores computes pairwise query-key dot products per batch element:
// (B,T,H) x (B,T,H) -> (B,T,T), scores[b,i,j] = q[b,i,:] . k[b,j,:]
func Scores(q, k *Tensor) (*Tensor, error) {
	if q.Rank() != 3 || k.Rank() != 3 {
		return nil, fmt.Errorf("scores: expected 3D operands, got %v x %v", q.shape, k.shape)
	}
	if !SameShape(q, k) {
		return nil, fmt.Errorf("scores: shape mismatch %v x %v", q.shape, k.shape)
	}
	batch, seqLen, headDim := q.shape[0], q.shape[1], q.shape[2]
	out, _ := New(batch, seqLen, seqLen)
	qd, kd, od := q.data, k.data, out.data
	rows := batch * seqLen
	parallelRows(rows, func(rowStart, rowEnd int) {
		for row := rowStart; row < rowEnd; row++ {
			b := row / seqLen
			qOffset := row * headDim
			kBase := b * seqLen * headDim
			outOffset := row * seqLen
			for j := 0; j < seqLen; j++ {
				kOffset := kBase + j*headDim
				var sum float32
				for l := 0; l < headDim; l++ {
					sum += qd[qOffset+l] * kd[kOffset+l]
				}
				od[outOffset+j] = sum
			}
		}
	})
	return out, nil
}

// WeightedSum aggregates value vectors by attention weights:
// (B,T,T) x (B,T,H) -> (B,T,H), out[b,i,:] = sum_j w[b,i,j] * v[b,j,:]
func WeightedSum(w, v *Tensor) (*Tensor, error) {
	if w.Rank() != 3 || v.Rank() != 3 {
		return nil, fmt.Errorf("weighted sum: expected 3D operands, got %v x %v", w.shape, v.shape)
	}
	batch, seqLen := w.shape[0], w.shape[1]
	if w.shape[2] != seqLen || v.shape[0] != batch || v.shape[1] != seqLen {
		return nil, fmt.Errorf("weighted sum: shape mismatch %v x %v", w.shape, v.shape)
	}
	headDim := v.shape[2]
	out, _ := New(batch, seqLen, headDim)
	wd, vd, od := w.data, v.data, out.data
	rows := batch * seqLen
	parallelRows(rows, func(rowStart, rowEnd int) {
		for row := rowStart; row < rowEnd; row++ {
			b := row / seqLen
			wOffset := row * seqLen
			vBase := b * seqLen * headDim
			outOffset := row * headDim
			for j := 0; j < seqLen; j++ {
				weight := wd[wOffset+j]
				if weight == 0 {
					continue
				}
				vOffset := vBase + j*headDim
				for l := 0; l < headDim; l++ {
					od[outOffset+l] += weight * vd[vOffset+l]
				}
			}
		}
	})
	return out, nil
}
