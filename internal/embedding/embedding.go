// Package embedding holds the token and position lookup tables that produce
// the input batch consumed by the attention head. Tables are fixed at
// construction; there is no training.
package embedding

import (
	"fmt"
	"math/rand"

	"github.com/23skdu/longbow-bodkin/internal/tensor"
)

// Table maps small integer ids to dim-wide rows of a seeded weight matrix
type Table struct {
	rows int
	dim  int
	data []float32
}

// NewTable allocates a (rows, dim) table filled deterministically from seed,
// uniform in [-1,1) scaled by 0.1 to keep summed embeddings O(1).
func NewTable(rows, dim int, seed int64) (*Table, error) {
	if rows <= 0 || dim <= 0 {
		return nil, fmt.Errorf("invalid table shape (%d,%d): must be positive", rows, dim)
	}
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, rows*dim)
	for i := range data {
		data[i] = (rng.Float32()*2 - 1) * 0.1
	}
	return &Table{rows: rows, dim: dim, data: data}, nil
}

func (t *Table) Rows() int {
	return t.rows
}

func (t *Table) Dim() int {
	return t.dim
}

// Lookup returns the row for id. The slice aliases the table; read-only.
func (t *Table) Lookup(id int) ([]float32, error) {
	if id < 0 || id >= t.rows {
		return nil, fmt.Errorf("id %d out of range [0,%d)", id, t.rows)
	}
	return t.data[id*t.dim : (id+1)*t.dim], nil
}

// Embedder combines a token table and a position table into input batches
type Embedder struct {
	tokens    *Table
	positions *Table
}

// New builds an embedder for vocabSize tokens and up to contextLen positions
func New(vocabSize, contextLen, dim int, seed int64) (*Embedder, error) {
	tok, err := NewTable(vocabSize, dim, seed)
	if err != nil {
		return nil, fmt.Errorf("token table: %w", err)
	}
	// Offset the seed so the two tables differ
	pos, err := NewTable(contextLen, dim, seed+1)
	if err != nil {
		return nil, fmt.Errorf("position table: %w", err)
	}
	return &Embedder{tokens: tok, positions: pos}, nil
}

func (e *Embedder) Dim() int {
	return e.tokens.dim
}

func (e *Embedder) ContextLen() int {
	return e.positions.rows
}

// Embed sums token and position rows into a (B,T,C) batch. All sequences
// must have the same length T, 0 < T <= ContextLen.
func (e *Embedder) Embed(batch [][]int) (*tensor.Tensor, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	seqLen := len(batch[0])
	if seqLen == 0 {
		return nil, fmt.Errorf("empty sequence in batch")
	}
	if seqLen > e.positions.rows {
		return nil, fmt.Errorf("sequence length %d exceeds context length %d", seqLen, e.positions.rows)
	}

	dim := e.tokens.dim
	out, err := tensor.New(len(batch), seqLen, dim)
	if err != nil {
		return nil, err
	}
	for b, seq := range batch {
		if len(seq) != seqLen {
			return nil, fmt.Errorf("ragged batch: sequence %d has length %d, want %d", b, len(seq), seqLen)
		}
		for t, id := range seq {
			tokRow, err := e.tokens.Lookup(id)
			if err != nil {
				return nil, fmt.Errorf("sequence %d position %d: %w", b, t, err)
			}
			posRow, err := e.positions.Lookup(t)
			if err != nil {
				return nil, fmt.Errorf("sequence %d position %d: %w", b, t, err)
			}
			dst := out.Row(b, t)
			for l := 0; l < dim; l++ {
				dst[l] = tokRow[l] + posRow[l]
			}
		}
	}
	return out, nil
}
