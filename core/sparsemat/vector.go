package sparsemat

import (
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// SparseVec is a sparse vector with a declared dimension. Indices are in
// range and strictly increasing; this is checked once at construction and
// trusted by every operation afterwards.
type SparseVec struct {
	dim     int
	indices []uint32
	data    []float32
}

// NewSparseVec creates a sparse vector from parallel index and value slices.
// The slices are kept, not copied. Panics when the indices are out of range,
// unsorted, or duplicated, or when the slices have different lengths: an
// invalid vector is a bug in the producer, not a runtime condition.
func NewSparseVec(dim int, indices []uint32, data []float32) SparseVec {
	if len(indices) != len(data) {
		panic(fmt.Sprintf("sparsemat: index/value length mismatch: %d != %d", len(indices), len(data)))
	}
	for i, idx := range indices {
		if int(idx) >= dim {
			panic(fmt.Sprintf("sparsemat: index %d out of range for dimension %d", idx, dim))
		}
		if i > 0 && idx <= indices[i-1] {
			panic(fmt.Sprintf("sparsemat: indices not strictly increasing at position %d", i))
		}
	}
	return SparseVec{dim: dim, indices: indices, data: data}
}

// NewSparseVecFromPairs creates a sparse vector from a valid pair sequence.
func NewSparseVecFromPairs(dim int, pairs IndexValues) SparseVec {
	indices := make([]uint32, len(pairs))
	data := make([]float32, len(pairs))
	for i, iv := range pairs {
		indices[i] = iv.Index
		data[i] = iv.Value
	}
	return NewSparseVec(dim, indices, data)
}

// Dim returns the declared dimension of the vector.
func (v SparseVec) Dim() int { return v.dim }

// NNZ returns the number of stored entries.
func (v SparseVec) NNZ() int { return len(v.data) }

// Indices returns the stored indices. The slice is shared, not copied;
// callers must not mutate it.
func (v SparseVec) Indices() []uint32 { return v.indices }

// Data returns the stored values. The slice is shared, not copied.
func (v SparseVec) Data() []float32 { return v.data }

// DotDense computes the dot product against a dense vector of the same
// dimension by scanning the stored entries.
func (v SparseVec) DotDense(dense []float32) float32 {
	if len(dense) != v.dim {
		panic(fmt.Sprintf("sparsemat: dimension mismatch: %d != %d", v.dim, len(dense)))
	}
	var sum float32
	for k, idx := range v.indices {
		sum += v.data[k] * dense[idx]
	}
	return sum
}

// DotSelf computes the dot product of the vector with itself.
func (v SparseVec) DotSelf() float32 {
	if len(v.data) == 0 {
		return 0
	}
	return vek32.Dot(v.data, v.data)
}

// L2Normalize scales every stored value by the inverse L2 norm.
// A zero-norm vector is left unchanged.
func (v SparseVec) L2Normalize() {
	sum := v.DotSelf()
	if sum == 0 {
		return
	}
	vek32.MulNumber_Inplace(v.data, 1/float32(math.Sqrt(float64(sum))))
}
