package sparsemat

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"
)

// DenseMat is a dense float32 matrix in flat row-major storage.
type DenseMat struct {
	rows, cols int
	data       []float32
}

// NewDenseMat creates a zero-initialized dense matrix of the given shape.
func NewDenseMat(rows, cols int) *DenseMat {
	return &DenseMat{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// Shape returns the (rows, cols) of the matrix.
func (m *DenseMat) Shape() (int, int) { return m.rows, m.cols }

// At returns the element at row i, column j.
func (m *DenseMat) At(i, j int) float32 { return m.data[i*m.cols+j] }

// Set stores v at row i, column j.
func (m *DenseMat) Set(i, j int, v float32) { m.data[i*m.cols+j] = v }

// Row returns row i as a shared slice.
func (m *DenseMat) Row(i int) []float32 { return m.data[i*m.cols : (i+1)*m.cols] }

// Data returns the flat row-major backing slice, shared not copied.
func (m *DenseMat) Data() []float32 { return m.data }

// MemSize returns the size of the stored values in bytes.
func (m *DenseMat) MemSize() int { return 4 * len(m.data) }

// TDotDense computes transpose(m) . vec for a dense vector of length rows,
// accumulating vec[i] * row(i) for every row with a non-zero coefficient.
// The result has length cols.
func (m *DenseMat) TDotDense(vec []float32) []float32 {
	if len(vec) != m.rows {
		panic(fmt.Sprintf("sparsemat: dimension mismatch: %d != %d", m.rows, len(vec)))
	}
	out := make([]float32, m.cols)
	if m.cols == 0 {
		return out
	}
	y := blas32.Vector{N: m.cols, Inc: 1, Data: out}
	for i, v := range vec {
		if v == 0 {
			continue
		}
		x := blas32.Vector{N: m.cols, Inc: 1, Data: m.Row(i)}
		blas32.Axpy(v, x, y)
	}
	return out
}

// TDotCsVec computes transpose(m) . vec for a sparse vector of length rows.
// Only the stored entries of vec are visited.
func (m *DenseMat) TDotCsVec(vec SparseVec) []float32 {
	if vec.Dim() != m.rows {
		panic(fmt.Sprintf("sparsemat: dimension mismatch: %d != %d", m.rows, vec.Dim()))
	}
	out := make([]float32, m.cols)
	if m.cols == 0 {
		return out
	}
	y := blas32.Vector{N: m.cols, Inc: 1, Data: out}
	for k, idx := range vec.Indices() {
		x := blas32.Vector{N: m.cols, Inc: 1, Data: m.Row(int(idx))}
		blas32.Axpy(vec.Data()[k], x, y)
	}
	return out
}

// DenseAddAssignCsVec adds the stored entries of a sparse vector into a dense
// vector of the same dimension.
func DenseAddAssignCsVec(dense []float32, vec SparseVec) {
	if len(dense) != vec.Dim() {
		panic(fmt.Sprintf("sparsemat: dimension mismatch: %d != %d", len(dense), vec.Dim()))
	}
	for k, idx := range vec.Indices() {
		dense[idx] += vec.Data()[k]
	}
}
