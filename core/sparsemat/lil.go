package sparsemat

import (
	"fmt"
	"math"
	"sort"
)

// indexFromInt converts a non-negative int to the uint32 index type, panicking
// with the attempted value rather than truncating silently.
func indexFromInt(v int) uint32 {
	if v < 0 || v > math.MaxUint32 {
		panic(fmt.Sprintf("sparsemat: failed to convert %d to uint32 index", v))
	}
	return uint32(v)
}

// LilMat is a sparse matrix stored in a compact list-of-lists format.
//
// Storage is outer-major: the matrix has len(indptr)-1 non-empty outer rows.
// The i-th non-empty outer row has index outerInds[i], and its stored values
// have inner indices innerInds[indptr[i]:indptr[i+1]] (strictly increasing)
// with values data[indptr[i]:indptr[i+1]]. Across rows outerInds is strictly
// increasing, and data never holds an exact zero.
type LilMat struct {
	outerDim  int
	innerDim  int
	indptr    []int
	outerInds []uint32
	innerInds []uint32
	data      []float32
}

// NewLilMat creates an all-zero matrix of the given shape.
func NewLilMat(outerDim, innerDim int) *LilMat {
	return &LilMat{
		outerDim: outerDim,
		innerDim: innerDim,
		indptr:   []int{0},
	}
}

// NewLilMatWithCapacity creates an all-zero matrix with preallocated storage.
// nnzOuter is the estimated number of non-empty outer rows and nnz the
// estimated total number of stored values.
func NewLilMatWithCapacity(outerDim, innerDim, nnzOuter, nnz int) *LilMat {
	indptr := make([]int, 1, nnzOuter+1)
	return &LilMat{
		outerDim:  outerDim,
		innerDim:  innerDim,
		indptr:    indptr,
		outerInds: make([]uint32, 0, nnzOuter),
		innerInds: make([]uint32, 0, nnz),
		data:      make([]float32, 0, nnz),
	}
}

// LilMatFromColumns builds a matrix from sparse column vectors that all share
// the same declared row dimension. The triplets are sorted by (row, column)
// and appended in order, so the result is stored row-major: the outer index is
// the row and the inner index is the column, a transpose of the builder's
// column-wise arguments.
func LilMatFromColumns(colVecs []SparseVec) *LilMat {
	if len(colVecs) == 0 {
		return NewLilMat(0, 0)
	}

	cols, rows := len(colVecs), colVecs[0].Dim()

	type triplet struct {
		row, col uint32
		val      float32
	}
	var triplets []triplet
	maxColNNZ, nnz := 0, 0
	for col, vec := range colVecs {
		if vec.Dim() != rows {
			panic(fmt.Sprintf("sparsemat: unexpected column vector dimension %d; expected %d", vec.Dim(), rows))
		}
		if vec.NNZ() > maxColNNZ {
			maxColNNZ = vec.NNZ()
		}
		nnz += vec.NNZ()
		for k, row := range vec.Indices() {
			triplets = append(triplets, triplet{row: row, col: indexFromInt(col), val: vec.Data()[k]})
		}
	}

	sort.Slice(triplets, func(i, j int) bool {
		if triplets[i].row != triplets[j].row {
			return triplets[i].row < triplets[j].row
		}
		return triplets[i].col < triplets[j].col
	})

	mat := NewLilMatWithCapacity(rows, cols, maxColNNZ, nnz)
	for _, t := range triplets {
		mat.AppendValue(int(t.row), int(t.col), t.val)
	}
	return mat
}

// Shape returns the (outer, inner) dimensions.
func (m *LilMat) Shape() (int, int) { return m.outerDim, m.innerDim }

// NNZ returns the number of stored values.
func (m *LilMat) NNZ() int { return len(m.data) }

// Density returns the fraction of non-zero entries. A matrix with zero rows
// and zero columns has no well-defined density and yields NaN.
func (m *LilMat) Density() float64 {
	if m.outerDim == 0 && m.innerDim == 0 {
		return math.NaN()
	}
	return float64(m.NNZ()) / (float64(m.outerDim) * float64(m.innerDim))
}

// MemSize returns the size in bytes of the four storage arrays.
func (m *LilMat) MemSize() int {
	return 8*len(m.indptr) + 4*len(m.outerInds) + 4*len(m.innerInds) + 4*len(m.data)
}

// AppendValue appends a value to the matrix in O(1) amortized time.
//
// Calls must arrive in non-descending outer order and, within an outer index,
// strictly ascending inner order; violating that is a bug in the caller and
// panics. An exactly-zero value is silently dropped.
func (m *LilMat) AppendValue(outerInd, innerInd int, value float32) {
	if value == 0 {
		return
	}
	if outerInd >= m.outerDim {
		panic(fmt.Sprintf("sparsemat: outer index %d out of range for dimension %d", outerInd, m.outerDim))
	}
	if innerInd >= m.innerDim {
		panic(fmt.Sprintf("sparsemat: inner index %d out of range for dimension %d", innerInd, m.innerDim))
	}

	outer, inner := indexFromInt(outerInd), indexFromInt(innerInd)

	// Either the matrix is empty or the last outer index is strictly less
	// than the new one: start a new outer row.
	if len(m.outerInds) == 0 || m.outerInds[len(m.outerInds)-1] < outer {
		m.outerInds = append(m.outerInds, outer)
		m.indptr = append(m.indptr, len(m.innerInds))
	} else {
		// Otherwise we must be appending to the same outer row as the last
		// value, at a strictly larger inner index.
		if m.outerInds[len(m.outerInds)-1] != outer {
			panic(fmt.Sprintf("sparsemat: outer index %d out of order", outer))
		}
		if m.innerInds[len(m.innerInds)-1] >= inner {
			panic(fmt.Sprintf("sparsemat: inner index %d out of order", inner))
		}
	}

	m.innerInds = append(m.innerInds, inner)
	m.data = append(m.data, value)
	m.indptr[len(m.indptr)-1]++
}

// AssignToDense scatters the stored values into a dense matrix of the same
// shape. Entries of the target that correspond to zeros are left untouched.
func (m *LilMat) AssignToDense(dst *DenseMat) {
	rows, cols := dst.Shape()
	if rows != m.outerDim || cols != m.innerDim {
		panic(fmt.Sprintf("sparsemat: dimension mismatch: (%d, %d) != (%d, %d)", m.outerDim, m.innerDim, rows, cols))
	}
	for i, outer := range m.outerInds {
		lo, hi := m.indptr[i], m.indptr[i+1]
		for k := lo; k < hi; k++ {
			dst.Set(int(outer), int(m.innerInds[k]), m.data[k])
		}
	}
}

// ToDense converts the matrix to a zero-initialized dense matrix with the
// stored values scattered in.
func (m *LilMat) ToDense() *DenseMat {
	dense := NewDenseMat(m.outerDim, m.innerDim)
	m.AssignToDense(dense)
	return dense
}

// TDotCsVec computes transpose(m) . vec without materializing the transpose.
//
// For each stored entry of the input vector, the matching outer row is found
// by binary search restricted to the suffix of outerInds not yet scanned;
// since both sequences are sorted ascending this makes the repeated searches
// amortized near-linear. On a hit the product is scattered into the output at
// every stored inner index of that row.
func (m *LilMat) TDotCsVec(vec SparseVec) []float32 {
	tCols, tRows := m.Shape()
	if tCols != vec.Dim() {
		panic(fmt.Sprintf("sparsemat: dimension mismatch: %d != %d", tCols, vec.Dim()))
	}
	out := make([]float32, tRows)

	i := 0 // next matrix outer position from which to binary search
	for k, outerIdx := range vec.Indices() {
		val1 := vec.Data()[k]
		// The search runs on outerInds[i:], so the returned offset is
		// relative to i.
		di := sort.Search(len(m.outerInds)-i, func(d int) bool {
			return m.outerInds[i+d] >= outerIdx
		})
		i += di
		if i < len(m.outerInds) && m.outerInds[i] == outerIdx {
			lo, hi := m.indptr[i], m.indptr[i+1]
			for t := lo; t < hi; t++ {
				out[m.innerInds[t]] += val1 * m.data[t]
			}
		}
	}
	return out
}
