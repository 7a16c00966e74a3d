package sparsemat

import (
	"fmt"
	"sort"
)

// StorageOrder selects which axis of a compressed sparse matrix is the outer
// (explicitly indexed) one.
type StorageOrder int

const (
	// RowMajor stores one index-pointer slice entry per row (CSR).
	RowMajor StorageOrder = iota
	// ColMajor stores one index-pointer slice entry per column (CSC).
	ColMajor
)

// CsMat is a general compressed sparse matrix in either row-major (CSR) or
// column-major (CSC) layout. Unlike LilMat it stores an index-pointer entry
// for every outer slice, empty or not.
type CsMat struct {
	order   StorageOrder
	rows    int
	cols    int
	indptr  []int
	indices []uint32
	data    []float32
}

// NewCsMat assembles a compressed sparse matrix from raw storage, panicking
// when the structure is malformed: producing broken compressed storage is a
// contract bug, not a runtime condition.
func NewCsMat(order StorageOrder, rows, cols int, indptr []int, indices []uint32, data []float32) *CsMat {
	m := &CsMat{order: order, rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}
	outer, inner := m.OuterDims(), m.InnerDims()
	if len(indptr) != outer+1 {
		panic(fmt.Sprintf("sparsemat: indptr length %d does not match outer dimension %d", len(indptr), outer))
	}
	if indptr[0] != 0 || indptr[outer] != len(indices) || len(indices) != len(data) {
		panic("sparsemat: inconsistent compressed storage lengths")
	}
	for o := 0; o < outer; o++ {
		lo, hi := indptr[o], indptr[o+1]
		if lo > hi {
			panic(fmt.Sprintf("sparsemat: indptr decreases at outer index %d", o))
		}
		for k := lo; k < hi; k++ {
			if int(indices[k]) >= inner {
				panic(fmt.Sprintf("sparsemat: inner index %d out of range for dimension %d", indices[k], inner))
			}
			if k > lo && indices[k] <= indices[k-1] {
				panic(fmt.Sprintf("sparsemat: inner indices not strictly increasing in outer slice %d", o))
			}
		}
	}
	return m
}

// CsMatFromIndexValueLists builds a row-major matrix from one valid pair
// sequence per row.
func CsMatFromIndexValueLists(rows []IndexValues, nCols int) *CsMat {
	indptr := make([]int, 1, len(rows)+1)
	var indices []uint32
	var data []float32

	for _, row := range rows {
		for _, iv := range row {
			if int(iv.Index) >= nCols {
				panic(fmt.Sprintf("sparsemat: index %d out of range for %d columns", iv.Index, nCols))
			}
			indices = append(indices, iv.Index)
			data = append(data, iv.Value)
		}
		indptr = append(indptr, len(indices))
	}

	return NewCsMat(RowMajor, len(rows), nCols, indptr, indices, data)
}

// Order returns the storage order.
func (m *CsMat) Order() StorageOrder { return m.order }

// Shape returns the logical (rows, cols) of the matrix.
func (m *CsMat) Shape() (int, int) { return m.rows, m.cols }

// NNZ returns the number of stored values.
func (m *CsMat) NNZ() int { return len(m.data) }

// OuterDims returns the number of outer slices (rows for CSR, columns for CSC).
func (m *CsMat) OuterDims() int {
	if m.order == RowMajor {
		return m.rows
	}
	return m.cols
}

// InnerDims returns the length of each outer slice.
func (m *CsMat) InnerDims() int {
	if m.order == RowMajor {
		return m.cols
	}
	return m.rows
}

// OuterView returns the inner indices and values of one outer slice as shared
// sub-slices. Both are empty for an empty slice.
func (m *CsMat) OuterView(i int) ([]uint32, []float32) {
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi], m.data[lo:hi]
}

// CopyOuterDims builds a new compact matrix containing only the requested
// outer slices, in the requested order. Slices may repeat or be omitted; the
// selection may be empty.
func (m *CsMat) CopyOuterDims(outer []int) *CsMat {
	indptr := make([]int, 1, len(outer)+1)
	indices := make([]uint32, 0, len(outer)*2)
	data := make([]float32, 0, len(outer)*2)

	for _, o := range outer {
		if o >= 0 && o < m.OuterDims() {
			inds, vals := m.OuterView(o)
			indices = append(indices, inds...)
			data = append(data, vals...)
		}
		indptr = append(indptr, len(indices))
	}

	rows, cols := len(outer), m.InnerDims()
	if m.order == ColMajor {
		rows, cols = cols, rows
	}
	return NewCsMat(m.order, rows, cols, indptr, indices, data)
}

// TransposeInto returns the transpose of the matrix, reusing the raw storage
// with the opposite storage order.
func (m *CsMat) TransposeInto() *CsMat {
	order := ColMajor
	if m.order == ColMajor {
		order = RowMajor
	}
	return &CsMat{order: order, rows: m.cols, cols: m.rows, indptr: m.indptr, indices: m.indices, data: m.data}
}

// ShrinkInnerIndices rewrites the matrix into the smallest inner-index space
// that covers the indices actually referenced. It returns the compacted
// matrix and the new-to-old index mapping; the operation is reversed by
// calling RemapInnerIndices with that mapping.
func (m *CsMat) ShrinkInnerIndices() (*CsMat, []uint32) {
	seen := make(map[uint32]struct{}, m.InnerDims())
	newToOld := make([]uint32, 0, m.InnerDims())
	for _, idx := range m.indices {
		if _, ok := seen[idx]; !ok {
			seen[idx] = struct{}{}
			newToOld = append(newToOld, idx)
		}
	}
	sort.Slice(newToOld, func(i, j int) bool { return newToOld[i] < newToOld[j] })

	oldToNew := make([]uint32, m.InnerDims())
	for newIdx, oldIdx := range newToOld {
		oldToNew[oldIdx] = indexFromInt(newIdx)
	}

	return m.RemapInnerIndices(oldToNew, len(newToOld)), newToOld
}

// RemapInnerIndices rewrites every inner index through the given mapping and
// declares the new inner dimension. The mapping is assumed to be well-formed:
// order-preserving, within range, and without duplicates on the referenced
// indices. The storage order of the result matches the receiver.
func (m *CsMat) RemapInnerIndices(oldToNew []uint32, newInnerDims int) *CsMat {
	indices := make([]uint32, len(m.indices))
	for k, idx := range m.indices {
		indices[k] = oldToNew[idx]
	}
	indptr := make([]int, len(m.indptr))
	copy(indptr, m.indptr)
	data := make([]float32, len(m.data))
	copy(data, m.data)

	rows, cols := m.OuterDims(), newInnerDims
	if m.order == ColMajor {
		rows, cols = cols, rows
	}
	return NewCsMat(m.order, rows, cols, indptr, indices, data)
}

// ToDense converts the matrix to a dense matrix of the logical shape.
func (m *CsMat) ToDense() *DenseMat {
	dense := NewDenseMat(m.rows, m.cols)
	for o := 0; o < m.OuterDims(); o++ {
		inds, vals := m.OuterView(o)
		for k, idx := range inds {
			if m.order == RowMajor {
				dense.Set(o, int(idx), vals[k])
			} else {
				dense.Set(int(idx), o, vals[k])
			}
		}
	}
	return dense
}
