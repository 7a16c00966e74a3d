package sparsemat

// WeightMat is one group of one-vs-all classifier weights, shaped
// (#features, #classes), stored in whichever of dense or sparse format is
// smaller. Features-major storage keeps the dense variant cache friendly.
//
// Exactly one of the two variants is set; the set is closed.
type WeightMat struct {
	sparse *LilMat
	dense  *DenseMat
}

// WeightMatFromColumns builds a weight matrix from per-class sparse weight
// vectors, one column per class, all sharing the feature dimension.
//
// The dense format is chosen iff the raw byte size of the dense array is no
// larger than the byte size of the sparse encoding; call Densify to force the
// dense format regardless, trading size for speed.
func WeightMatFromColumns(colVecs []SparseVec) *WeightMat {
	mat := LilMatFromColumns(colVecs)
	sparseSize := mat.MemSize()

	rows, cols := mat.Shape()
	denseSize := 4 * rows * cols

	if denseSize <= sparseSize {
		return &WeightMat{dense: mat.ToDense()}
	}
	return &WeightMat{sparse: mat}
}

// IsDense reports whether the matrix is stored in dense format.
func (w *WeightMat) IsDense() bool { return w.dense != nil }

// Shape returns the (#features, #classes) shape of the matrix.
func (w *WeightMat) Shape() (int, int) {
	if w.dense != nil {
		return w.dense.Shape()
	}
	return w.sparse.Shape()
}

// Density returns the ratio of non-zero elements; 1 for a dense matrix.
func (w *WeightMat) Density() float64 {
	if w.dense != nil {
		return 1
	}
	return w.sparse.Density()
}

// MemSize returns the byte size of the active storage.
func (w *WeightMat) MemSize() int {
	if w.dense != nil {
		return w.dense.MemSize()
	}
	return w.sparse.MemSize()
}

// Densify converts the matrix to dense storage if it is not already dense.
// Idempotent and one-directional: there is no forced re-sparsification.
func (w *WeightMat) Densify() {
	if w.dense != nil {
		return
	}
	w.dense = w.sparse.ToDense()
	w.sparse = nil
}

// TDotVec computes transpose(w) . vec, equivalent to dot(vec, w), dispatching
// to the kernel of the active variant. This is the single dot-product entry
// point used by prediction. The result has one entry per class.
func (w *WeightMat) TDotVec(vec SparseVec) []float32 {
	if w.dense != nil {
		return w.dense.TDotCsVec(vec)
	}
	return w.sparse.TDotCsVec(vec)
}

// TDotFeatureVec computes transpose(w) . vec given the same feature vector in
// both sparse and dense form, choosing the cheaper kernel per variant: dense
// weights consume the dense form with a multiply-accumulate over the outer
// rows, sparse weights consume the sparse form with the binary-search kernel.
func (w *WeightMat) TDotFeatureVec(sparse SparseVec, dense []float32) []float32 {
	if w.dense != nil {
		return w.dense.TDotDense(dense)
	}
	return w.sparse.TDotCsVec(sparse)
}
