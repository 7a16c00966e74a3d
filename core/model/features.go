package model

import (
	"fmt"
	"math"

	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

// FeatureVec is one input example materialized in both sparse and dense form,
// so each classifier group can use the cheaper dot-product kernel for its
// storage variant without re-deriving either form per call.
type FeatureVec struct {
	Sparse sparsemat.SparseVec
	Dense  []float32
}

// newFeatureVec L2-normalizes the input pairs by their own pre-bias norm,
// appends the implicit bias feature (index nFeatures, value 1), and
// materializes the dense form eagerly.
//
// The pairs must satisfy the sparse-vector validity invariant for nFeatures;
// a violation is a bug in the caller and panics.
func newFeatureVec(pairs sparsemat.IndexValues, nFeatures int) *FeatureVec {
	if !pairs.IsValid(nFeatures) {
		panic(fmt.Sprintf("model: feature vector is not sorted, duplicate-free and in range for %d features", nFeatures))
	}

	var sum float32
	for _, iv := range pairs {
		sum += iv.Value * iv.Value
	}
	norm := float32(math.Sqrt(float64(sum)))

	indices := make([]uint32, 0, len(pairs)+1)
	data := make([]float32, 0, len(pairs)+1)
	for _, iv := range pairs {
		v := iv.Value
		if norm != 0 {
			v /= norm
		}
		indices = append(indices, iv.Index)
		data = append(data, v)
	}
	indices = append(indices, uint32(nFeatures))
	data = append(data, 1)

	sparse := sparsemat.NewSparseVec(nFeatures+1, indices, data)
	dense := make([]float32, nFeatures+1)
	sparsemat.DenseAddAssignCsVec(dense, sparse)
	return &FeatureVec{Sparse: sparse, Dense: dense}
}
