// Package sparsemat provides the compact sparse vector and matrix types used
// to store one-vs-all linear classifier weights, together with the dot-product
// kernels used during prediction.
package sparsemat

import (
	"math"
	"sort"

	"github.com/chewxy/math32"
)

// IndexValue is a single entry of a sparse vector: an index paired with its
// value.
type IndexValue struct {
	Index uint32
	Value float32
}

// IndexValues is a sequence of index/value pairs representing a sparse vector.
//
// A sequence is valid for a declared length L when it is empty, or when every
// index is < L and indices are strictly increasing (sorted, no duplicates).
// Consumers assume validity instead of reverifying it; producers are
// responsible for upholding it.
type IndexValues []IndexValue

// IsValid reports whether the pairs form a valid sparse vector of the given
// length. Runs in O(n) and short-circuits on the first violation.
func (p IndexValues) IsValid(length int) bool {
	if len(p) == 0 {
		return true
	}
	if int(p[0].Index) >= length {
		return false
	}
	for i := 1; i < len(p); i++ {
		if int(p[i].Index) >= length || p[i].Index <= p[i-1].Index {
			return false
		}
	}
	return true
}

// SortByIndex sorts the pairs by index in place with an unstable sort.
// Meant for construction time, before the validity invariant is established.
func (p IndexValues) SortByIndex() {
	sort.Slice(p, func(i, j int) bool { return p[i].Index < p[j].Index })
}

// L2Normalize scales every value by the inverse L2 norm of the vector.
// A zero-norm vector is left unchanged.
func (p IndexValues) L2Normalize() {
	var sum float32
	for _, iv := range p {
		sum += iv.Value * iv.Value
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(float64(sum)))
	for i := range p {
		p[i].Value /= norm
	}
}

// PruneWithThreshold removes every pair whose absolute value is below the
// threshold, preserving the relative order of the survivors.
func (p *IndexValues) PruneWithThreshold(threshold float32) {
	kept := (*p)[:0]
	for _, iv := range *p {
		if math32.Abs(iv.Value) >= threshold {
			kept = append(kept, iv)
		}
	}
	*p = kept
}
