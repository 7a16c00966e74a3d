package model

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

// Model owns a forest of trees trained over a shared feature space, plus the
// hyper-parameters that produced it. It is immutable during prediction
// (Densify being the one explicit exception, called before serving) and safe
// for concurrent use.
type Model struct {
	Trees     []Tree
	NFeatures int
	Hyper     HyperParam
}

// Predict returns a ranked list of (label, score) pairs for the input
// example.
//
// pairs must be ordered by index with no duplicate or out-of-range indices;
// beamSize must be >= 1. Trees are searched independently and in parallel.
// Per-tree scores are summed per label and divided by the tree count, so a
// label some trees never reached is averaged as if those trees scored it 0.
func (m *Model) Predict(pairs sparsemat.IndexValues, beamSize int) []LabelScore {
	fv := newFeatureVec(pairs, m.NFeatures)
	loss := m.Hyper.Linear.LossType

	treePredictions := make([][]LabelScore, len(m.Trees))

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(m.Trees) {
		numWorkers = len(m.Trees)
	}
	if numWorkers > 1 {
		chunkSize := (len(m.Trees) + numWorkers - 1) / numWorkers
		var wg sync.WaitGroup
		for w := 0; w < numWorkers; w++ {
			start := w * chunkSize
			end := min(start+chunkSize, len(m.Trees))
			if start >= end {
				break
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				for i := start; i < end; i++ {
					treePredictions[i] = m.Trees[i].predict(fv, beamSize, loss)
				}
			}(start, end)
		}
		wg.Wait()
	} else {
		for i := range m.Trees {
			treePredictions[i] = m.Trees[i].predict(fv, beamSize, loss)
		}
	}

	totals := make(map[uint32]float32)
	for _, prediction := range treePredictions {
		for _, ls := range prediction {
			totals[ls.Label] += ls.Score
		}
	}

	nTrees := float32(len(m.Trees))
	ranked := make([]LabelScore, 0, len(totals))
	for label, total := range totals {
		ranked = append(ranked, LabelScore{Label: label, Score: total / nTrees})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i].Score, ranked[j].Score
		if a != a || b != b {
			panic(fmt.Sprintf("model: numeric error: unable to compare %v and %v", a, b))
		}
		return a > b
	})
	return ranked
}

// Densify converts every classifier group in the forest to dense storage.
func (m *Model) Densify() {
	for i := range m.Trees {
		m.Trees[i].Densify()
	}
}

// ForestStats summarizes a model's forest for diagnostics.
type ForestStats struct {
	Trees        int
	MaxDepth     int
	Branches     int
	Leaves       int
	LabelSlots   int
	DenseGroups  int
	SparseGroups int
	WeightBytes  int
}

// Stats walks the forest and tallies its structure and weight storage.
func (m *Model) Stats() ForestStats {
	stats := ForestStats{Trees: len(m.Trees)}
	for i := range m.Trees {
		if d := m.Trees[i].Depth(); d > stats.MaxDepth {
			stats.MaxDepth = d
		}
		statsNode(m.Trees[i].Root, &stats)
	}
	return stats
}

func statsNode(n TreeNode, stats *ForestStats) {
	switch node := n.(type) {
	case *BranchNode:
		stats.Branches++
		stats.WeightBytes += node.Weights.MemSize()
		if node.Weights.IsDense() {
			stats.DenseGroups++
		} else {
			stats.SparseGroups++
		}
		for _, child := range node.Children {
			statsNode(child, stats)
		}
	case *LeafNode:
		stats.Leaves++
		stats.LabelSlots += len(node.Labels)
		stats.WeightBytes += node.Weights.MemSize()
		if node.Weights.IsDense() {
			stats.DenseGroups++
		} else {
			stats.SparseGroups++
		}
	}
}
