package model

import (
	"math"
	"reflect"
	"testing"

	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

func testHyper(loss LossType) HyperParam {
	h := DefaultHyperParam()
	h.Linear.LossType = loss
	return h
}

func singleLeafTree(labels []uint32, cols ...sparsemat.SparseVec) Tree {
	return Tree{Root: &LeafNode{Weights: weights(cols...), Labels: labels}}
}

func TestModelPredictAveragesAcrossTrees(t *testing.T) {
	// Tree A scores label 7 at sigmoid(ln 4) = 0.8; tree B never emits it.
	// The forest average divides by the tree count, so 0.8 becomes 0.4.
	ln4 := float32(math.Log(4))
	m := &Model{
		Trees: []Tree{
			singleLeafTree([]uint32{7}, sparsemat.NewSparseVecFromPairs(3, sparsemat.IndexValues{{Index: 2, Value: ln4}})),
			singleLeafTree([]uint32{3}, sparsemat.NewSparseVecFromPairs(3, nil)),
		},
		NFeatures: 2,
		Hyper:     testHyper(LossTypeLog),
	}

	// Empty input: the feature vector is bias-only, so only the bias weight
	// contributes to each margin.
	got := m.Predict(nil, 10)
	want := []LabelScore{{Label: 7, Score: 0.8 / 2}, {Label: 3, Score: 0.5 / 2}}
	if len(got) != len(want) {
		t.Fatalf("Predict returned %d labels, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Label != want[i].Label {
			t.Errorf("rank %d: label = %d, want %d", i, got[i].Label, want[i].Label)
		}
		if diff := got[i].Score - want[i].Score; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("rank %d: score = %v, want %v", i, got[i].Score, want[i].Score)
		}
	}
}

func TestModelPredictSingleTreeMatchesTreePredict(t *testing.T) {
	m := &Model{Trees: []Tree{testTree()}, NFeatures: 2, Hyper: testHyper(LossTypeLog)}

	fv := newFeatureVec(testPairs, 2)
	fromTree := m.Trees[0].predict(fv, 100, LossTypeLog)
	treeScores := make(map[uint32]float32, len(fromTree))
	for _, ls := range fromTree {
		treeScores[ls.Label] = ls.Score
	}

	got := m.Predict(testPairs, 100)
	if len(got) != len(fromTree) {
		t.Fatalf("Predict returned %d labels, want %d", len(got), len(fromTree))
	}
	for _, ls := range got {
		if diff := ls.Score - treeScores[ls.Label]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("label %d: score = %v, want %v", ls.Label, ls.Score, treeScores[ls.Label])
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not descending at rank %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestModelPredictDeterministic(t *testing.T) {
	// The per-tree workers must not affect the merged result.
	trees := make([]Tree, 8)
	for i := range trees {
		trees[i] = testTree()
	}
	m := &Model{Trees: trees, NFeatures: 2, Hyper: testHyper(LossTypeLog)}

	first := m.Predict(testPairs, 3)
	for run := 0; run < 10; run++ {
		if got := m.Predict(testPairs, 3); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: predictions differ: %v vs %v", run, got, first)
		}
	}
}

func TestModelPredictContractViolations(t *testing.T) {
	m := &Model{Trees: []Tree{testTree()}, NFeatures: 2, Hyper: testHyper(LossTypeLog)}

	mustPanic(t, "beam size 0", func() { m.Predict(testPairs, 0) })
	mustPanic(t, "unsorted pairs", func() {
		m.Predict(sparsemat.IndexValues{{Index: 1, Value: 1}, {Index: 0, Value: 1}}, 10)
	})
	mustPanic(t, "out-of-range feature", func() {
		m.Predict(sparsemat.IndexValues{{Index: 2, Value: 1}}, 10)
	})
}

func TestModelDensifyPreservesPredictions(t *testing.T) {
	m := &Model{Trees: []Tree{testTree()}, NFeatures: 2, Hyper: testHyper(LossTypeLog)}
	before := m.Predict(testPairs, 100)

	m.Densify()
	for _, tree := range m.Trees {
		assertAllDense(t, tree.Root)
	}

	after := m.Predict(testPairs, 100)
	if len(before) != len(after) {
		t.Fatalf("label count changed after Densify: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Label != after[i].Label {
			t.Errorf("rank %d: label changed from %d to %d", i, before[i].Label, after[i].Label)
		}
		if diff := before[i].Score - after[i].Score; diff > 1e-5 || diff < -1e-5 {
			t.Errorf("label %d: score changed from %v to %v", before[i].Label, before[i].Score, after[i].Score)
		}
	}
}

func assertAllDense(t *testing.T, n TreeNode) {
	t.Helper()
	switch node := n.(type) {
	case *BranchNode:
		if !node.Weights.IsDense() {
			t.Error("branch weights still sparse after Densify")
		}
		for _, child := range node.Children {
			assertAllDense(t, child)
		}
	case *LeafNode:
		if !node.Weights.IsDense() {
			t.Error("leaf weights still sparse after Densify")
		}
	}
}

func TestModelStats(t *testing.T) {
	m := &Model{Trees: []Tree{testTree(), testTree()}, NFeatures: 2, Hyper: testHyper(LossTypeLog)}
	stats := m.Stats()
	if stats.Trees != 2 {
		t.Errorf("Trees = %d, want 2", stats.Trees)
	}
	if stats.Branches != 6 {
		t.Errorf("Branches = %d, want 6", stats.Branches)
	}
	if stats.Leaves != 8 {
		t.Errorf("Leaves = %d, want 8", stats.Leaves)
	}
	if stats.LabelSlots != 16 {
		t.Errorf("LabelSlots = %d, want 16", stats.LabelSlots)
	}
	if stats.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", stats.MaxDepth)
	}
}
