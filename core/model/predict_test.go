package model

import (
	"math"
	"reflect"
	"testing"

	"github.com/chewxy/math32"

	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

// testPairs normalizes to (0.6, 0.8) with the bias at index 2.
var testPairs = sparsemat.IndexValues{{Index: 0, Value: 3}, {Index: 1, Value: 4}}

func weights(cols ...sparsemat.SparseVec) *sparsemat.WeightMat {
	return sparsemat.WeightMatFromColumns(cols)
}

func vec3(w0, w1, w2 float32) sparsemat.SparseVec {
	pairs := sparsemat.IndexValues{}
	for i, v := range []float32{w0, w1, w2} {
		if v != 0 {
			pairs = append(pairs, sparsemat.IndexValue{Index: uint32(i), Value: v})
		}
	}
	return sparsemat.NewSparseVecFromPairs(3, pairs)
}

// testTree builds a two-level tree over 8 labels with distinct margins along
// every path, so rankings have no ties.
func testTree() Tree {
	leaf := func(labels []uint32, cols ...sparsemat.SparseVec) *LeafNode {
		return &LeafNode{Weights: weights(cols...), Labels: labels}
	}
	left := &BranchNode{
		Weights: weights(vec3(2, 0, 0), vec3(0, 0, 1)),
		Children: []TreeNode{
			leaf([]uint32{0, 1}, vec3(1, 0, 0), vec3(0, 1, 0)),
			leaf([]uint32{2, 3}, vec3(0, 0, 0.5), vec3(1, 1, 0)),
		},
	}
	right := &BranchNode{
		Weights: weights(vec3(0, 2, 0), vec3(1, 1, 0)),
		Children: []TreeNode{
			leaf([]uint32{4, 5}, vec3(0, 0, 2), vec3(0, 2, 0)),
			leaf([]uint32{6, 7}, vec3(2, 0, 0), vec3(0, 0, 1)),
		},
	}
	root := &BranchNode{
		Weights:  weights(vec3(1, 0, 0), vec3(0, 1, 0)),
		Children: []TreeNode{left, right},
	}
	return Tree{Root: root}
}

// exhaustiveScores walks every path of the tree, ignoring the beam.
func exhaustiveScores(fv *FeatureVec, n TreeNode, pathScore float32, loss LossType, out map[uint32]float32) {
	switch node := n.(type) {
	case *BranchNode:
		scores := scoreClassifierGroup(fv, node.Weights, loss)
		for i, child := range node.Children {
			exhaustiveScores(fv, child, pathScore+scores[i], loss, out)
		}
	case *LeafNode:
		scores := scoreClassifierGroup(fv, node.Weights, loss)
		for i, label := range node.Labels {
			out[label] = math32.Exp(pathScore + scores[i])
		}
	}
}

func TestScoreClassifierGroupTransforms(t *testing.T) {
	fv := newFeatureVec(testPairs, 2)
	w := weights(vec3(1, 0, 0), vec3(0, 1, 1)) // margins 0.6 and 1.8

	t.Run("log", func(t *testing.T) {
		got := scoreClassifierGroup(fv, w, LossTypeLog)
		for i, margin := range []float64{0.6, 1.8} {
			want := float32(-math.Log1p(math.Exp(-margin)))
			if diff := got[i] - want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("log score %d = %v, want %v", i, got[i], want)
			}
		}
	})

	t.Run("hinge", func(t *testing.T) {
		got := scoreClassifierGroup(fv, w, LossTypeHinge)
		// Margin 0.6 is inside the margin: -(0.4)^2. Margin 1.8 is not: 0.
		want := []float32{-0.4 * 0.4, 0}
		for i := range want {
			if diff := got[i] - want[i]; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("hinge score %d = %v, want %v", i, got[i], want[i])
			}
		}
	})
}

func TestTreePredictWideBeamMatchesExhaustive(t *testing.T) {
	tree := testTree()
	fv := newFeatureVec(testPairs, 2)

	for _, loss := range []LossType{LossTypeLog, LossTypeHinge} {
		want := make(map[uint32]float32)
		exhaustiveScores(fv, tree.Root, 0, loss, want)

		got := tree.predict(fv, 100, loss)
		if len(got) != len(want) {
			t.Fatalf("loss %v: predicted %d labels, want %d", loss, len(got), len(want))
		}
		for _, ls := range got {
			w, ok := want[ls.Label]
			if !ok {
				t.Errorf("loss %v: unexpected label %d", loss, ls.Label)
				continue
			}
			if diff := ls.Score - w; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("loss %v: label %d score = %v, want %v", loss, ls.Label, ls.Score, w)
			}
		}
	}
}

func TestTreePredictGreedyBeam(t *testing.T) {
	tree := testTree()
	fv := newFeatureVec(testPairs, 2)

	// Root margins: 0.6 (left) vs 0.8 (right); right's children: 1.6 vs 1.4.
	// Greedy descent therefore reaches only the leaf holding labels 4 and 5.
	got := tree.predict(fv, 1, LossTypeLog)
	labels := make(map[uint32]bool)
	for _, ls := range got {
		labels[ls.Label] = true
	}
	want := map[uint32]bool{4: true, 5: true}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("greedy labels = %v, want %v", labels, want)
	}
}

func TestTreePredictBeamLimitsLeaves(t *testing.T) {
	tree := testTree()
	fv := newFeatureVec(testPairs, 2)

	// Beam 2 keeps both depth-1 branches but only the top two of the four
	// leaves, so exactly four labels are reachable.
	got := tree.predict(fv, 2, LossTypeLog)
	if len(got) != 4 {
		t.Errorf("beam-2 prediction returned %d labels, want 4", len(got))
	}
}

func TestTreePredictContractViolations(t *testing.T) {
	tree := testTree()
	fv := newFeatureVec(testPairs, 2)

	mustPanic(t, "beam size 0", func() { tree.predict(fv, 0, LossTypeLog) })

	mixed := Tree{Root: &BranchNode{
		Weights: weights(vec3(1, 0, 0), vec3(0, 1, 0)),
		Children: []TreeNode{
			&LeafNode{Weights: weights(vec3(1, 0, 0)), Labels: []uint32{0}},
			&BranchNode{Weights: weights(vec3(0, 1, 0)), Children: []TreeNode{
				&LeafNode{Weights: weights(vec3(0, 0, 1)), Labels: []uint32{1}},
			}},
		},
	}}
	mustPanic(t, "mixed branch/leaf level", func() { mixed.predict(fv, 10, LossTypeLog) })
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}
