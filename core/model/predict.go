package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/chewxy/math32"

	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

// LabelScore pairs a label id with its predicted score.
type LabelScore struct {
	Label uint32
	Score float32
}

// scoreClassifierGroup computes one log-probability per class: the group's
// dot product against the feature vector, passed through the loss-specific
// margin transform.
func scoreClassifierGroup(fv *FeatureVec, weights *sparsemat.WeightMat, loss LossType) []float32 {
	scores := weights.TDotFeatureVec(fv.Sparse, fv.Dense)
	switch loss {
	case LossTypeLog:
		for i, v := range scores {
			scores[i] = -float32(math.Log1p(math.Exp(float64(-v))))
		}
	case LossTypeHinge:
		for i, v := range scores {
			if m := 1 - v; m > 0 {
				scores[i] = -m * m
			} else {
				scores[i] = 0
			}
		}
	default:
		panic(fmt.Sprintf("model: unknown loss type %d", loss))
	}
	return scores
}

type scoredNode struct {
	node  TreeNode
	score float32
}

// sortByScoreDesc sorts scored nodes by descending score, ties in arbitrary
// order. Scores must be comparable; NaN indicates a numerical-integrity bug
// upstream and panics.
func sortByScoreDesc(nodes []scoredNode) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].score, nodes[j].score
		if a != a || b != b {
			panic(fmt.Sprintf("model: numeric error: unable to compare %v and %v", a, b))
		}
		return a > b
	})
}

// predict runs beam search down one tree.
//
// The frontier starts at the root with score 0. At each level the frontier is
// truncated to the top beamSize nodes by accumulated score, then every
// remaining branch is expanded by scoring its classifier group and adding the
// parent's score to each child (log-domain accumulation, no renormalization).
// Once the best frontier entry is a leaf the whole frontier is leaves, and
// every leaf emits exp(pathScore + labelLogit) per label.
//
// Leaves outside the beam are never explored: the search is a deliberate
// precision/speed trade-off, not exhaustive enumeration.
func (t *Tree) predict(fv *FeatureVec, beamSize int, loss LossType) []LabelScore {
	if beamSize < 1 {
		panic(fmt.Sprintf("model: beam size must be >= 1, got %d", beamSize))
	}

	curr := make([]scoredNode, 0, beamSize*2)
	next := make([]scoredNode, 0, beamSize*2)
	curr = append(curr, scoredNode{node: t.Root})

	for {
		if len(curr) == 0 {
			panic("model: beam search frontier is empty")
		}

		if len(curr) > beamSize {
			sortByScoreDesc(curr)
			curr = curr[:beamSize]
		}

		if _, ok := curr[0].node.(*LeafNode); ok {
			break
		}

		next = next[:0]
		for _, sn := range curr {
			branch, ok := sn.node.(*BranchNode)
			if !ok {
				panic("model: tree level mixes branch and leaf nodes")
			}
			childScores := scoreClassifierGroup(fv, branch.Weights, loss)
			if len(childScores) != len(branch.Children) {
				panic(fmt.Sprintf("model: classifier group scores %d classes for %d children", len(childScores), len(branch.Children)))
			}
			for i, child := range branch.Children {
				next = append(next, scoredNode{node: child, score: sn.score + childScores[i]})
			}
		}
		curr, next = next, curr
	}

	var out []LabelScore
	for _, sn := range curr {
		leaf, ok := sn.node.(*LeafNode)
		if !ok {
			panic("model: tree level mixes branch and leaf nodes")
		}
		labelScores := scoreClassifierGroup(fv, leaf.Weights, loss)
		if len(labelScores) != len(leaf.Labels) {
			panic(fmt.Sprintf("model: classifier group scores %d classes for %d labels", len(labelScores), len(leaf.Labels)))
		}
		for i, label := range leaf.Labels {
			out = append(out, LabelScore{Label: label, Score: math32.Exp(sn.score + labelScores[i])})
		}
	}
	return out
}
