package model

import "github.com/CarloNicolini/omikuji/core/sparsemat"

// TreeNode is one node of a label tree: either a BranchNode or a LeafNode.
// The variant set is closed; no other implementations exist.
type TreeNode interface {
	treeNode()
}

// BranchNode is an internal node. Weights has one column per child, so the
// classifier group scores every child in a single dot product.
type BranchNode struct {
	Weights  *sparsemat.WeightMat
	Children []TreeNode
}

// LeafNode is a terminal node. Weights has one column per label.
type LeafNode struct {
	Weights *sparsemat.WeightMat
	Labels  []uint32
}

func (*BranchNode) treeNode() {}
func (*LeafNode) treeNode()   {}

// Tree wraps a single root node. Within a tree every level is homogeneous:
// the children of the branches at one depth are either all branches or all
// leaves. A mixed level is a bug in the tree builder, not a condition the
// predictor recovers from.
type Tree struct {
	Root TreeNode
}

// Depth returns the number of node levels in the tree.
func (t *Tree) Depth() int {
	return nodeDepth(t.Root)
}

func nodeDepth(n TreeNode) int {
	branch, ok := n.(*BranchNode)
	if !ok {
		return 1
	}
	deepest := 0
	for _, child := range branch.Children {
		if d := nodeDepth(child); d > deepest {
			deepest = d
		}
	}
	return 1 + deepest
}

// Densify converts every classifier group in the tree to dense storage,
// trading memory for prediction speed.
func (t *Tree) Densify() {
	densifyNode(t.Root)
}

func densifyNode(n TreeNode) {
	switch node := n.(type) {
	case *BranchNode:
		node.Weights.Densify()
		for _, child := range node.Children {
			densifyNode(child)
		}
	case *LeafNode:
		node.Weights.Densify()
	}
}
