// Package model implements the tree ensemble used for extreme multi-label
// classification: the branch/leaf tree of one-vs-all classifier groups, the
// beam-search predictor that walks one tree, and the forest aggregation that
// averages per-tree label scores into a final ranking.
package model

import "fmt"

// LossType identifies the loss the linear classifiers were trained with. It
// determines how raw classifier margins are mapped to log-probabilities
// during prediction.
type LossType uint8

const (
	// LossTypeHinge maps a margin x to -max(0, 1-x)^2.
	LossTypeHinge LossType = iota
	// LossTypeLog maps a margin x to the log-sigmoid -log(1 + exp(-x)).
	LossTypeLog
)

func (l LossType) String() string {
	switch l {
	case LossTypeHinge:
		return "hinge"
	case LossTypeLog:
		return "log"
	default:
		return fmt.Sprintf("LossType(%d)", uint8(l))
	}
}

// LinearHyperParam configures the one-vs-all linear classifier solver.
type LinearHyperParam struct {
	LossType        LossType
	Eps             float32
	C               float32
	WeightThreshold float32
	MaxIterations   uint32
}

// ClusterHyperParam configures the label clustering that shapes the trees.
type ClusterHyperParam struct {
	K        int
	Balanced bool
	Eps      float32
	MinSize  int
}

// HyperParam carries the hyper-parameters the training pipeline used to build
// a model. Prediction only consults Linear.LossType; the rest travels with
// the model so a run can be reproduced from its artifact.
type HyperParam struct {
	NTrees            int
	MinBranchSize     int
	MaxDepth          int
	CentroidThreshold float32
	Linear            LinearHyperParam
	Cluster           ClusterHyperParam
}

// DefaultHyperParam returns the default training configuration.
func DefaultHyperParam() HyperParam {
	return HyperParam{
		NTrees:            3,
		MinBranchSize:     100,
		MaxDepth:          20,
		CentroidThreshold: 0,
		Linear: LinearHyperParam{
			LossType:        LossTypeHinge,
			Eps:             0.1,
			C:               1,
			WeightThreshold: 0.1,
			MaxIterations:   20,
		},
		Cluster: ClusterHyperParam{
			K:        2,
			Balanced: true,
			Eps:      0.0001,
			MinSize:  2,
		},
	}
}

// Validate checks the hyper-parameters and returns a descriptive error for
// the first invalid field.
func (h HyperParam) Validate() error {
	if h.NTrees < 1 {
		return fmt.Errorf("model: NTrees must be >= 1, got %d", h.NTrees)
	}
	if h.MinBranchSize < 2 {
		return fmt.Errorf("model: MinBranchSize must be >= 2, got %d", h.MinBranchSize)
	}
	if h.MaxDepth < 1 {
		return fmt.Errorf("model: MaxDepth must be >= 1, got %d", h.MaxDepth)
	}
	if h.CentroidThreshold < 0 {
		return fmt.Errorf("model: CentroidThreshold must be >= 0, got %f", h.CentroidThreshold)
	}
	if h.Linear.LossType != LossTypeHinge && h.Linear.LossType != LossTypeLog {
		return fmt.Errorf("model: unknown loss type %d", h.Linear.LossType)
	}
	if h.Linear.Eps <= 0 {
		return fmt.Errorf("model: Linear.Eps must be > 0, got %f", h.Linear.Eps)
	}
	if h.Linear.C <= 0 {
		return fmt.Errorf("model: Linear.C must be > 0, got %f", h.Linear.C)
	}
	if h.Linear.WeightThreshold < 0 {
		return fmt.Errorf("model: Linear.WeightThreshold must be >= 0, got %f", h.Linear.WeightThreshold)
	}
	if h.Linear.MaxIterations < 1 {
		return fmt.Errorf("model: Linear.MaxIterations must be >= 1, got %d", h.Linear.MaxIterations)
	}
	if h.Cluster.K < 2 {
		return fmt.Errorf("model: Cluster.K must be >= 2, got %d", h.Cluster.K)
	}
	if h.Cluster.Eps <= 0 {
		return fmt.Errorf("model: Cluster.Eps must be > 0, got %f", h.Cluster.Eps)
	}
	if h.Cluster.MinSize < 1 {
		return fmt.Errorf("model: Cluster.MinSize must be >= 1, got %d", h.Cluster.MinSize)
	}
	return nil
}
