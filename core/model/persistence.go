package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

// Model file layout, all little-endian: magic, format version,
// hyper-parameters, feature count, tree count, then each tree as a pre-order
// stream of tagged nodes.
var modelMagic = [4]byte{'O', 'M', 'K', 'J'}

const modelFormatVersion uint32 = 1

const (
	nodeTagBranch uint8 = 0
	nodeTagLeaf   uint8 = 1
)

// Model file errors.
var (
	ErrBadMagic           = errors.New("not a model file")
	ErrUnsupportedVersion = errors.New("unsupported model format version")
	ErrBadNodeTag         = errors.New("unknown tree node tag")
)

// maxNodeFanout bounds per-node counts read from untrusted input so a corrupt
// length prefix fails cleanly instead of exhausting memory.
const maxNodeFanout = 1 << 32

func writeCount(w io.Writer, n int) error {
	return binary.Write(w, binary.LittleEndian, uint64(n))
}

func readCount(r io.Reader) (int, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n > maxNodeFanout {
		return 0, fmt.Errorf("count %d exceeds sanity bound", n)
	}
	return int(n), nil
}

// Save serializes the model as a binary artifact.
func (m *Model) Save(w io.Writer) error {
	start := time.Now()

	if err := binary.Write(w, binary.LittleEndian, modelMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, modelFormatVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := writeHyperParam(w, m.Hyper); err != nil {
		return fmt.Errorf("write hyper-parameters: %w", err)
	}
	if err := writeCount(w, m.NFeatures); err != nil {
		return fmt.Errorf("write feature count: %w", err)
	}
	if err := writeCount(w, len(m.Trees)); err != nil {
		return fmt.Errorf("write tree count: %w", err)
	}
	for i := range m.Trees {
		if err := writeNode(w, m.Trees[i].Root); err != nil {
			return fmt.Errorf("write tree %d: %w", i, err)
		}
	}

	slog.Info("model saved", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// LoadModel deserializes a model written by Save.
func LoadModel(r io.Reader) (*Model, error) {
	start := time.Now()

	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != modelMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadMagic, magic[:])
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != modelFormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	hyper, err := readHyperParam(r)
	if err != nil {
		return nil, fmt.Errorf("read hyper-parameters: %w", err)
	}
	nFeatures, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("read feature count: %w", err)
	}
	nTrees, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("read tree count: %w", err)
	}

	trees := make([]Tree, nTrees)
	for i := range trees {
		root, err := readNode(r)
		if err != nil {
			return nil, fmt.Errorf("read tree %d: %w", i, err)
		}
		trees[i] = Tree{Root: root}
	}

	model := &Model{Trees: trees, NFeatures: nFeatures, Hyper: hyper}
	slog.Info("model loaded",
		slog.Int("trees", nTrees),
		slog.Int("features", nFeatures),
		slog.Duration("elapsed", time.Since(start)))
	return model, nil
}

func writeNode(w io.Writer, node TreeNode) error {
	switch n := node.(type) {
	case *BranchNode:
		if err := binary.Write(w, binary.LittleEndian, nodeTagBranch); err != nil {
			return fmt.Errorf("write node tag: %w", err)
		}
		if err := n.Weights.WriteTo(w); err != nil {
			return fmt.Errorf("write branch weights: %w", err)
		}
		if err := writeCount(w, len(n.Children)); err != nil {
			return fmt.Errorf("write child count: %w", err)
		}
		for _, child := range n.Children {
			if err := writeNode(w, child); err != nil {
				return err
			}
		}
		return nil

	case *LeafNode:
		if err := binary.Write(w, binary.LittleEndian, nodeTagLeaf); err != nil {
			return fmt.Errorf("write node tag: %w", err)
		}
		if err := n.Weights.WriteTo(w); err != nil {
			return fmt.Errorf("write leaf weights: %w", err)
		}
		if err := writeCount(w, len(n.Labels)); err != nil {
			return fmt.Errorf("write label count: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, n.Labels); err != nil {
			return fmt.Errorf("write labels: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrBadNodeTag, node)
	}
}

func readNode(r io.Reader) (TreeNode, error) {
	var tag uint8
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return nil, fmt.Errorf("read node tag: %w", err)
	}

	switch tag {
	case nodeTagBranch:
		weights, err := sparsemat.ReadWeightMat(r)
		if err != nil {
			return nil, fmt.Errorf("read branch weights: %w", err)
		}
		nChildren, err := readCount(r)
		if err != nil {
			return nil, fmt.Errorf("read child count: %w", err)
		}
		children := make([]TreeNode, nChildren)
		for i := range children {
			if children[i], err = readNode(r); err != nil {
				return nil, err
			}
		}
		return &BranchNode{Weights: weights, Children: children}, nil

	case nodeTagLeaf:
		weights, err := sparsemat.ReadWeightMat(r)
		if err != nil {
			return nil, fmt.Errorf("read leaf weights: %w", err)
		}
		nLabels, err := readCount(r)
		if err != nil {
			return nil, fmt.Errorf("read label count: %w", err)
		}
		labels := make([]uint32, nLabels)
		if err := binary.Read(r, binary.LittleEndian, labels); err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		return &LeafNode{Weights: weights, Labels: labels}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrBadNodeTag, tag)
	}
}

func writeHyperParam(w io.Writer, h HyperParam) error {
	for _, field := range []any{
		uint64(h.NTrees),
		uint64(h.MinBranchSize),
		uint64(h.MaxDepth),
		h.CentroidThreshold,
		uint8(h.Linear.LossType),
		h.Linear.Eps,
		h.Linear.C,
		h.Linear.WeightThreshold,
		h.Linear.MaxIterations,
		uint64(h.Cluster.K),
		h.Cluster.Balanced,
		h.Cluster.Eps,
		uint64(h.Cluster.MinSize),
	} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

func readHyperParam(r io.Reader) (HyperParam, error) {
	var (
		h                           HyperParam
		nTrees, minBranch, maxDepth uint64
		lossType                    uint8
		clusterK, clusterMin        uint64
	)
	for _, field := range []any{
		&nTrees,
		&minBranch,
		&maxDepth,
		&h.CentroidThreshold,
		&lossType,
		&h.Linear.Eps,
		&h.Linear.C,
		&h.Linear.WeightThreshold,
		&h.Linear.MaxIterations,
		&clusterK,
		&h.Cluster.Balanced,
		&h.Cluster.Eps,
		&clusterMin,
	} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return HyperParam{}, err
		}
	}
	h.NTrees = int(nTrees)
	h.MinBranchSize = int(minBranch)
	h.MaxDepth = int(maxDepth)
	h.Linear.LossType = LossType(lossType)
	h.Cluster.K = int(clusterK)
	h.Cluster.MinSize = int(clusterMin)
	if h.Linear.LossType != LossTypeHinge && h.Linear.LossType != LossTypeLog {
		return HyperParam{}, fmt.Errorf("unknown loss type %d", lossType)
	}
	return h, nil
}
