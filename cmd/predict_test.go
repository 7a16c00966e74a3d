package cmd

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarloNicolini/omikuji/core/model"
	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

// fixtureModel is a single-tree model over 2 features and 4 labels whose
// leaves split the label space in half.
func fixtureModel() *model.Model {
	col := func(pairs ...sparsemat.IndexValue) sparsemat.SparseVec {
		return sparsemat.NewSparseVecFromPairs(3, pairs)
	}
	iv := func(i uint32, v float32) sparsemat.IndexValue {
		return sparsemat.IndexValue{Index: i, Value: v}
	}
	root := &model.BranchNode{
		Weights: sparsemat.WeightMatFromColumns([]sparsemat.SparseVec{
			col(iv(0, 2)),
			col(iv(1, 2)),
		}),
		Children: []model.TreeNode{
			&model.LeafNode{
				Weights: sparsemat.WeightMatFromColumns([]sparsemat.SparseVec{
					col(iv(0, 1)),
					col(iv(2, 0.5)),
				}),
				Labels: []uint32{0, 1},
			},
			&model.LeafNode{
				Weights: sparsemat.WeightMatFromColumns([]sparsemat.SparseVec{
					col(iv(1, 1)),
					col(iv(2, 0.5)),
				}),
				Labels: []uint32{2, 3},
			},
		},
	}
	hyper := model.DefaultHyperParam()
	hyper.Linear.LossType = model.LossTypeLog
	return &model.Model{
		Trees:     []model.Tree{{Root: root}},
		NFeatures: 2,
		Hyper:     hyper,
	}
}

func writeFixtureFiles(t *testing.T) (modelPath, dataPath string) {
	t.Helper()
	dir := t.TempDir()

	modelPath = filepath.Join(dir, "model.bin")
	f, err := os.Create(modelPath)
	require.NoError(t, err)
	require.NoError(t, fixtureModel().Save(f))
	require.NoError(t, f.Close())

	dataPath = filepath.Join(dir, "test.txt")
	data := "2 2 4\n0,1 0:1.0\n2 1:1.0\n"
	require.NoError(t, os.WriteFile(dataPath, []byte(data), 0o644))
	return modelPath, dataPath
}

func TestRunPredictEndToEnd(t *testing.T) {
	modelPath, dataPath := writeFixtureFiles(t)
	outPath := filepath.Join(t.TempDir(), "predictions.txt")

	predictModelPath = modelPath
	predictDataPath = dataPath
	predictOutputPath = outPath
	predictBeamSize = 10
	predictTopK = 4
	predictDensify = true

	require.NoError(t, runPredict(predictCmd, nil))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 4, len(strings.Fields(lines[0])))
	assert.Contains(t, lines[0], ":")
}

func TestRunPredictMissingModel(t *testing.T) {
	_, dataPath := writeFixtureFiles(t)

	predictModelPath = filepath.Join(t.TempDir(), "missing.bin")
	predictDataPath = dataPath
	predictOutputPath = ""

	assert.Error(t, runPredict(predictCmd, nil))
}

func TestRunPredictFeatureSpaceMismatch(t *testing.T) {
	modelPath, _ := writeFixtureFiles(t)
	dataPath := filepath.Join(t.TempDir(), "wide.txt")
	require.NoError(t, os.WriteFile(dataPath, []byte("1 9 4\n0 7:1.0\n"), 0o644))

	predictModelPath = modelPath
	predictDataPath = dataPath
	predictOutputPath = ""

	err := runPredict(predictCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "features")
}

func TestTopK(t *testing.T) {
	scores := []model.LabelScore{{Label: 1, Score: 0.9}, {Label: 2, Score: 0.5}}

	assert.Len(t, topK(scores, 1), 1)
	assert.Len(t, topK(scores, 2), 2)
	assert.Len(t, topK(scores, 5), 2)
	assert.Equal(t, uint32(1), topK(scores, 1)[0].Label)
}

func TestRunInspect(t *testing.T) {
	modelPath, _ := writeFixtureFiles(t)

	inspectModelPath = modelPath
	require.NoError(t, runInspect(inspectCmd, nil))

	inspectModelPath = filepath.Join(t.TempDir(), "missing.bin")
	assert.Error(t, runInspect(inspectCmd, nil))
}

func TestFixtureModelSanity(t *testing.T) {
	// Guard against the fixture degenerating: an input on feature 0 must rank
	// the labels of the first leaf above the second leaf's labels when the
	// beam covers the whole tree.
	m := fixtureModel()
	got := m.Predict(sparsemat.IndexValues{{Index: 0, Value: 1}}, 10)
	require.NotEmpty(t, got)
	assert.Equal(t, uint32(0), got[0].Label)
	for _, ls := range got {
		assert.False(t, math.IsNaN(float64(ls.Score)))
	}
}
