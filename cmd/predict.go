package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/CarloNicolini/omikuji/core/dataset"
	"github.com/CarloNicolini/omikuji/core/model"
)

const predictDefaultBeamSize = 10

var (
	predictModelPath  string
	predictDataPath   string
	predictOutputPath string
	predictBeamSize   int
	predictTopK       int
	predictDensify    bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict labels for a test dataset",
	Long: `Predict labels for every example in a dataset file and report
precision@k against the ground-truth labels.

Examples:
  omikuji predict --model model.bin --data test.txt
  omikuji predict --model model.bin --data test.txt --beam-size 20 --densify
  omikuji predict --model model.bin --data test.txt --output predictions.txt`,
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	m, err := loadModelFile(predictModelPath)
	if err != nil {
		return err
	}
	if predictDensify {
		start := time.Now()
		m.Densify()
		slog.Info("model densified", slog.Duration("elapsed", time.Since(start)))
	}

	ds, err := dataset.LoadFile(predictDataPath)
	if err != nil {
		return err
	}
	if ds.NFeatures > m.NFeatures {
		return fmt.Errorf("dataset has %d features but the model was trained on %d", ds.NFeatures, m.NFeatures)
	}

	start := time.Now()
	predictions := predictAll(m, ds, predictBeamSize)
	elapsed := time.Since(start)
	perExample := time.Duration(0)
	if len(ds.Examples) > 0 {
		perExample = elapsed / time.Duration(len(ds.Examples))
	}
	slog.Info("predictions computed",
		slog.Int("examples", len(ds.Examples)),
		slog.Duration("elapsed", elapsed),
		slog.Duration("per_example", perExample))

	truths := make([][]uint32, len(ds.Examples))
	rankings := make([][]uint32, len(ds.Examples))
	for i := range ds.Examples {
		truths[i] = ds.Examples[i].Labels
		ranking := make([]uint32, len(predictions[i]))
		for j, ls := range predictions[i] {
			ranking[j] = ls.Label
		}
		rankings[i] = ranking
	}
	for _, k := range []int{1, 3, 5} {
		fmt.Printf("precision@%d = %.4f\n", k, dataset.MeanPrecisionAtK(k, truths, rankings))
	}

	if predictOutputPath != "" {
		if err := writePredictions(predictOutputPath, predictions); err != nil {
			return err
		}
		slog.Info("predictions written", slog.String("path", predictOutputPath))
	}
	return nil
}

// predictAll scores every example, keeping the top predictTopK labels each.
// Examples are split in contiguous chunks across workers.
func predictAll(m *model.Model, ds *dataset.Dataset, beamSize int) [][]model.LabelScore {
	predictions := make([][]model.LabelScore, len(ds.Examples))

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(ds.Examples) {
		numWorkers = len(ds.Examples)
	}
	if numWorkers <= 1 {
		for i := range ds.Examples {
			predictions[i] = topK(m.Predict(ds.Examples[i].Features, beamSize), predictTopK)
		}
		return predictions
	}

	chunkSize := (len(ds.Examples) + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, len(ds.Examples))
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				predictions[i] = topK(m.Predict(ds.Examples[i].Features, beamSize), predictTopK)
			}
		}(start, end)
	}
	wg.Wait()
	return predictions
}

func topK(scores []model.LabelScore, k int) []model.LabelScore {
	if len(scores) > k {
		return scores[:k]
	}
	return scores
}

// writePredictions writes one line per example: space-separated
// "label:score" pairs in rank order.
func writePredictions(path string, predictions [][]model.LabelScore) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, prediction := range predictions {
		for j, ls := range prediction {
			if j > 0 {
				if err := w.WriteByte(' '); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
			if _, err := fmt.Fprintf(w, "%d:%.5f", ls.Label, ls.Score); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func loadModelFile(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	m, err := model.LoadModel(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, nil
}

func init() {
	predictCmd.Flags().StringVar(&predictModelPath, "model", "", "path to the model file (required)")
	predictCmd.Flags().StringVar(&predictDataPath, "data", "", "path to the dataset file (required)")
	predictCmd.Flags().StringVar(&predictOutputPath, "output", "", "write ranked predictions to this file")
	predictCmd.Flags().IntVar(&predictBeamSize, "beam-size", predictDefaultBeamSize, "beam width for tree search")
	predictCmd.Flags().IntVar(&predictTopK, "k", 5, "number of top labels to keep per example")
	predictCmd.Flags().BoolVar(&predictDensify, "densify", false, "densify model weights before predicting")
	predictCmd.MarkFlagRequired("model")
	predictCmd.MarkFlagRequired("data")

	rootCmd.AddCommand(predictCmd)
}
