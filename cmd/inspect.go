package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectModelPath string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the structure of a model file",
	Long: `Inspect a model file and print the forest structure: tree count,
depth, node counts and weight storage breakdown.

Examples:
  omikuji inspect --model model.bin`,
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	m, err := loadModelFile(inspectModelPath)
	if err != nil {
		return err
	}

	stats := m.Stats()
	fmt.Printf("trees:          %d\n", stats.Trees)
	fmt.Printf("max depth:      %d\n", stats.MaxDepth)
	fmt.Printf("branches:       %d\n", stats.Branches)
	fmt.Printf("leaves:         %d\n", stats.Leaves)
	fmt.Printf("label slots:    %d\n", stats.LabelSlots)
	fmt.Printf("dense groups:   %d\n", stats.DenseGroups)
	fmt.Printf("sparse groups:  %d\n", stats.SparseGroups)
	fmt.Printf("weight bytes:   %d\n", stats.WeightBytes)
	fmt.Printf("features:       %d\n", m.NFeatures)
	fmt.Printf("loss:           %s\n", m.Hyper.Linear.LossType)
	return nil
}

func init() {
	inspectCmd.Flags().StringVar(&inspectModelPath, "model", "", "path to the model file (required)")
	inspectCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(inspectCmd)
}
