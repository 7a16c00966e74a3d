// Package dataset loads multi-label datasets in the plain-text format used by
// the extreme classification benchmark collections and scores predictions
// against their ground-truth labels.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CarloNicolini/omikuji/core/sparsemat"
)

// Example is one labeled input: its sparse feature pairs, sorted by index,
// and the set of ground-truth label ids.
type Example struct {
	Features sparsemat.IndexValues
	Labels   []uint32
}

// Dataset is a parsed dataset file: the declared feature and label space
// sizes from the header, plus every example in file order.
type Dataset struct {
	NFeatures int
	NLabels   int
	Examples  []Example
}

// maxLineBytes caps a single data line. Benchmark files carry examples with
// hundreds of thousands of features on one line, far past bufio's default.
const maxLineBytes = 64 << 20

// LoadFile reads a dataset from a file on disk.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	return ds, nil
}

// Load parses a dataset from a reader.
//
// The format is one header line "n_examples n_features n_labels", then one
// line per example: a comma-separated label list (possibly empty), followed
// by space-separated "feature:value" pairs. Feature pairs are sorted on the
// way in; duplicate or out-of-range feature indices are an error.
func Load(r io.Reader) (*Dataset, error) {
	start := time.Now()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("read header: empty input")
	}
	nExamples, nFeatures, nLabels, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, fmt.Errorf("line 1: %w", err)
	}

	ds := &Dataset{
		NFeatures: nFeatures,
		NLabels:   nLabels,
		Examples:  make([]Example, 0, nExamples),
	}
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		example, err := parseExample(line, nFeatures, nLabels)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ds.Examples = append(ds.Examples, example)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}
	if len(ds.Examples) != nExamples {
		return nil, fmt.Errorf("header declares %d examples, found %d", nExamples, len(ds.Examples))
	}

	slog.Info("dataset loaded",
		slog.Int("examples", len(ds.Examples)),
		slog.Int("features", nFeatures),
		slog.Int("labels", nLabels),
		slog.Duration("elapsed", time.Since(start)))
	return ds, nil
}

func parseHeader(line string) (nExamples, nFeatures, nLabels int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed header %q: want 3 fields, got %d", line, len(fields))
	}
	counts := make([]int, 3)
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("malformed header count %q", field)
		}
		counts[i] = n
	}
	return counts[0], counts[1], counts[2], nil
}

func parseExample(line string, nFeatures, nLabels int) (Example, error) {
	fields := strings.Fields(line)

	// A line may start with a feature pair directly when the example has no
	// labels; the label field is the only one without a colon.
	featureStart := 0
	var labels []uint32
	if len(fields) > 0 && !strings.Contains(fields[0], ":") {
		var err error
		if labels, err = parseLabels(fields[0], nLabels); err != nil {
			return Example{}, err
		}
		featureStart = 1
	}

	features := make(sparsemat.IndexValues, 0, len(fields)-featureStart)
	for _, field := range fields[featureStart:] {
		iv, err := parseFeature(field)
		if err != nil {
			return Example{}, err
		}
		features = append(features, iv)
	}
	features.SortByIndex()
	if !features.IsValid(nFeatures) {
		return Example{}, fmt.Errorf("feature indices duplicated or out of range for %d features", nFeatures)
	}
	return Example{Features: features, Labels: labels}, nil
}

func parseLabels(field string, nLabels int) ([]uint32, error) {
	parts := strings.Split(field, ",")
	labels := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		label, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed label %q: %w", part, err)
		}
		if int(label) >= nLabels {
			return nil, fmt.Errorf("label %d out of range for %d labels", label, nLabels)
		}
		labels = append(labels, uint32(label))
	}
	return labels, nil
}

func parseFeature(field string) (sparsemat.IndexValue, error) {
	sep := strings.IndexByte(field, ':')
	if sep < 0 {
		return sparsemat.IndexValue{}, fmt.Errorf("malformed feature pair %q: missing ':'", field)
	}
	index, err := strconv.ParseUint(field[:sep], 10, 32)
	if err != nil {
		return sparsemat.IndexValue{}, fmt.Errorf("malformed feature index %q: %w", field[:sep], err)
	}
	value, err := strconv.ParseFloat(field[sep+1:], 32)
	if err != nil {
		return sparsemat.IndexValue{}, fmt.Errorf("malformed feature value %q: %w", field[sep+1:], err)
	}
	return sparsemat.IndexValue{Index: uint32(index), Value: float32(value)}, nil
}
