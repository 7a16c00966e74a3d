package dataset

// PrecisionAtK returns the fraction of the top k ranked labels that appear in
// the ground-truth set. The denominator is k even when fewer than k labels
// were predicted, matching the usual extreme-classification convention.
func PrecisionAtK(k int, truth, ranked []uint32) float64 {
	if k < 1 {
		return 0
	}
	truthSet := make(map[uint32]bool, len(truth))
	for _, label := range truth {
		truthSet[label] = true
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	hits := 0
	for _, label := range ranked {
		if truthSet[label] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// MeanPrecisionAtK averages PrecisionAtK over a set of examples. The two
// slices are parallel; their length mismatch is a caller bug and panics.
func MeanPrecisionAtK(k int, truths, rankings [][]uint32) float64 {
	if len(truths) != len(rankings) {
		panic("dataset: truth and ranking counts differ")
	}
	if len(truths) == 0 {
		return 0
	}
	var sum float64
	for i := range truths {
		sum += PrecisionAtK(k, truths[i], rankings[i])
	}
	return sum / float64(len(truths))
}
