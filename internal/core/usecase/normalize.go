package usecase

import "math"

// normalizeScores linearly rescales arbitrary real-valued relevance scores to
// [0,1] with (x-min)/(max-min). When the range is degenerate (equal scores,
// a single score, or no finite score) every output is 0.5. Empty input yields
// empty output. Non-finite inputs are excluded from the min/max computation
// and map to 0.5.
func normalizeScores(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	min := math.Inf(1)
	max := math.Inf(-1)
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	if min >= max {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	span := max - min
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			out[i] = 0.5
			continue
		}
		out[i] = (s - min) / span
	}
	return out
}
