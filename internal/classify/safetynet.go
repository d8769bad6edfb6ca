package classify

import (
	"fmt"
	"sort"
)

// Scored is a predicted bottom label with the score that selected it
type Scored struct {
	Label    int
	Category string
	Score    float64
}

// rankCategories returns the indices of proba by decreasing probability,
// keeping estimator order among ties
func rankCategories(proba []float64) []int {
	idx := make([]int, len(proba))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return proba[idx[a]] > proba[idx[b]] })
	return idx
}

// SafetyNet predicts a bottom label per vector.
//
// With topN == 1 the most probable category is chosen and its bottom
// estimator predicts the label. With topN > 1 every bottom class of the topN
// most probable categories is scored as bottom probability times category
// probability, and the best score wins. Categories missing from bottom add no
// candidate; a vector without any candidate is Unresolved.
func SafetyNet(x [][]float64, top Estimator[string], bottom map[string]Estimator[int], topN int) ([]Scored, error) {
	if topN < 1 {
		return nil, fmt.Errorf("top_n must be at least 1, got %d", topN)
	}
	topProba, err := top.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("top level: %w", err)
	}
	categories := top.Classes()

	out := make([]Scored, len(x))
	for i, v := range x {
		ranking := rankCategories(topProba[i])
		out[i] = Scored{Label: Unresolved}

		if topN == 1 {
			category := categories[ranking[0]]
			out[i].Category = category
			est, ok := bottom[category]
			if !ok {
				continue
			}
			labels, err := est.Predict([][]float64{v})
			if err != nil {
				return nil, fmt.Errorf("bottom level %q: %w", category, err)
			}
			out[i].Label = labels[0]
			out[i].Score = topProba[i][ranking[0]]
			continue
		}

		best := -1.0
		for k := 0; k < topN && k < len(ranking); k++ {
			category := categories[ranking[k]]
			est, ok := bottom[category]
			if !ok {
				continue
			}
			proba, err := est.PredictProba([][]float64{v})
			if err != nil {
				return nil, fmt.Errorf("bottom level %q: %w", category, err)
			}
			weight := topProba[i][ranking[k]]
			for j, p := range proba[0] {
				if score := p * weight; score > best {
					best = score
					out[i] = Scored{Label: est.Classes()[j], Category: category, Score: score}
				}
			}
		}
	}
	return out, nil
}
