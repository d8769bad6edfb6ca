package classify

import "slices"

// LabelMetrics are the evaluation counts and rates of one label
type LabelMetrics struct {
	Support   int     `json:"support"`   // true occurrences
	Predicted int     `json:"predicted"` // predicted occurrences
	Correct   int     `json:"correct"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// EvaluationReport summarizes predictions against ground truth
type EvaluationReport struct {
	Samples   int                  `json:"samples"`
	Accuracy  float64              `json:"accuracy"`  // samples whose label sets match exactly
	Precision float64              `json:"precision"` // micro-averaged
	Recall    float64              `json:"recall"`    // micro-averaged
	PerLabel  map[int]LabelMetrics `json:"per_label"`
}

// Evaluate compares predicted label sets with true ones, sample by sample
func Evaluate(truth, predicted [][]int) EvaluationReport {
	report := EvaluationReport{Samples: len(truth), PerLabel: make(map[int]LabelMetrics)}
	var tp, fp, fn, exact int

	for i, want := range truth {
		var got []int
		if i < len(predicted) {
			got = predicted[i]
		}

		for _, label := range want {
			m := report.PerLabel[label]
			m.Support++
			if slices.Contains(got, label) {
				m.Correct++
				tp++
			} else {
				fn++
			}
			report.PerLabel[label] = m
		}
		for _, label := range got {
			m := report.PerLabel[label]
			m.Predicted++
			if !slices.Contains(want, label) {
				fp++
			}
			report.PerLabel[label] = m
		}

		if sameSet(want, got) {
			exact++
		}
	}

	for label, m := range report.PerLabel {
		m.Precision = ratio(m.Correct, m.Predicted)
		m.Recall = ratio(m.Correct, m.Support)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.PerLabel[label] = m
	}

	report.Accuracy = ratio(exact, len(truth))
	report.Precision = ratio(tp, tp+fp)
	report.Recall = ratio(tp, tp+fn)
	return report
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
