package classify

import (
	"errors"
	"fmt"

	"github.com/ppiankov/siance/internal/logging"
)

// HierarchicalClassifier predicts a bottom label through a top estimator over
// categories and one bottom estimator per category
type HierarchicalClassifier struct {
	hierarchy Hierarchy
	topN      int
	opts      Options
	top       Estimator[string]
	bottom    map[string]Estimator[int]
	log       logging.Logger
}

// NewHierarchicalClassifier creates an unfitted classifier. topN below 1 is
// treated as 1.
func NewHierarchicalClassifier(h Hierarchy, topN int, opts Options, log logging.Logger) *HierarchicalClassifier {
	if topN < 1 {
		topN = 1
	}
	return &HierarchicalClassifier{
		hierarchy: h,
		topN:      topN,
		opts:      opts,
		bottom:    make(map[string]Estimator[int]),
		log:       logging.OrNop(log).Named("hierarchical"),
	}
}

// TopN returns the number of categories considered per sample
func (h *HierarchicalClassifier) TopN() int { return h.topN }

// SetTopN changes the safety net width of a fitted classifier
func (h *HierarchicalClassifier) SetTopN(n int) {
	if n < 1 {
		n = 1
	}
	h.topN = n
}

// Hierarchy returns the label hierarchy
func (h *HierarchicalClassifier) Hierarchy() Hierarchy { return h.hierarchy }

// Fitted reports whether the top estimator was trained
func (h *HierarchicalClassifier) Fitted() bool { return h.top != nil }

// Fit trains the top estimator on the categories of y, then one bottom
// estimator per category on that category's samples. A category without
// samples gets no bottom estimator.
func (h *HierarchicalClassifier) Fit(x [][]float64, y []int) error {
	if _, err := checkTraining(x, y); err != nil {
		return err
	}

	yTop := make([]string, len(y))
	for i, label := range y {
		c, ok := h.hierarchy.Category(label)
		if !ok {
			return fmt.Errorf("label %d is not in the hierarchy", label)
		}
		yTop[i] = c
	}

	top, err := NewEstimator[string](h.opts)
	if err != nil {
		return err
	}
	if err := top.Fit(x, yTop); err != nil {
		return fmt.Errorf("fit top level: %w", err)
	}
	h.top = top

	h.bottom = make(map[string]Estimator[int])
	for _, category := range h.hierarchy.Categories() {
		var xc [][]float64
		var yc []int
		for i, c := range yTop {
			if c == category {
				xc = append(xc, x[i])
				yc = append(yc, y[i])
			}
		}
		if len(xc) == 0 {
			h.log.Warn("no training sample for category, no bottom estimator", logging.String("category", category))
			continue
		}

		bottom, err := NewEstimator[int](h.opts)
		if err != nil {
			return err
		}
		if err := bottom.Fit(xc, yc); err != nil {
			return fmt.Errorf("fit bottom level %q: %w", category, err)
		}
		h.bottom[category] = bottom
	}
	return nil
}

// Predict returns one label per vector, Unresolved when the chosen category
// has no bottom estimator
func (h *HierarchicalClassifier) Predict(x [][]float64) ([]int, error) {
	scored, err := h.PredictScored(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scored))
	for i, s := range scored {
		out[i] = s.Label
	}
	return out, nil
}

// PredictScored returns the label and combined score of every vector
func (h *HierarchicalClassifier) PredictScored(x [][]float64) ([]Scored, error) {
	if h.top == nil {
		return nil, ErrNotFitted
	}
	scored, err := SafetyNet(x, h.top, h.bottom, h.topN)
	if err != nil {
		return nil, err
	}

	unresolved := 0
	for _, s := range scored {
		if s.Label == Unresolved {
			unresolved++
		}
	}
	if unresolved > 0 {
		h.log.Warn("samples routed to categories without bottom estimator",
			logging.Int("unresolved", unresolved),
			logging.Int("samples", len(x)))
	}
	return scored, nil
}

// PredictOne classifies a single vector, returning ErrUnresolved when no
// bottom estimator can decide
func (h *HierarchicalClassifier) PredictOne(v []float64) (int, error) {
	labels, err := h.Predict([][]float64{v})
	if err != nil {
		return Unresolved, err
	}
	if labels[0] == Unresolved {
		return Unresolved, ErrUnresolved
	}
	return labels[0], nil
}

// IsUnresolved reports whether err marks an unresolved sample
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolved)
}
