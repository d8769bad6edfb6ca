// Package classify implements the two-level topic classifier: a top-level
// estimator over categories, one bottom-level estimator per category and the
// safety net combining them.
package classify

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrNotFitted is returned when predicting with an estimator that was never fitted
	ErrNotFitted = errors.New("estimator not fitted")

	// ErrDimensionMismatch is returned when a vector does not match the fitted dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnresolved means a sample was routed to a category without a fitted
	// bottom estimator
	ErrUnresolved = errors.New("classification unresolved")

	// ErrNoSamples is returned when fitting on an empty training set
	ErrNoSamples = errors.New("no training samples")

	// ErrMalformedModel is returned when a saved estimator's arrays disagree
	ErrMalformedModel = errors.New("malformed model")
)

// Unresolved is the label returned for a sample that could not be classified
const Unresolved = -1

// Estimator is a probabilistic multi-class classifier over dense vectors.
// PredictProba columns follow the order of Classes.
type Estimator[C cmp.Ordered] interface {
	Fit(x [][]float64, y []C) error
	Predict(x [][]float64) ([]C, error)
	PredictProba(x [][]float64) ([][]float64, error)
	Classes() []C
}

// Estimator kinds
const (
	KindSoftmax  = "softmax"
	KindCentroid = "centroid"
)

// Options select and tune an estimator variant
type Options struct {
	Kind         string  `json:"kind"`
	Epochs       int     `json:"epochs,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
	L2           float64 `json:"l2,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"` // centroid only
}

// DefaultOptions returns the softmax defaults
func DefaultOptions() Options {
	return Options{Kind: KindSoftmax, Epochs: 200, LearningRate: 0.5, L2: 1e-4, Temperature: 10}
}

// NewEstimator builds an unfitted estimator of the requested kind
func NewEstimator[C cmp.Ordered](opts Options) (Estimator[C], error) {
	switch opts.Kind {
	case KindSoftmax, "":
		return NewSoftmax[C](opts.Epochs, opts.LearningRate, opts.L2), nil
	case KindCentroid:
		return NewCentroid[C](opts.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown estimator kind: %s", opts.Kind)
	}
}

// uniqueSorted returns the distinct classes of y in ascending order
func uniqueSorted[C cmp.Ordered](y []C) []C {
	out := slices.Clone(y)
	slices.Sort(out)
	return slices.Compact(out)
}

// checkTraining validates a training set and returns the vector dimension
func checkTraining[C any](x [][]float64, y []C) (int, error) {
	if len(x) == 0 {
		return 0, ErrNoSamples
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("%d vectors for %d labels", len(x), len(y))
	}
	dim := len(x[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if err := checkDims(x, dim); err != nil {
		return 0, err
	}
	return dim, nil
}

func checkDims(x [][]float64, dim int) error {
	for i, v := range x {
		if len(v) != dim {
			return fmt.Errorf("%w: sample %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// argmax returns the index of the first maximum
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// softmaxInPlace turns logits into probabilities
func softmaxInPlace(v []float64) {
	if len(v) == 0 {
		return
	}
	maxV := v[argmax(v)]
	sum := 0.0
	for i := range v {
		v[i] = math.Exp(v[i] - maxV)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm2(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

// predictFromProba maps each row of probabilities to its most probable class
func predictFromProba[C cmp.Ordered](e Estimator[C], x [][]float64) ([]C, error) {
	proba, err := e.PredictProba(x)
	if err != nil {
		return nil, err
	}
	classes := e.Classes()
	out := make([]C, len(proba))
	for i, row := range proba {
		out[i] = classes[argmax(row)]
	}
	return out, nil
}
