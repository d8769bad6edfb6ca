package classify

import (
	"cmp"
	"fmt"
	"slices"
)

// Softmax is a multinomial logistic regression trained by batch gradient
// descent with L2 regularization
type Softmax[C cmp.Ordered] struct {
	Epochs       int         `json:"epochs"`
	LearningRate float64     `json:"learning_rate"`
	L2           float64     `json:"l2"`
	ClassList    []C         `json:"classes"`
	Weights      [][]float64 `json:"weights"` // one row per class
	Bias         []float64   `json:"bias"`
}

// NewSoftmax creates an unfitted softmax regression
func NewSoftmax[C cmp.Ordered](epochs int, learningRate, l2 float64) *Softmax[C] {
	if epochs <= 0 {
		epochs = 200
	}
	if learningRate <= 0 {
		learningRate = 0.5
	}
	return &Softmax[C]{Epochs: epochs, LearningRate: learningRate, L2: l2}
}

func (s *Softmax[C]) Classes() []C { return s.ClassList }

func (s *Softmax[C]) dimension() (int, error) {
	if len(s.Weights) != len(s.ClassList) || len(s.Bias) != len(s.ClassList) {
		return 0, fmt.Errorf("%w: %d classes, %d weight rows, %d biases",
			ErrMalformedModel, len(s.ClassList), len(s.Weights), len(s.Bias))
	}
	return rowsDimension(s.Weights)
}

func (s *Softmax[C]) Fit(x [][]float64, y []C) error {
	dim, err := checkTraining(x, y)
	if err != nil {
		return err
	}

	s.ClassList = uniqueSorted(y)
	k := len(s.ClassList)
	s.Weights = make([][]float64, k)
	for c := range s.Weights {
		s.Weights[c] = make([]float64, dim)
	}
	s.Bias = make([]float64, k)
	if k == 1 {
		return nil
	}

	target := make([]int, len(y))
	for i, label := range y {
		target[i], _ = slices.BinarySearch(s.ClassList, label)
	}

	n := float64(len(x))
	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, dim)
	}
	gradB := make([]float64, k)
	p := make([]float64, k)

	for epoch := 0; epoch < s.Epochs; epoch++ {
		for c := range gradW {
			clear(gradW[c])
		}
		clear(gradB)

		for i, v := range x {
			s.logits(v, p)
			softmaxInPlace(p)
			p[target[i]] -= 1
			for c := 0; c < k; c++ {
				g := p[c]
				if g == 0 {
					continue
				}
				row := gradW[c]
				for j, xj := range v {
					row[j] += g * xj
				}
				gradB[c] += g
			}
		}

		for c := 0; c < k; c++ {
			w := s.Weights[c]
			for j := range w {
				w[j] -= s.LearningRate * (gradW[c][j]/n + s.L2*w[j])
			}
			s.Bias[c] -= s.LearningRate * gradB[c] / n
		}
	}
	return nil
}

func (s *Softmax[C]) logits(v []float64, out []float64) {
	for c, w := range s.Weights {
		out[c] = dot(w, v) + s.Bias[c]
	}
}

func (s *Softmax[C]) PredictProba(x [][]float64) ([][]float64, error) {
	if len(s.ClassList) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkDims(x, len(s.Weights[0])); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i, v := range x {
		row := make([]float64, len(s.ClassList))
		s.logits(v, row)
		softmaxInPlace(row)
		out[i] = row
	}
	return out, nil
}

func (s *Softmax[C]) Predict(x [][]float64) ([]C, error) {
	return predictFromProba[C](s, x)
}
