package classify

import (
	"cmp"
	"fmt"
	"slices"
)

// Centroid is a nearest-centroid classifier. Probabilities are a softmax
// over cosine similarities scaled by Temperature.
type Centroid[C cmp.Ordered] struct {
	Temperature float64     `json:"temperature"`
	ClassList   []C         `json:"classes"`
	Centroids   [][]float64 `json:"centroids"`
}

// NewCentroid creates an unfitted nearest-centroid estimator
func NewCentroid[C cmp.Ordered](temperature float64) *Centroid[C] {
	if temperature <= 0 {
		temperature = 10
	}
	return &Centroid[C]{Temperature: temperature}
}

func (c *Centroid[C]) Classes() []C { return c.ClassList }

func (c *Centroid[C]) dimension() (int, error) {
	if len(c.Centroids) != len(c.ClassList) {
		return 0, fmt.Errorf("%w: %d classes, %d centroids", ErrMalformedModel, len(c.ClassList), len(c.Centroids))
	}
	return rowsDimension(c.Centroids)
}

func (c *Centroid[C]) Fit(x [][]float64, y []C) error {
	dim, err := checkTraining(x, y)
	if err != nil {
		return err
	}

	c.ClassList = uniqueSorted(y)
	c.Centroids = make([][]float64, len(c.ClassList))
	counts := make([]float64, len(c.ClassList))
	for k := range c.Centroids {
		c.Centroids[k] = make([]float64, dim)
	}

	for i, v := range x {
		k, _ := slices.BinarySearch(c.ClassList, y[i])
		counts[k]++
		for j, xj := range v {
			c.Centroids[k][j] += xj
		}
	}
	for k, centroid := range c.Centroids {
		for j := range centroid {
			centroid[j] /= counts[k]
		}
	}
	return nil
}

func (c *Centroid[C]) PredictProba(x [][]float64) ([][]float64, error) {
	if len(c.ClassList) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkDims(x, len(c.Centroids[0])); err != nil {
		return nil, err
	}

	norms := make([]float64, len(c.Centroids))
	for k, centroid := range c.Centroids {
		norms[k] = norm2(centroid)
	}

	out := make([][]float64, len(x))
	for i, v := range x {
		nv := norm2(v)
		row := make([]float64, len(c.Centroids))
		for k, centroid := range c.Centroids {
			if nv > 0 && norms[k] > 0 {
				row[k] = c.Temperature * dot(v, centroid) / (nv * norms[k])
			}
		}
		softmaxInPlace(row)
		out[i] = row
	}
	return out, nil
}

func (c *Centroid[C]) Predict(x [][]float64) ([]C, error) {
	return predictFromProba[C](c, x)
}
