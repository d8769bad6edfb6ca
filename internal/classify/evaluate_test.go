package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	truth := [][]int{{1}, {2}, {3}}
	predicted := [][]int{{1}, {3}, {3}}

	r := Evaluate(truth, predicted)

	assert.Equal(t, 3, r.Samples)
	assert.InDelta(t, 2.0/3.0, r.Accuracy, 1e-9)
	assert.InDelta(t, 2.0/3.0, r.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, r.Recall, 1e-9)

	assert.Equal(t, LabelMetrics{Support: 1, Predicted: 1, Correct: 1, Precision: 1, Recall: 1, F1: 1}, r.PerLabel[1])
	assert.Equal(t, LabelMetrics{Support: 1}, r.PerLabel[2])

	l3 := r.PerLabel[3]
	assert.Equal(t, 2, l3.Predicted)
	assert.InDelta(t, 0.5, l3.Precision, 1e-9)
	assert.InDelta(t, 1.0, l3.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, l3.F1, 1e-9)
}

func TestEvaluate_MultiLabelAndMissingPredictions(t *testing.T) {
	r := Evaluate([][]int{{1, 6}, {2}}, [][]int{{6, 1}})

	assert.InDelta(t, 0.5, r.Accuracy, 1e-9, "label order does not matter")
	assert.InDelta(t, 1.0, r.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, r.Recall, 1e-9)
}

func TestReadSamples(t *testing.T) {
	in := `{"vector":[0.1,0.2],"label":3}

{"vector":[1,2],"label":4}
`
	samples, err := ReadSamples(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, []float64{0.1, 0.2}, samples[0].Vector)
	assert.Equal(t, 4, samples[1].Label)

	_, err = ReadSamples(strings.NewReader(`{"vector":[],"label":1}`))
	assert.Error(t, err)

	samples, err = ReadSamples(strings.NewReader(`{"text":"Contrôle des équipements sous pression","label":7}`))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Empty(t, samples[0].Vector)
	assert.Equal(t, 7, samples[0].Label)
	_, err = ReadSamples(strings.NewReader(`{"vector":`))
	assert.Error(t, err)
}

func TestReadLabels(t *testing.T) {
	in := `
labels:
  - id: 1
    category: Radioprotection
    subcategory: Dosimétrie
  - id: 7
    category: Organisation
    subcategory: Formation
    is_transverse: true
`
	labels, err := ReadLabels(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "Dosimétrie", labels[0].Name())
	assert.True(t, labels[1].IsTransverse)

	_, err = ReadLabels(strings.NewReader("labels:\n  - id: 1\n    category: A\n  - id: 1\n    category: B\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = ReadLabels(strings.NewReader("labels:\n  - id: 2\n"))
	assert.ErrorContains(t, err, "no category")

	_, err = ReadLabels(strings.NewReader("labels: []\n"))
	assert.Error(t, err)
}
