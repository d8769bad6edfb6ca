package segment

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeBlocks_WorkedExample(t *testing.T) {
	bounds := []int{1, 6, 14, 68, 90, 115, 136}
	triggers := []int{3, 5, 13, 67, 120}

	tests := []struct {
		name      string
		nPrevious int
		want      []Block
	}{
		{"no context", 0, []Block{{1, 6}, {6, 14}, {14, 68}, {115, 136}}},
		{"one previous paragraph", 1, []Block{{1, 6}, {6, 14}, {14, 68}, {90, 136}}},
		{"context stops at previous demand", 5, []Block{{1, 6}, {6, 14}, {14, 68}, {68, 136}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeBlocks(bounds, triggers, tt.nPrevious)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeBlocks_DoesNotMutateInput(t *testing.T) {
	bounds := []int{14, 1, 6}
	triggers := []int{7, 2}

	got, err := MergeBlocks(bounds, triggers, 0)
	require.NoError(t, err)
	assert.Equal(t, []Block{{1, 6}, {6, 14}}, got)
	assert.Equal(t, []int{14, 1, 6}, bounds)
	assert.Equal(t, []int{7, 2}, triggers)
}

func TestMergeBlocks_EdgeCases(t *testing.T) {
	_, err := MergeBlocks([]int{0, 10}, []int{1}, -1)
	assert.Error(t, err)

	got, err := MergeBlocks([]int{0, 10, 20}, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = MergeBlocks([]int{5}, []int{5}, 1)
	require.NoError(t, err)
	assert.Empty(t, got, "a single bound holds no paragraph")

	got, err = MergeBlocks([]int{10, 20}, []int{3, 25}, 0)
	require.NoError(t, err)
	assert.Empty(t, got, "triggers outside the zone are ignored")
}

func randomInput(r *rand.Rand) (bounds, triggers []int) {
	pos := r.Intn(20)
	bounds = []int{pos}
	for i := 0; i < 2+r.Intn(12); i++ {
		pos += 1 + r.Intn(40)
		bounds = append(bounds, pos)
	}
	for i := 0; i < r.Intn(10); i++ {
		triggers = append(triggers, bounds[0]+r.Intn(pos-bounds[0]))
	}
	sort.Ints(triggers)
	return bounds, triggers
}

func TestMergeBlocks_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		bounds, triggers := randomInput(r)
		n := r.Intn(4)

		blocks, err := MergeBlocks(bounds, triggers, n)
		require.NoError(t, err)

		// every trigger lies in exactly one block
		for _, trig := range triggers {
			owners := 0
			for _, b := range blocks {
				if b.Start <= trig && trig < b.End {
					owners++
				}
			}
			assert.Equal(t, 1, owners, "trigger %d in %v (bounds %v, n=%d)", trig, blocks, bounds, n)
		}

		// blocks are sorted, disjoint and inside the zone
		for j, b := range blocks {
			assert.GreaterOrEqual(t, b.Start, bounds[0])
			assert.LessOrEqual(t, b.End, bounds[len(bounds)-1])
			if j > 0 {
				assert.LessOrEqual(t, blocks[j-1].End, b.Start)
			}
		}

		// a block without context is covered by the block with context
		base, err := MergeBlocks(bounds, triggers, 0)
		require.NoError(t, err)
		require.Len(t, blocks, len(base))
		for j := range base {
			assert.LessOrEqual(t, blocks[j].Start, base[j].Start)
			assert.Equal(t, base[j].End, blocks[j].End)
		}
	}
}
