package segment

import (
	"fmt"
	"sort"
)

// Block is a merged demand block, [Start, End)
type Block struct {
	Start int
	End   int
}

// MergeBlocks returns one block per paragraph holding at least one trigger.
// Triggers of the same paragraph collapse into one block. Each block is
// pulled back over up to nPrevious preceding paragraphs, never before the
// first bound and never before the end of the previous demand paragraph.
func MergeBlocks(bounds, triggers []int, nPrevious int) ([]Block, error) {
	if nPrevious < 0 {
		return nil, fmt.Errorf("n_previous_blocks must be non-negative, got %d", nPrevious)
	}

	bounds = sortedCopy(bounds)
	triggers = sortedCopy(triggers)

	var (
		merged   []Block
		lastPara *Block
	)
	ib, it := 0, 0
	for ib < len(bounds)-1 && it < len(triggers) {
		paraStart, paraEnd := bounds[ib], bounds[ib+1]
		t := triggers[it]

		if t < paraStart || t >= paraEnd {
			ib++
			continue
		}

		if lastPara == nil || lastPara.Start != paraStart || lastPara.End != paraEnd {
			start := bounds[max(0, ib-nPrevious)]
			if lastPara != nil {
				start = max(start, lastPara.End)
			}
			merged = append(merged, Block{Start: start, End: paraEnd})
			lastPara = &Block{Start: paraStart, End: paraEnd}
		}
		it++
	}
	return merged, nil
}

func sortedCopy(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}
