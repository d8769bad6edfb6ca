package classify

import (
	"fmt"
	"slices"
	"sort"

	"github.com/ppiankov/siance/internal/model"
)

// Hierarchy maps every bottom label id to its top category
type Hierarchy map[int]string

// NewHierarchy builds the hierarchy of the given labels. Every label must
// name a category.
func NewHierarchy(labels []model.Label) (Hierarchy, error) {
	h := make(Hierarchy, len(labels))
	for _, l := range labels {
		if l.Category == "" {
			return nil, fmt.Errorf("label %d has no category", l.ID)
		}
		h[l.ID] = l.Category
	}
	return h, nil
}

// Category returns the category of a label
func (h Hierarchy) Category(label int) (string, bool) {
	c, ok := h[label]
	return c, ok
}

// Categories returns the distinct categories, sorted
func (h Hierarchy) Categories() []string {
	out := make([]string, 0, len(h))
	for _, c := range h {
		out = append(out, c)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Children returns the labels of each category, sorted
func (h Hierarchy) Children() map[string][]int {
	out := make(map[string][]int)
	for label, c := range h {
		out[c] = append(out[c], label)
	}
	for _, labels := range out {
		sort.Ints(labels)
	}
	return out
}

// Subset keeps only the labels accepted by keep
func (h Hierarchy) Subset(keep func(label int) bool) Hierarchy {
	out := make(Hierarchy)
	for label, c := range h {
		if keep(label) {
			out[label] = c
		}
	}
	return out
}
