// Package group attaches sentence predictions to the demand blocks that
// contain them and derives per-demand topic facets.
package group

import (
	"slices"
	"sort"

	"github.com/ppiankov/siance/internal/model"
)

// Group is one demand with the predictions it fully contains
type Group struct {
	Demand      model.DemandSpan
	Predictions []model.SentencePrediction
}

// LabelIDs returns the distinct labels of the group, sorted
func (g Group) LabelIDs() []int {
	ids := make([]int, 0, len(g.Predictions))
	for _, p := range g.Predictions {
		ids = append(ids, p.LabelID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// DemandPrediction projects the group for indexing
func (g Group) DemandPrediction() model.DemandPrediction {
	return model.DemandPrediction{Demand: g.Demand, LabelIDs: g.LabelIDs(), Predictions: g.Predictions}
}

// Assign sweeps demands and predictions, both sorted by start, and groups
// every prediction fully inside a demand. For each demand the prediction
// cursor advances while the prediction ends within the demand; a prediction
// ending after the demand stops the sweep and is looked at again for the
// next demand. A prediction straddling a demand end is therefore never
// grouped. Inputs are not modified.
func Assign(demands []model.DemandSpan, predictions []model.SentencePrediction) []Group {
	ds := slices.Clone(demands)
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Start < ds[j].Start })
	ps := slices.Clone(predictions)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Start < ps[j].Start })

	groups := make([]Group, len(ds))
	ip := 0
	for i, d := range ds {
		groups[i].Demand = d
		for ip < len(ps) && ps[ip].End <= d.End {
			if ps[ip].Start >= d.Start {
				groups[i].Predictions = append(groups[i].Predictions, ps[ip])
			}
			ip++
		}
	}
	return groups
}
