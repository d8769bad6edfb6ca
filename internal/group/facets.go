package group

import (
	"slices"

	"github.com/ppiankov/siance/internal/model"
)

// DefaultThreshold separates confident predictions from low-confidence ones
const DefaultThreshold = 0.3

// DemandType returns the indexing name of a demand priority
func DemandType(p model.ZonePriority) string {
	switch p {
	case model.ZoneCorrectiveDemands:
		return "A"
	case model.ZoneInformationDemands:
		return "B"
	default:
		return p.String()
	}
}

// Facets splits the labels of every group by confidence and transversality.
// A prediction with a score above threshold is a topic, or a complementary
// topic for a transverse label; a score at or below threshold makes a
// low-confidence topic; a prediction without score is left out. When text is
// not empty the demand content is filled from it.
func Facets(groups []Group, labels model.LabelSet, threshold float64, text string) []model.DemandTopics {
	out := make([]model.DemandTopics, 0, len(groups))
	for _, g := range groups {
		dt := model.DemandTopics{
			Demand:              g.Demand,
			Type:                DemandType(g.Demand.Priority),
			Topics:              []string{},
			ComplementaryTopics: []string{},
			LowConfidenceTopics: []string{},
		}
		if text != "" {
			dt.Content = runeRange(text, g.Demand.Start, g.Demand.End)
		}

		for _, p := range g.Predictions {
			if p.DecisionScore == nil {
				continue
			}
			label, ok := labels[p.LabelID]
			if !ok {
				continue
			}
			name := label.Name()
			switch {
			case *p.DecisionScore <= threshold:
				dt.LowConfidenceTopics = append(dt.LowConfidenceTopics, name)
			case label.IsTransverse:
				dt.ComplementaryTopics = append(dt.ComplementaryTopics, name)
			default:
				dt.Topics = append(dt.Topics, name)
			}
		}

		dt.Topics = sortedUnique(dt.Topics)
		dt.ComplementaryTopics = sortedUnique(dt.ComplementaryTopics)
		dt.LowConfidenceTopics = sortedUnique(dt.LowConfidenceTopics)
		out = append(out, dt)
	}
	return out
}

// SplitByType separates A (corrective) and B (information) demands
func SplitByType(topics []model.DemandTopics) (a, b []model.DemandTopics) {
	for _, t := range topics {
		switch t.Demand.Priority {
		case model.ZoneCorrectiveDemands:
			a = append(a, t)
		case model.ZoneInformationDemands:
			b = append(b, t)
		}
	}
	return a, b
}

func sortedUnique(s []string) []string {
	slices.Sort(s)
	return slices.Compact(s)
}

func runeRange(s string, start, end int) string {
	r := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return ""
	}
	return string(r[start:end])
}
