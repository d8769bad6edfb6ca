package pipeline

import (
	"slices"

	"github.com/ppiankov/siance/internal/model"
	"github.com/ppiankov/siance/internal/segment"
)

// BuildOutline arranges a report as letter -> zones -> demands -> sentences.
// Demands hang under the zone that contains them; sentences under the demand
// that contains them. A node without children carries its text as a leaf.
func BuildOutline(report *model.Report, text string) model.Outline {
	root := &model.OutlineNode{
		Kind:  model.OutlineLetter,
		Title: report.Name,
		Start: 0,
		End:   report.Characters,
	}
	if root.Title == "" {
		root.Title = report.LetterID
	}

	labelsByDemand := make(map[model.DemandSpan][]int, len(report.DemandPredictions))
	for _, dp := range report.DemandPredictions {
		labelsByDemand[dp.Demand] = dp.LabelIDs
	}
	sentences := sentenceNodes(report.Predictions)

	for _, z := range report.Zones {
		zone := &model.OutlineNode{Kind: model.OutlineZone, Title: z.Priority.Title(), Start: z.Start, End: z.End}
		for _, d := range report.Demands {
			if d.Start < z.Start || d.End > z.End {
				continue
			}
			demand := &model.OutlineNode{
				Kind:     model.OutlineDemand,
				Title:    d.Priority.Title(),
				Start:    d.Start,
				End:      d.End,
				LabelIDs: labelsByDemand[d],
			}
			for _, s := range sentences {
				if d.Contains(s.Start, s.End) {
					s.Children = []model.Outline{model.OutlineLeaf{Text: segment.Slice(text, s.Start, s.End)}}
					demand.Children = append(demand.Children, s)
				}
			}
			zone.Children = append(zone.Children, withLeaf(demand, text))
		}
		root.Children = append(root.Children, withLeaf(zone, text))
	}
	return root
}

// sentenceNodes merges the predictions of each sentence into one node
func sentenceNodes(preds []model.SentencePrediction) []*model.OutlineNode {
	var nodes []*model.OutlineNode
	index := make(map[[2]int]*model.OutlineNode)
	for _, p := range preds {
		key := [2]int{p.Start, p.End}
		n, ok := index[key]
		if !ok {
			n = &model.OutlineNode{Kind: model.OutlineSentence, Start: p.Start, End: p.End}
			index[key] = n
			nodes = append(nodes, n)
		}
		if !slices.Contains(n.LabelIDs, p.LabelID) {
			n.LabelIDs = append(n.LabelIDs, p.LabelID)
		}
	}
	for _, n := range nodes {
		slices.Sort(n.LabelIDs)
	}
	slices.SortStableFunc(nodes, func(a, b *model.OutlineNode) int { return a.Start - b.Start })
	return nodes
}

func withLeaf(n *model.OutlineNode, text string) *model.OutlineNode {
	if len(n.Children) == 0 && text != "" {
		n.Children = []model.Outline{model.OutlineLeaf{Text: segment.Slice(text, n.Start, n.End)}}
	}
	return n
}
