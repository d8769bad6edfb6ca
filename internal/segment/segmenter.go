package segment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
)

// ErrFormatUnrecognized means the letter could not be segmented at all.
// Callers treat it as a letter with zero zones and zero demands.
var ErrFormatUnrecognized = errors.New("letter format not recognized")

// Span is a region of the letter text, [Start, End) in characters
type Span struct {
	Start int
	End   int
	Text  string
}

// Segmentation holds the zones found in one letter. A nil section means its
// anchor was not found.
type Segmentation struct {
	Synthesis          *Span
	CorrectiveDemands  *Span
	InformationDemands *Span
	Observations       *Span
	Conclusion         *Span

	// IntroductionEnd is the start of the earliest anchor found (or the text
	// length when none matched); text before it is discarded
	IntroductionEnd int
}

// Section returns the span of a zone, or nil
func (s *Segmentation) Section(p model.ZonePriority) *Span {
	switch p {
	case model.ZoneSynthesis:
		return s.Synthesis
	case model.ZoneCorrectiveDemands:
		return s.CorrectiveDemands
	case model.ZoneInformationDemands:
		return s.InformationDemands
	case model.ZoneObservations:
		return s.Observations
	}
	return nil
}

func (s *Segmentation) setSection(p model.ZonePriority, span *Span) {
	switch p {
	case model.ZoneSynthesis:
		s.Synthesis = span
	case model.ZoneCorrectiveDemands:
		s.CorrectiveDemands = span
	case model.ZoneInformationDemands:
		s.InformationDemands = span
	case model.ZoneObservations:
		s.Observations = span
	}
}

// Zones returns the non-empty zones sorted by start
func (s *Segmentation) Zones() []model.Zone {
	var zones []model.Zone
	for _, p := range model.ZonePriorities {
		span := s.Section(p)
		if span == nil || span.End <= span.Start {
			continue
		}
		zones = append(zones, model.Zone{Priority: p, Start: span.Start, End: span.End})
	}
	sort.SliceStable(zones, func(i, j int) bool { return zones[i].Start < zones[j].Start })
	return zones
}

// searchOrder goes from the end of a letter toward its beginning
var searchOrder = []struct {
	boundary Boundary
	zone     model.ZonePriority
}{
	{BoundaryObservations, model.ZoneObservations},
	{BoundaryInformationDemands, model.ZoneInformationDemands},
	{BoundaryCorrectiveDemands, model.ZoneCorrectiveDemands},
	{BoundarySynthesis, model.ZoneSynthesis},
}

// Segmenter carves letters into zones using an AnchorIndex
type Segmenter struct {
	anchors *AnchorIndex
	log     logging.Logger
}

// NewSegmenter creates a segmenter over the given anchors
func NewSegmenter(anchors *AnchorIndex, log logging.Logger) *Segmenter {
	return &Segmenter{anchors: anchors, log: logging.OrNop(log).Named("segment")}
}

// Segment locates the zones of text. Each anchor is searched only before
// the start of the anchor found after it, so zones never overlap.
func (s *Segmenter) Segment(text string) (seg *Segmentation, err error) {
	defer func() {
		if r := recover(); r != nil {
			seg = nil
			err = fmt.Errorf("%w: %v", ErrFormatUnrecognized, r)
		}
	}()

	if s.anchors == nil {
		return nil, fmt.Errorf("%w: no anchor index", ErrFormatUnrecognized)
	}

	folded := Fold(text)
	boundary := RuneLen(text)
	seg = &Segmentation{}

	if start, _, ok := s.anchors.Find(BoundaryConclusion, folded); ok {
		seg.Conclusion = &Span{Start: start, End: boundary, Text: runeSlice(text, start, boundary)}
		boundary = start
	}

	for _, step := range searchOrder {
		prefix := runeSlice(folded, 0, boundary)
		start, end, ok := s.anchors.Find(step.boundary, prefix)
		if !ok {
			s.log.Debug("zone anchor not found", logging.String("zone", step.zone.String()))
			continue
		}
		seg.setSection(step.zone, &Span{Start: end, End: boundary, Text: runeSlice(text, end, boundary)})
		boundary = start
	}

	seg.IntroductionEnd = boundary
	return seg, nil
}
