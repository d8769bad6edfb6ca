package segment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
)

// DemandExtractor turns the demand zones of a segmentation into demand spans
type DemandExtractor struct {
	triggers           *TriggerLocator
	nPreviousBlocks    int
	paragraphMinLength int
	log                logging.Logger
}

// NewDemandExtractor creates an extractor. A nil locator uses the default
// trigger phrases.
func NewDemandExtractor(triggers *TriggerLocator, nPreviousBlocks, paragraphMinLength int, log logging.Logger) *DemandExtractor {
	if triggers == nil {
		triggers = NewTriggerLocator(nil)
	}
	return &DemandExtractor{
		triggers:           triggers,
		nPreviousBlocks:    nPreviousBlocks,
		paragraphMinLength: paragraphMinLength,
		log:                logging.OrNop(log).Named("demands"),
	}
}

// Extract returns the demand spans of the corrective and information zones,
// sorted by start
func (e *DemandExtractor) Extract(seg *Segmentation) ([]model.DemandSpan, error) {
	if seg == nil {
		return nil, nil
	}

	var spans []model.DemandSpan
	for _, p := range []model.ZonePriority{model.ZoneCorrectiveDemands, model.ZoneInformationDemands} {
		zone := seg.Section(p)
		if zone == nil {
			continue
		}

		bounds := ParagraphBounds(zone.Text, zone.Start, e.paragraphMinLength)
		triggers := e.triggers.Offsets(zone.Text, zone.Start)
		if len(triggers) == 0 {
			e.log.Debug("no demand trigger in zone", logging.String("zone", p.String()))
			continue
		}

		blocks, err := MergeBlocks(bounds, triggers, e.nPreviousBlocks)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			spans = append(spans, model.DemandSpan{Start: b.Start, End: b.End, Priority: p})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans, nil
}

// Result is the structure recovered from one letter
type Result struct {
	Segmentation *Segmentation
	Zones        []model.Zone
	Demands      []model.DemandSpan
}

// Analyzer runs segmentation and demand extraction together
type Analyzer struct {
	Segmenter *Segmenter
	Demands   *DemandExtractor
}

// NewAnalyzer builds an analyzer from the segmentation settings
func NewAnalyzer(cfg model.SegmentationConfig, log logging.Logger) *Analyzer {
	return &Analyzer{
		Segmenter: NewSegmenter(DefaultAnchorIndex(), log),
		Demands:   NewDemandExtractor(NewTriggerLocator(cfg.TriggerPhrases), cfg.NPreviousBlocks, cfg.ParagraphMinLength, log),
	}
}

// ErrDemandExtraction means the zones were found but their demands could
// not be extracted
var ErrDemandExtraction = errors.New("demand extraction failed")

// Analyze segments text and extracts its demands. On ErrFormatUnrecognized
// the returned result is empty, never nil. On ErrDemandExtraction the zones
// are kept and the demands are empty.
func (a *Analyzer) Analyze(text string) (*Result, error) {
	seg, err := a.Segmenter.Segment(text)
	if err != nil {
		return &Result{}, err
	}
	demands, err := a.Demands.Extract(seg)
	if err != nil {
		return &Result{Segmentation: seg, Zones: seg.Zones()}, fmt.Errorf("%w: %w", ErrDemandExtraction, err)
	}
	return &Result{Segmentation: seg, Zones: seg.Zones(), Demands: demands}, nil
}
