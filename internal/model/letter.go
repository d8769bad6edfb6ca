package model

import "fmt"

// Offsets in this package are rune (character) indices into the cleaned letter
// text, never byte indices.

// ZonePriority identifies one of the four structural zones of a letter
type ZonePriority int

const (
	ZoneSynthesis          ZonePriority = 0 // Synthèse de l'inspection
	ZoneCorrectiveDemands  ZonePriority = 1 // Demandes d'actions correctives (A)
	ZoneInformationDemands ZonePriority = 2 // Demandes de compléments d'information (B)
	ZoneObservations       ZonePriority = 3 // Observations
)

// ZonePriorities lists every zone in letter order
var ZonePriorities = []ZonePriority{
	ZoneSynthesis,
	ZoneCorrectiveDemands,
	ZoneInformationDemands,
	ZoneObservations,
}

func (p ZonePriority) String() string {
	switch p {
	case ZoneSynthesis:
		return "synthesis"
	case ZoneCorrectiveDemands:
		return "corrective_demands"
	case ZoneInformationDemands:
		return "information_demands"
	case ZoneObservations:
		return "observations"
	default:
		return fmt.Sprintf("zone(%d)", int(p))
	}
}

// Title returns the French heading used when presenting a zone
func (p ZonePriority) Title() string {
	switch p {
	case ZoneSynthesis:
		return "Synthèse"
	case ZoneCorrectiveDemands:
		return "Demande d'action corrective"
	case ZoneInformationDemands:
		return "Demande d'information complémentaire"
	case ZoneObservations:
		return "Observation"
	default:
		return "Générique"
	}
}

// IsDemandZone reports whether demands are extracted from this zone
func (p ZonePriority) IsDemandZone() bool {
	return p == ZoneCorrectiveDemands || p == ZoneInformationDemands
}

// Letter is a single inspection closing letter, the unit of processing
type Letter struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Text string `json:"-"` // Cleaned text; offsets point into it
}

// Zone is a structural region of a letter, [Start, End)
type Zone struct {
	Priority ZonePriority `json:"priority" yaml:"priority"`
	Start    int          `json:"start" yaml:"start"`
	End      int          `json:"end" yaml:"end"`
}

// Len returns the zone length in characters
func (z Zone) Len() int { return z.End - z.Start }

// Overlaps reports whether two zones share at least one character
func (z Zone) Overlaps(other Zone) bool {
	return z.Start < other.End && other.Start < z.End
}

// DemandSpan is a paragraph-level block holding one or more demands, [Start, End)
type DemandSpan struct {
	Start    int          `json:"start" yaml:"start"`
	End      int          `json:"end" yaml:"end"`
	Priority ZonePriority `json:"priority" yaml:"priority"` // 1 or 2
}

// Contains reports whether [start, end) lies fully inside the span
func (d DemandSpan) Contains(start, end int) bool {
	return d.Start <= start && end <= d.End
}
