package segment

import (
	"fmt"
	"regexp"
	"strings"
)

// Boundary names an anchor searched in a letter
type Boundary int

const (
	BoundarySynthesis Boundary = iota
	BoundaryCorrectiveDemands
	BoundaryInformationDemands
	BoundaryObservations
	BoundaryConclusion // closing formula
)

func (b Boundary) String() string {
	switch b {
	case BoundarySynthesis:
		return "synthesis"
	case BoundaryCorrectiveDemands:
		return "corrective_demands"
	case BoundaryInformationDemands:
		return "information_demands"
	case BoundaryObservations:
		return "observations"
	case BoundaryConclusion:
		return "conclusion"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// Alternatives are written against folded text: lowercase, no diacritics.
// "[\r\n|\n|\\n]" is kept as found in real letters, where escaped newlines
// survive extraction.
var (
	synthesisAnchors = []string{
		`[\r\n|\n|\\n]+[(i\. )|(1\. )|(a\. )|(1 \- )]*s[a-z]{1,2}these de (l'insp[a-z]{3}ion|la visite)[\.| |:]*`,
		`1[\-|\.| ]*synthese de l'inspection[\.| |:]*`,
		`[\r\n|\n|\\n]+synthese des inspections[\.| |:]*`,
		`[\r\n|\n|\\n]+synthese du controle[\.| |:]*`,
		`[\r\n|\n|\\n]+[ ]*synthese[\.| |:]*[\r\n|\n|\\n]+`,
		`[\r\n|\n|\\n]+i. appreciation globale`,
	}

	correctiveDemandAnchors = []string{
		`[1|2|a|b|ii][ |\.|\-|\|\/)]+demande[s]* d'action[s]* corrective[s]*[\.| |:]*`,
		`[1|2|a|b|ii][ |\.|\-|\|\/)]+demande[s]* d'a[a-z]{1,2}ion[s]* co[a-z]{5,6}ve[s]*[\.| |:]*`,
		`[\r\n|\n|\\n]+demande[s]* d'action[s]* corrective[s]*[\.| |:]*`,
		`demande[s]* d'action[s]* corrective[s]*[\.| |:]*[\r\n|\n|\\n]+`,
		`[\r\n|\n|\\n]+a[\.| \-]{0,1} demandes[ :]{0,1}[\r\n|\n|\\n]+`,
		`[\r\n|\n|\\n]+[1|2|a|b|ii][ |\.|\-|\|\/)]+demandes d'action[s]*[\r\n|\n|\\n]+`,
		`[\r\n|\n|\\n]+[a\. ]*description des ecarts[\r\n|\n|\\n]+`,
		`[\r\n|\n|\\n]+a. actions correctives[\r\n|\n|\\n]+`,
		`[\r\n|\n|\\n]+a[0-9]{0,1}. actions correctives[\r\n|\n|\\n]+`,
		`[\r\n|\n|\\n]+a. (demande[s]* de )*mise[s]* en conformite a la reglementation`,
		`ii[ |\.|\-|\|\/)]+demande[s]* portant sur des ecarts[\.| |:]*`,
		`ii[ |\.|\-|\|\/)]+demande[s]* d'engagements[\.| |:]*`,
		`[1|2|a|b|ii][ |\.|\-|\|\/)]+principales constatations et demandes`,
	}

	informationDemandAnchors = []string{
		`[a|b|c|ii|iii|2|3][ |\.|\-|\|\/)]+demande[s]*( d'information[s]*)* complementaire[s]*[\.| |:]*`,
		`[a|b|c|ii|iii|2|3][ |\.|\-|\|\/)]+demande[s]* d'information[s]*[\.| |:]*`,
		`[a|b|c|ii|iii|2|3][ |\.|\-|\|\/)]+demande[s]* de complement[s]*( d'information){0,1}[\.| |:]*`,
		`[\r\n|\n|\\n]+(demande[s]* de ){0,1}complement[s]* d'information[\.| |:]*`,
		`[\r\n|\n|\\n]+b[\.] d'informations complementaires[\.| |:]*`,
		`[a|b|c|ii|iii|2|3][ |\.|\-|\|\/)]+complement[s]* d'information[\.| |:]*`,
		`[ a-z]*complement[s]* d'information[\.| |:]*[\r\n|\n|\\n]+`,
		`[a|b|c|ii|iii|2|3][ |\.|\-|\|\/)]+demande[s]* de justification et de positionnement[\.| |:]*`,
		`[\r\n|\n|\\n]+[ ]*demande[s] d'information[s]`,
	}

	observationAnchors = []string{
		`[\r\n|\n|\\n]+[b|c|2|iv][ |\.|\-|\|\/)]+observation[s]*[\.| |:]*`,
		`[2|iv][ |\.|\-|\|\/)]+observation[s]*[\.| |:]*`,
		`[\r\n|\n|\\n]+[ ]*observation[s]*[\.| |:]*[\r\n|\n|\\n]+`,
	}

	conclusionAnchors = []string{
		`je vous prie de trouver, ci-joint, les axes d'amelioration identifies au cours de l'inspection`,
		`(vous voudrez bien|je vous saurai gre de bien vouloir) me f[a-z]{2}re part`,
	}
)

// DefaultAnchorTables returns a fresh copy of the built-in anchor tables
func DefaultAnchorTables() map[Boundary][]string {
	return map[Boundary][]string{
		BoundarySynthesis:          append([]string(nil), synthesisAnchors...),
		BoundaryCorrectiveDemands:  append([]string(nil), correctiveDemandAnchors...),
		BoundaryInformationDemands: append([]string(nil), informationDemandAnchors...),
		BoundaryObservations:       append([]string(nil), observationAnchors...),
		BoundaryConclusion:         append([]string(nil), conclusionAnchors...),
	}
}

// AnchorIndex is an immutable, compiled table of anchor alternatives per
// boundary. Alternatives of one boundary are joined in order, so at a given
// position the earlier alternative wins.
type AnchorIndex struct {
	patterns map[Boundary]*regexp.Regexp
}

// NewAnchorIndex compiles the given tables
func NewAnchorIndex(tables map[Boundary][]string) (*AnchorIndex, error) {
	idx := &AnchorIndex{patterns: make(map[Boundary]*regexp.Regexp, len(tables))}
	for b, alts := range tables {
		if len(alts) == 0 {
			continue
		}
		re, err := regexp.Compile(strings.Join(alts, "|"))
		if err != nil {
			return nil, fmt.Errorf("compile %s anchors: %w", b, err)
		}
		idx.patterns[b] = re
	}
	return idx, nil
}

// DefaultAnchorIndex compiles the built-in tables
func DefaultAnchorIndex() *AnchorIndex {
	idx, err := NewAnchorIndex(DefaultAnchorTables())
	if err != nil {
		panic(err)
	}
	return idx
}

// Find returns the rune bounds of the first anchor of boundary b in folded,
// or ok=false when there is none
func (a *AnchorIndex) Find(b Boundary, folded string) (start, end int, ok bool) {
	re, found := a.patterns[b]
	if !found {
		return 0, 0, false
	}
	loc := re.FindStringIndex(folded)
	if loc == nil {
		return 0, 0, false
	}
	start = runeIndex(folded, loc[0])
	end = start + RuneLen(folded[loc[0]:loc[1]])
	return start, end, true
}
