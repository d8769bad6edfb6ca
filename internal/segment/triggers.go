package segment

import (
	"regexp"
	"strings"
)

// DefaultTriggerPhrases mark the presence of a demand
var DefaultTriggerPhrases = []string{
	"je vous demande",
	"asn vous demande",
	"asn vous invite",
	"je vous invite",
}

// TriggerLocator finds trigger phrases, ignoring case
type TriggerLocator struct {
	re *regexp.Regexp
}

// NewTriggerLocator builds a locator for literal phrases
func NewTriggerLocator(phrases []string) *TriggerLocator {
	if len(phrases) == 0 {
		phrases = DefaultTriggerPhrases
	}
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return &TriggerLocator{re: regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))}
}

// Offsets returns the absolute start of every trigger occurrence in zoneText
func (l *TriggerLocator) Offsets(zoneText string, zoneStart int) []int {
	matches := l.re.FindAllStringIndex(zoneText, -1)
	if len(matches) == 0 {
		return nil
	}
	starts := make([]int, len(matches))
	for i, m := range matches {
		starts[i] = m[0]
	}
	offsets := byteToRuneOffsets(zoneText, starts)
	for i := range offsets {
		offsets[i] += zoneStart
	}
	return offsets
}
