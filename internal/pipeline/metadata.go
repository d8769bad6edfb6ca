package pipeline

import (
	"regexp"
	"strconv"
	"time"

	"github.com/ppiankov/siance/internal/segment"
)

// sentDateWindow is how far into the letter the sending date is searched, in runes
const sentDateWindow = 500

var (
	codepRe      = regexp.MustCompile(`CODEP-[A-Za-z]{3}-[0-9]{4}-[0-9]{6}`)
	inspectionRe = regexp.MustCompile(`[ISNP]{3,6}-[A-Z]{3}-[0-9]{4}-[0-9]{4}`)
	sentDateRe   = regexp.MustCompile(`le *([0-9]{1,2})(?:er)? *(janvier|fevrier|mars|avril|mai|juin|juillet|aout|septembre|octobre|novembre|decembre) *([0-9]{4})`)
)

var frenchMonths = map[string]time.Month{
	"janvier": time.January, "fevrier": time.February, "mars": time.March,
	"avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "aout": time.August, "septembre": time.September,
	"octobre": time.October, "novembre": time.November, "decembre": time.December,
}

// Metadata is what the letter header says about itself
type Metadata struct {
	Codep      string
	Inspection string
	SentAt     *time.Time
}

// ExtractMetadata reads the references and the sending date of a letter.
// A date later than now, or not a real calendar day, is ignored.
func ExtractMetadata(text string, now time.Time) Metadata {
	md := Metadata{
		Codep:      codepRe.FindString(text),
		Inspection: inspectionRe.FindString(text),
	}

	head := segment.Fold(segment.Slice(text, 0, sentDateWindow))
	for _, m := range sentDateRe.FindAllStringSubmatch(head, -1) {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		month := frenchMonths[m[2]]
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if d.Day() != day || d.Month() != month {
			continue
		}
		if d.After(now) {
			break
		}
		md.SentAt = &d
		break
	}
	return md
}
