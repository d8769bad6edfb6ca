package segment

import "regexp"

// DefaultParagraphMinLength is the shortest paragraph kept as a block
const DefaultParagraphMinLength = 8

// Blank lines, literal or escaped
var paragraphBreak = regexp.MustCompile(`\n\n|\\n\\n`)

// ParagraphBounds returns absolute paragraph boundaries inside a zone. The
// list starts at zoneStart, ends at zoneStart+len(zoneText), and every
// interval but a lone first one is at least minLen characters long: a
// boundary closer than minLen to the previous kept one is dropped, merging
// the short paragraph into its successor.
func ParagraphBounds(zoneText string, zoneStart, minLen int) []int {
	end := zoneStart + RuneLen(zoneText)

	matches := paragraphBreak.FindAllStringIndex(zoneText, -1)
	ends := make([]int, len(matches))
	for i, m := range matches {
		ends[i] = m[1]
	}

	bounds := []int{zoneStart}
	last := zoneStart
	for _, b := range byteToRuneOffsets(zoneText, ends) {
		b += zoneStart
		if b >= end {
			break
		}
		if b-last >= minLen {
			bounds = append(bounds, b)
			last = b
		}
	}
	if end-last < minLen && len(bounds) > 1 {
		bounds = bounds[:len(bounds)-1]
	}
	return append(bounds, end)
}

// byteToRuneOffsets converts ascending byte offsets of s to rune offsets in
// one pass
func byteToRuneOffsets(s string, offsets []int) []int {
	out := make([]int, 0, len(offsets))
	runes, next := 0, 0
	for pos := range s {
		for next < len(offsets) && offsets[next] <= pos {
			out = append(out, runes)
			next++
		}
		runes++
	}
	for ; next < len(offsets); next++ {
		out = append(out, runes)
	}
	return out
}
