package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var punctuationFold = map[rune]rune{
	'–': '-',
	'—': '-',
	'’': '\'',
}

// Fold lowercases s and strips diacritics rune by rune. The result has
// exactly as many runes as s, so a rune offset found in the folded text is
// valid in s.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(foldRune(r))
	}
	return b.String()
}

func foldRune(r rune) rune {
	if r < utf8.RuneSelf {
		return unicode.ToLower(r)
	}
	if p, ok := punctuationFold[r]; ok {
		return p
	}
	stripped, _, err := transform.String(stripMarks, string(r))
	if err != nil || utf8.RuneCountInString(stripped) != 1 {
		return unicode.ToLower(r)
	}
	folded, _ := utf8.DecodeRuneInString(stripped)
	return unicode.ToLower(folded)
}

// runeIndex converts a byte offset in s to a rune offset
func runeIndex(s string, byteOffset int) int {
	return utf8.RuneCountInString(s[:byteOffset])
}

// runeSlice returns the runes [start, end) of s
func runeSlice(s string, start, end int) string {
	if start >= end {
		return ""
	}
	i, from, to := 0, len(s), len(s)
	for pos := range s {
		if i == start {
			from = pos
		}
		if i == end {
			to = pos
			break
		}
		i++
	}
	if from > to {
		return ""
	}
	return s[from:to]
}

// RuneLen is the length of s in characters
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Slice returns the characters [start, end) of s, clamped to its bounds
func Slice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	return runeSlice(s, start, end)
}
