// Package sentence cuts letter text into sentences with absolute rune
// offsets, the unit the topic classifier works on.
package sentence

import (
	"strings"
	"unicode"
)

// MinLengthForPrediction is the shortest sentence, in runes, worth classifying
const MinLengthForPrediction = 64

// Sentence is a trimmed sentence and its [Start, End) rune span in the letter
type Sentence struct {
	Start int
	End   int
	Text  string
}

// Len returns the sentence length in runes
func (s Sentence) Len() int { return s.End - s.Start }

// Segmenter splits text[start:end] (rune offsets) into sentences whose
// offsets are absolute in text
type Segmenter interface {
	Split(text string, start, end int) []Sentence
}

var defaultAbbreviations = []string{
	"m", "mm", "mme", "mmes", "mlle", "dr", "pr", "me",
	"art", "cf", "ex", "p", "pp", "n", "no", "réf", "ref", "vol",
	"env", "fig", "éd", "ed", "chap", "al", "paragr",
}

// Splitter is a rule-based splitter for French administrative prose. It
// breaks after . ! ? and … when followed by whitespace, unless the dot
// closes a known abbreviation or a single capital initial, and at blank
// lines.
type Splitter struct {
	abbreviations map[string]bool
}

// NewSplitter creates a splitter; extra abbreviations (without the dot)
// are added to the built-in list
func NewSplitter(extra ...string) *Splitter {
	abbr := make(map[string]bool, len(defaultAbbreviations)+len(extra))
	for _, a := range defaultAbbreviations {
		abbr[a] = true
	}
	for _, a := range extra {
		abbr[strings.ToLower(strings.TrimSuffix(a, "."))] = true
	}
	return &Splitter{abbreviations: abbr}
}

// Split implements Segmenter
func (s *Splitter) Split(text string, start, end int) []Sentence {
	rs := []rune(text)
	start = max(0, min(start, len(rs)))
	end = max(start, min(end, len(rs)))

	var out []Sentence
	emit := func(from, to int) {
		for from < to && unicode.IsSpace(rs[from]) {
			from++
		}
		for to > from && unicode.IsSpace(rs[to-1]) {
			to--
		}
		if from < to {
			out = append(out, Sentence{Start: from, End: to, Text: string(rs[from:to])})
		}
	}

	sentStart := start
	for i := start; i < end; i++ {
		r := rs[i]
		switch {
		case r == '\n' && blankLineAt(rs, i, end):
			emit(sentStart, i)
			sentStart = i + 1

		case isTerminator(r):
			j := i + 1
			for j < end && (isTerminator(rs[j]) || isCloser(rs[j])) {
				j++
			}
			// French spacing puts a space before a closing guillemet
			if j+1 < end && rs[j] == ' ' && rs[j+1] == '»' {
				j += 2
			}
			if j < end && !unicode.IsSpace(rs[j]) {
				i = j - 1
				continue
			}
			if r == '.' && s.isAbbreviation(rs, i, start) {
				continue
			}
			emit(sentStart, j)
			sentStart = j
			i = j - 1
		}
	}
	emit(sentStart, end)
	return out
}

// Predictable keeps sentences of at least minLen runes
func Predictable(sentences []Sentence, minLen int) []Sentence {
	out := make([]Sentence, 0, len(sentences))
	for _, s := range sentences {
		if s.Len() >= minLen {
			out = append(out, s)
		}
	}
	return out
}

func (s *Splitter) isAbbreviation(rs []rune, dot, floor int) bool {
	k := dot
	for k > floor && unicode.IsLetter(rs[k-1]) {
		k--
	}
	word := rs[k:dot]
	if len(word) == 0 {
		return false
	}
	if len(word) == 1 && unicode.IsUpper(word[0]) {
		return true
	}
	return s.abbreviations[strings.ToLower(string(word))]
}

// blankLineAt reports whether the newline at i is followed by another
// newline before any visible character
func blankLineAt(rs []rune, i, end int) bool {
	for j := i + 1; j < end; j++ {
		switch {
		case rs[j] == '\n':
			return true
		case !unicode.IsSpace(rs[j]):
			return false
		}
	}
	return false
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}
