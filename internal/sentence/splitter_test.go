package sentence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(ss []Sentence) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Text
	}
	return out
}

func TestSplit_Basic(t *testing.T) {
	text := "Je vous demande de corriger l'écart. Vous me transmettrez le plan d'action ! Est-ce clair ?"
	got := NewSplitter().Split(text, 0, len([]rune(text)))

	assert.Equal(t, []string{
		"Je vous demande de corriger l'écart.",
		"Vous me transmettrez le plan d'action !",
		"Est-ce clair ?",
	}, texts(got))
}

func TestSplit_OffsetsAreAbsoluteRunes(t *testing.T) {
	text := "Préambule écarté. Première phrase. Deuxième phrase."
	rs := []rune(text)
	start := strings.Index(text, "Première")
	start = len([]rune(text[:start]))

	got := NewSplitter().Split(text, start, len(rs))
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, s.Text, string(rs[s.Start:s.End]))
	}
	assert.Equal(t, start, got[0].Start)
	assert.Equal(t, len(rs), got[1].End)
}

func TestSplit_Abbreviations(t *testing.T) {
	text := "M. Dupont a rappelé l'art. 4 du décret, cf. annexe. Le point suivant porte sur le n. 3."
	got := NewSplitter().Split(text, 0, len([]rune(text)))

	assert.Equal(t, []string{
		"M. Dupont a rappelé l'art. 4 du décret, cf. annexe.",
		"Le point suivant porte sur le n. 3.",
	}, texts(got))
}

func TestSplit_ExtraAbbreviation(t *testing.T) {
	text := "Voir la pièce jointe en PJ. Fin."
	assert.Len(t, NewSplitter().Split(text, 0, 100), 2)
	assert.Len(t, NewSplitter("PJ.").Split(text, 0, 100), 1)
}

func TestSplit_NumbersAndURLs(t *testing.T) {
	text := "La dose est de 2.5 mSv sur www.asn.fr. Suite."
	got := NewSplitter().Split(text, 0, 100)
	assert.Equal(t, []string{"La dose est de 2.5 mSv sur www.asn.fr.", "Suite."}, texts(got))
}

func TestSplit_BlankLinesAndQuotes(t *testing.T) {
	text := "Titre sans point\n\nIl a dit « c'est fait. » Puis il est parti.\nligne suivante"
	got := NewSplitter().Split(text, 0, 200)

	assert.Equal(t, []string{
		"Titre sans point",
		"Il a dit « c'est fait. »",
		"Puis il est parti.",
		"ligne suivante",
	}, texts(got))
}

func TestSplit_RangeClamped(t *testing.T) {
	assert.Empty(t, NewSplitter().Split("abc", 5, 2))
	assert.Empty(t, NewSplitter().Split("   ", 0, 3))
	got := NewSplitter().Split("abc", -4, 99)
	require.Len(t, got, 1)
	assert.Equal(t, Sentence{Start: 0, End: 3, Text: "abc"}, got[0])
}

func TestPredictable(t *testing.T) {
	long := strings.Repeat("a", MinLengthForPrediction)
	ss := []Sentence{
		{Start: 0, End: MinLengthForPrediction, Text: long},
		{Start: 70, End: 70 + MinLengthForPrediction - 1, Text: long[1:]},
	}
	got := Predictable(ss, MinLengthForPrediction)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Start)
}

func TestSplitter_ImplementsSegmenter(t *testing.T) {
	var _ Segmenter = NewSplitter()
}
