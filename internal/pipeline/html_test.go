package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLetterText(t *testing.T) {
	page := `<html><head><title>Lettre</title><style>p{}</style></head>
<body>
<nav>Accueil | Contact</nav>
<h1>Synthèse de l'inspection</h1>
<p>L'inspection a porté
   sur la <b>radioprotection</b>.</p>
<div><p>A. Demandes d'actions correctives</p><p>Je vous demande<br>de corriger.</p></div>
<script>var x = 1;</script>
<footer>Mentions légales</footer>
</body></html>`

	text, err := ExtractLetterText(page)
	require.NoError(t, err)
	assert.Equal(t,
		"Synthèse de l'inspection\n\n"+
			"L'inspection a porté sur la radioprotection.\n\n"+
			"A. Demandes d'actions correctives\n\n"+
			"Je vous demande\nde corriger.",
		text)
}

func TestExtractLetterText_PlainText(t *testing.T) {
	text, err := ExtractLetterText("juste du texte")
	require.NoError(t, err)
	assert.Equal(t, "juste du texte", text)
}

func TestPageLetter(t *testing.T) {
	page := &FetchResult{
		HTML:        "<html><body><p>Demandes d'actions correctives</p><p>Je vous demande###de corriger.</p></body></html>",
		ContentType: "text/html; charset=utf-8",
		FinalURL:    "https://example.org/lettres/INSSN-LYO-2021-0001.html",
		Name:        "INSSN-LYO-2021-0001",
	}
	letter, err := PageLetter(page)
	require.NoError(t, err)
	assert.Equal(t, "INSSN-LYO-2021-0001", letter.ID)
	assert.Equal(t, page.FinalURL, letter.Name)
	assert.Contains(t, letter.Text, "Demandes d'actions correctives\n\nJe vous demande\nde corriger.")

	plain := &FetchResult{HTML: "<p>brut</p>", ContentType: "text/plain", Name: "brut"}
	letter, err = PageLetter(plain)
	require.NoError(t, err)
	assert.Equal(t, "<p>brut</p>", letter.Text)
}
