package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/siance/internal/model"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"blockquote": true, "pre": true, "dd": true, "dt": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"head": true, "nav": true, "footer": true, "svg": true, "form": true,
}

var (
	inlineSpaceRe = regexp.MustCompile(`[ \t\r\f\v]+`)
	breakRunRe    = regexp.MustCompile(`\n{3,}`)
)

// ExtractLetterText returns the visible text of a letter page. Block
// elements become blank-line separated paragraphs and <br> a newline, so the
// paragraph structure survives for demand extraction.
func ExtractLetterText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "br" {
				buf.WriteString("\n")
				return
			}
		case html.TextNode:
			buf.WriteString(inlineSpaceRe.ReplaceAllString(strings.ReplaceAll(n.Data, "\n", " "), " "))
			return
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			buf.WriteString("\n\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			buf.WriteString("\n\n")
		}
	}
	walk(doc)

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text := breakRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text), nil
}

// PageLetter turns a downloaded page into a cleaned letter. Plain text
// responses are used as is; anything else goes through ExtractLetterText.
func PageLetter(page *FetchResult) (model.Letter, error) {
	text := page.HTML
	if !strings.HasPrefix(strings.ToLower(page.ContentType), "text/plain") {
		extracted, err := ExtractLetterText(page.HTML)
		if err != nil {
			return model.Letter{}, err
		}
		text = extracted
	}
	return model.Letter{
		ID:   page.Name,
		Name: page.FinalURL,
		Text: CleanText(RestoreLineBreaks(text)),
	}, nil
}
