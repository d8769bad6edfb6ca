package pipeline

import (
	"regexp"
	"strings"
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// cleanRules run in order; later rules see the output of earlier ones
var cleanRules = []rewrite{
	// page-number artifacts
	{regexp.MustCompile(`- [0-9]{1,2} -`), ""},
	{regexp.MustCompile(`…/…`), ""},
	{regexp.MustCompile(`[Pp]age *[0-9]{1,2} *(?:sur|/) *[0-9]{1,2}`), ""},

	// whitespace
	{regexp.MustCompile(`[\t ]+`), " "},
	{regexp.MustCompile(`\n `), "\n"},
	{regexp.MustCompile(`\n\n[0-9]+/[0-9]+`), ""},
	{regexp.MustCompile(`\n\n+`), "\n\n"},
	{regexp.MustCompile(`\. \n`), ".\n"},

	// lines broken inside a sentence
	{regexp.MustCompile(`([a-zàé»,)]) \n+([a-z])`), "${1} ${2}"},
	{regexp.MustCompile(`([a-z]) \n+([àé«(])`), "${1} ${2}"},
	{regexp.MustCompile(`(°) \n+([0-9])`), "${1} ${2}"},
}

// RestoreLineBreaks turns the "###" line separator of letter exports back
// into newlines
func RestoreLineBreaks(s string) string {
	return strings.ReplaceAll(s, "###", "\n")
}

// CleanText removes page furniture and repairs line wrapping. Offsets of
// every downstream record point into its result.
func CleanText(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	for _, rule := range cleanRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return text
}
