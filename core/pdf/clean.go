package pdf

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	pageNumberLine = regexp.MustCompile(`(?m)^[ \t]*(?:[Pp]age[ \t]+)?\d+(?:[ \t]+of[ \t]+\d+)?[ \t]*$`)
	brokenLine     = regexp.MustCompile(`([a-z,])\n([a-z])`)
	hyphenBreak    = regexp.MustCompile(`([a-z])-\n([a-z])`)
	headingLine    = regexp.MustCompile(`^[A-Z][\w\s\-]+$`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
)

// maxHeadingLen is the longest line promoted to a heading.
const maxHeadingLen = 80

// CleanText turns raw PDF text into markdown: page-number lines are
// removed, words split across lines are rejoined, short title-case lines
// become "##" headings, and blank-line runs collapse to one.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = pageNumberLine.ReplaceAllString(text, "")
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = brokenLine.ReplaceAllString(text, "$1 $2")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && utf8.RuneCountInString(trimmed) < maxHeadingLen && headingLine.MatchString(trimmed) && len(strings.Fields(trimmed)) <= 10 {
			lines[i] = "\n## " + trimmed + "\n"
		} else {
			lines[i] = strings.TrimRight(line, " \t")
		}
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
