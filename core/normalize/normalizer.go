// Package normalize converts cleaned HTML into Markdown, which serves as the
// canonical format for every item the pipeline emits. Input that is
// already markdown passes through with only whitespace and Unicode
// normalization, so normalizing twice gives the same result.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"golang.org/x/text/unicode/norm"
)

var (
	fencedCode = regexp.MustCompile("(?s)(```|~~~).*?(```|~~~)")
	inlineCode = regexp.MustCompile("`[^`\n]*`")
	htmlTag    = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	trailingWS = regexp.MustCompile(`[ \t]+\n`)
)

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct {
	domain string
}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

// WithDomain returns a copy that resolves relative links against domain
// (for example "https://interviewing.io").
func (n *MarkdownNormalizer) WithDomain(domain string) *MarkdownNormalizer {
	return &MarkdownNormalizer{domain: domain}
}

// Convert normalizes fragment with relative links resolved against origin.
func (n *MarkdownNormalizer) Convert(fragment, origin string) (string, error) {
	return n.WithDomain(origin).Normalize(fragment)
}

// Normalize converts a cleaned HTML fragment into Markdown.
func (n *MarkdownNormalizer) Normalize(input string) (string, error) {
	if !LooksLikeHTML(input) {
		return Tidy(input), nil
	}
	var opts []converter.ConvertOptionFunc
	if n.domain != "" {
		opts = append(opts, converter.WithDomain(n.domain))
	}
	markdown, err := htmltomarkdown.ConvertString(input, opts...)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return Tidy(markdown), nil
}

// LooksLikeHTML reports whether s contains HTML tags outside code spans.
func LooksLikeHTML(s string) bool {
	s = fencedCode.ReplaceAllString(s, "")
	s = inlineCode.ReplaceAllString(s, "")
	return htmlTag.MatchString(s)
}

// Tidy normalizes line endings, trailing whitespace, blank-line runs and
// Unicode composition.
func Tidy(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = norm.NFC.String(s)
	s = trailingWS.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
