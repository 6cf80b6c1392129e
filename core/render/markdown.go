package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/kbpipe/core"
)

// excerptLen is the rune length of the per-item excerpt in the contents list.
const excerptLen = 160

// MarkdownRenderer writes every item into one markdown digest. Item
// headings are demoted so each item nests under its own "##" title.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render builds the digest.
func (r *MarkdownRenderer) Render(items []core.ContentItem, meta core.RunMeta) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# Knowledge export\n\n")
	if meta.TeamID != "" {
		fmt.Fprintf(&b, "Team: `%s`\n\n", meta.TeamID)
	}
	fmt.Fprintf(&b, "%d items.\n\n", len(items))

	for i, it := range items {
		fmt.Fprintf(&b, "%d. [%s](#item-%d) (%s): %s\n", i+1, oneLine(it.Title), i+1, it.ContentType, excerpt(it.Content))
	}

	for i, it := range items {
		fmt.Fprintf(&b, "\n---\n\n<a id=\"item-%d\"></a>\n\n## %s\n\n", i+1, oneLine(it.Title))
		fmt.Fprintf(&b, "- Type: %s\n- Source: %s\n", it.ContentType, it.SourceURL)
		if it.Author != "" {
			fmt.Fprintf(&b, "- Author: %s\n", it.Author)
		}
		if it.DatePublished != "" {
			fmt.Fprintf(&b, "- Published: %s\n", it.DatePublished)
		}
		b.WriteString("\n")
		b.WriteString(demoteHeadings(it.Content, 2))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// demoteHeadings adds by levels to every ATX heading outside code fences,
// capping at level 6.
func demoteHeadings(md string, by int) string {
	lines := strings.Split(md, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := headingRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1]) + by
		if level > 6 {
			level = 6
		}
		lines[i] = strings.Repeat("#", level) + " " + m[2]
	}
	return strings.Join(lines, "\n")
}

var (
	linkRegex   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	emphasis    = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	whitespaces = regexp.MustCompile(`\s+`)
)

// stripMarkdown removes common Markdown formatting to produce plain text.
func stripMarkdown(md string) string {
	text := headingRegex.ReplaceAllString(md, "$2")
	text = emphasis.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "```", "")
	text = inlineCode.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

func excerpt(md string) string {
	text := oneLine(stripMarkdown(md))
	if utf8.RuneCountInString(text) <= excerptLen {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:excerptLen])) + "..."
}

func oneLine(s string) string {
	return strings.TrimSpace(whitespaces.ReplaceAllString(s, " "))
}
