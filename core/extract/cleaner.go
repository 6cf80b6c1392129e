// Package extract isolates the main content of an HTML page.
// It finds the best content container with a selector cascade, removes
// boilerplate (navigation, ads, cookie banners, comments), and reads page
// metadata (title, author, publish date, tags).
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNoContent is returned when no content container yields text.
var ErrNoContent = errors.New("no content found")

// BoilerplateSelectors are removed from every content container.
var BoilerplateSelectors = []string{
	"header", "footer", "nav", "aside",
	".sidebar", ".navigation", ".menu",
	".ads", ".ad", ".advertisement",
	".cookie-banner", ".social-media", ".comments", "#comments",
	"script", "style", "noscript", "iframe", "form", "button", "svg",
	`[class*="cookie"]`, `[class*="banner"]`, `[id*="banner"]`,
	`[class*="popup"]`, `[id*="popup"]`, `[class*="modal"]`, `[id*="modal"]`,
	".newsletter", ".subscription", ".cta",
	".social-share", ".related-posts", ".author-bio",
}

// CommonContentSelectors are tried after any site-specific selectors.
var CommonContentSelectors = []string{
	"article", ".post-content", ".entry-content", ".article-content",
	".content", ".main-content", ".post", ".entry",
	"main", "#content", "#main", "#main-content",
}

// Options configures a Cleaner.
type Options struct {
	// ContentSelectors replace CommonContentSelectors when set.
	ContentSelectors []string
	// ExcludeSelectors are removed in addition to BoilerplateSelectors.
	ExcludeSelectors []string
}

// Cleaner strips boilerplate from HTML and returns the main content fragment.
type Cleaner struct {
	common  []string
	exclude []string
}

// New creates a Cleaner.
func New(opts Options) *Cleaner {
	common := opts.ContentSelectors
	if len(common) == 0 {
		common = CommonContentSelectors
	}
	exclude := append(append([]string(nil), BoilerplateSelectors...), opts.ExcludeSelectors...)
	return &Cleaner{common: common, exclude: exclude}
}

// CommonSelectors returns the selectors tried after site-specific ones.
func (c *Cleaner) CommonSelectors() []string { return c.common }

// Document is a parsed page with its boilerplate nodes marked.
type Document struct {
	Doc  *goquery.Document
	skip map[*html.Node]bool
}

// Parse parses page and marks its boilerplate.
func (c *Cleaner) Parse(page string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	d := &Document{Doc: doc, skip: make(map[*html.Node]bool)}
	for _, sel := range c.exclude {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			for _, n := range s.Nodes {
				// Never drop the document skeleton, whatever its classes say.
				if n.Data == "html" || n.Data == "body" {
					continue
				}
				d.skip[n] = true
			}
		})
	}
	return d, nil
}

// Select renders the matches of the first selector that yields text.
// Matches nested inside another match are dropped; several matches are
// wrapped in one <div>.
func (d *Document) Select(selectors []string) (string, bool) {
	for _, sel := range selectors {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		nodes := d.outermost(d.Doc.Find(sel).Nodes)
		if len(nodes) == 0 {
			continue
		}
		if frag, ok := d.render(nodes); ok {
			return frag, true
		}
	}
	return "", false
}

// Body renders the whole <body> without boilerplate.
func (d *Document) Body() (string, bool) {
	body := d.Doc.Find("body").Nodes
	if len(body) == 0 {
		return "", false
	}
	return d.render(body[:1])
}

// outermost drops skipped nodes, nodes inside skipped subtrees, and nodes
// nested inside another candidate.
func (d *Document) outermost(nodes []*html.Node) []*html.Node {
	set := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if d.skipped(n) {
			continue
		}
		nested := false
		for p := n.Parent; p != nil; p = p.Parent {
			if set[p] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}

func (d *Document) skipped(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if d.skip[p] {
			return true
		}
	}
	return false
}

func (d *Document) render(nodes []*html.Node) (string, bool) {
	var buf bytes.Buffer
	var text strings.Builder
	if len(nodes) > 1 {
		buf.WriteString("<div>")
	}
	for _, n := range nodes {
		clone := d.clone(n)
		if clone == nil {
			continue
		}
		collectText(clone, &text)
		if err := html.Render(&buf, clone); err != nil {
			return "", false
		}
	}
	if len(nodes) > 1 {
		buf.WriteString("</div>")
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", false
	}
	return buf.String(), true
}

// clone deep-copies n without skipped descendants.
func (d *Document) clone(n *html.Node) *html.Node {
	if d.skip[n] || n.Type == html.CommentNode {
		return nil
	}
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if cc := d.clone(ch); cc != nil {
			c.AppendChild(cc)
		}
	}
	return c
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		collectText(ch, b)
	}
}
