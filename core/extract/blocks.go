package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockTags are containers considered by LongestBlock.
const blockTags = "div, section, td"

// LongestBlock renders the container with the most non-link text, for
// pages whose markup has no recognisable content class. Link-heavy
// containers (menus, tag clouds) are penalised.
func (d *Document) LongestBlock() (string, bool) {
	var best *html.Node
	bestScore := 0.0
	d.Doc.Find(blockTags).Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		if d.skipped(n) {
			return
		}
		text := strings.TrimSpace(s.Text())
		total := utf8.RuneCountInString(text)
		if total == 0 {
			return
		}
		linkText := 0
		s.Find("a").Each(func(_ int, a *goquery.Selection) {
			linkText += utf8.RuneCountInString(strings.TrimSpace(a.Text()))
		})
		density := float64(linkText) / float64(total)
		score := float64(total) * (1 - density)
		// Prefer the innermost container of equal score.
		if score > bestScore || (score == bestScore && best != nil && isAncestor(best, n)) {
			best, bestScore = n, score
		}
	})
	if best == nil {
		return "", false
	}
	return d.render([]*html.Node{best})
}

func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}
