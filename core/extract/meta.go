package extract

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	titleSelectors  = []string{".post-title", ".entry-title", ".article-title", "h1.title", "h1"}
	authorSelectors = []string{".author", ".byline", `[rel="author"]`, `[itemprop="author"]`, ".author-name", ".post-author"}
	dateSelectors   = []string{"time[datetime]", ".date", ".published", ".post-date", ".entry-date", `[itemprop="datePublished"]`}
	authorMeta      = []string{`meta[name="author"]`, `meta[property="og:author"]`, `meta[property="article:author"]`}
	dateMeta        = []string{
		`meta[property="article:published_time"]`, `meta[name="publish_date"]`,
		`meta[name="date"]`, `meta[name="pubdate"]`, `meta[itemprop="datePublished"]`,
	}

	titleSeparators = regexp.MustCompile(`\s+[|\-–—]\s+`)
	byPrefix        = regexp.MustCompile(`(?i)^by\s+`)
)

// Title returns the page title: a heading, then <title> without its site
// suffix, then og:title. Empty when none is present.
func (d *Document) Title() string {
	for _, sel := range titleSelectors {
		if t := squash(d.Doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	if t := squash(d.Doc.Find("title").First().Text()); t != "" {
		if parts := titleSeparators.Split(t, 2); parts[0] != "" {
			return strings.TrimSpace(parts[0])
		}
		return t
	}
	return d.meta(`meta[property="og:title"]`)
}

// Author returns the byline from meta tags, markup, or JSON-LD.
func (d *Document) Author() string {
	for _, sel := range authorMeta {
		if a := d.meta(sel); a != "" && !strings.HasPrefix(a, "http") {
			return a
		}
	}
	return d.AuthorFrom(authorSelectors)
}

// AuthorFrom returns the first non-empty text matched by selectors, then
// the JSON-LD author.
func (d *Document) AuthorFrom(selectors []string) string {
	for _, sel := range selectors {
		if a := squash(d.Doc.Find(sel).First().Text()); a != "" {
			return byPrefix.ReplaceAllString(a, "")
		}
	}
	return d.jsonLD().author
}

// Published returns the publish date as found in the page.
func (d *Document) Published() string {
	for _, sel := range dateMeta {
		if v := d.meta(sel); v != "" {
			return v
		}
	}
	for _, sel := range dateSelectors {
		s := d.Doc.Find(sel).First()
		if v, ok := s.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v := squash(s.Text()); v != "" {
			return v
		}
	}
	return d.jsonLD().published
}

// Tags returns keywords from meta tags, lowercased and sorted.
func (d *Document) Tags() []string {
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			seen[s] = true
		}
	}
	for _, kw := range strings.Split(d.meta(`meta[name="keywords"]`), ",") {
		add(kw)
	}
	d.Doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// SiteName returns og:site_name.
func (d *Document) SiteName() string {
	return d.meta(`meta[property="og:site_name"]`)
}

func (d *Document) meta(sel string) string {
	return strings.TrimSpace(d.Doc.Find(sel).First().AttrOr("content", ""))
}

type ldInfo struct {
	author    string
	published string
}

// jsonLD reads the first author and datePublished found in JSON-LD blocks,
// including @graph arrays.
func (d *Document) jsonLD() ldInfo {
	var info ldInfo
	d.Doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		walkLD(v, &info)
		return info.author == "" || info.published == ""
	})
	return info
}

func walkLD(v any, info *ldInfo) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			walkLD(e, info)
		}
	case map[string]any:
		if info.author == "" {
			info.author = ldName(t["author"])
		}
		if info.published == "" {
			if s, ok := t["datePublished"].(string); ok {
				info.published = strings.TrimSpace(s)
			}
		}
		if g, ok := t["@graph"]; ok {
			walkLD(g, info)
		}
	}
}

func ldName(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if s, ok := t["name"].(string); ok {
			return strings.TrimSpace(s)
		}
	case []any:
		for _, e := range t {
			if n := ldName(e); n != "" {
				return n
			}
		}
	}
	return ""
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
