package crawl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkOptions controls ExtractLinks.
type LinkOptions struct {
	// Selectors are tried in order; the first one that yields any link
	// after filtering wins. Empty means every <a href>.
	Selectors []string
	// AnyHost keeps links to other hosts.
	AnyHost bool
	// Exclude drops matching links; nil means DefaultExclude.
	Exclude *regexp.Regexp
	// Include, when set, keeps only links matching at least one pattern.
	Include []*regexp.Regexp
	// Limit caps the number of links returned; zero means no cap.
	Limit int
}

// ExtractLinks returns the article links of a listing page: resolved to
// absolute URLs, filtered, in document order. Each link is the href as
// resolved; duplicates are detected on the NormalizeURL form, and the first
// occurrence wins. The page's own URL is never returned.
func ExtractLinks(page, pageURL string, opts LinkOptions) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL: %w", err)
	}

	selectors := opts.Selectors
	if len(selectors) == 0 {
		selectors = []string{"a[href]"}
	}
	for _, sel := range selectors {
		if links := collect(doc.Find(sel), base, opts); len(links) > 0 {
			return links, nil
		}
	}
	return nil, nil
}

func collect(sel *goquery.Selection, base *url.URL, opts LinkOptions) []string {
	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}
	q := NewQueue()
	q.Add(base.String())
	var links []string

	// A selector may match the anchors themselves or their containers.
	anchors := sel.Filter("a[href]").AddSelection(sel.Find("a[href]"))
	anchors.Each(func(_ int, a *goquery.Selection) {
		if opts.Limit > 0 && len(links) >= opts.Limit {
			return
		}
		href, _ := a.Attr("href")
		// Exclusion also looks at the raw href, so "#comments" anchors go.
		if exclude.MatchString(href) {
			return
		}
		link := resolveURL(href, base)
		if link == "" || exclude.MatchString(link) || IsStaticAsset(link) {
			return
		}
		if !opts.AnyHost && !IsSameDomain(link, base.Host) {
			return
		}
		if len(opts.Include) > 0 && !matchesAny(link, opts.Include) {
			return
		}
		if q.Add(link) {
			links = append(links, link)
		}
	})
	return links
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// CountMatching counts the distinct links on page whose URL matches any
// of patterns. It drives the list-page heuristic.
func CountMatching(doc *goquery.Document, pageURL string, patterns []*regexp.Regexp) int {
	base, err := url.Parse(pageURL)
	if err != nil {
		return 0
	}
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		link := resolveURL(a.AttrOr("href", ""), base)
		if link != "" && matchesAny(link, patterns) {
			seen[NormalizeURL(link)] = true
		}
	})
	return len(seen)
}
