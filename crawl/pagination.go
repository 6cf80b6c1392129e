package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/kbpipe/core"
)

// DefaultNextSelectors find a "next page" link on listing pages.
var DefaultNextSelectors = []string{
	`link[rel="next"]`,
	`a[rel="next"]`,
	`.pagination a.next`,
	`a.next`,
	`.next a`,
	`a.next-page`,
	`a:contains("Older")`,
	`a:contains("Next")`,
}

// NextPage returns the absolute URL of the next listing page, if any.
func NextPage(page, pageURL string, selectors []string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", false
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	if len(selectors) == 0 {
		selectors = DefaultNextSelectors
	}
	for _, sel := range selectors {
		href, ok := doc.Find(sel).First().Attr("href")
		if !ok {
			continue
		}
		if next := resolveURL(href, base); next != "" && NormalizeURL(next) != NormalizeURL(pageURL) {
			return next, true
		}
	}
	return "", false
}

// Paginate fetches start and then each "next" page, calling visit for
// every page. It stops when no next link is found, a page repeats,
// maxPages pages have been visited (zero means no cap), visit returns an
// error, or ctx is done. A fetch error on the first page is returned;
// later fetch errors end pagination quietly, since earlier pages are
// already usable.
func Paginate(ctx context.Context, f core.Fetcher, start string, nextSelectors []string, maxPages int, visit func(*core.FetchResult) error) error {
	seen := NewQueue()
	current := start
	for pages := 0; maxPages <= 0 || pages < maxPages; pages++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !seen.Add(current) {
			return nil
		}
		res, err := f.Fetch(ctx, current)
		if err != nil {
			if pages == 0 {
				return fmt.Errorf("fetching listing %s: %w", current, err)
			}
			return nil
		}
		if err := visit(res); err != nil {
			return err
		}
		pageURL := res.FinalURL
		if pageURL == "" {
			pageURL = current
		}
		next, ok := NextPage(res.HTML, pageURL, nextSelectors)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}
