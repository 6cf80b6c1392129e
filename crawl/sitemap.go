package crawl

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/gaurav-prasanna/kbpipe/core"
)

// maxSitemapDepth bounds how deep sitemap indexes are followed.
const maxSitemapDepth = 2

// sitemapURL holds a URL from a sitemap.xml.
type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapDoc covers both <urlset> and <sitemapindex> roots.
type sitemapDoc struct {
	URLs     []sitemapURL `xml:"url"`
	Sitemaps []sitemapURL `xml:"sitemap"`
}

// FetchSitemap returns the page URLs listed in a sitemap, following
// sitemap indexes. keep filters page URLs; nil keeps everything.
func FetchSitemap(ctx context.Context, f core.Fetcher, sitemapURL string, keep func(string) bool) ([]string, error) {
	q := NewQueue()
	if err := walkSitemap(ctx, f, sitemapURL, keep, q, 0); err != nil && q.Len() == 0 {
		return nil, err
	}
	return q.All(), nil
}

func walkSitemap(ctx context.Context, f core.Fetcher, sitemapURL string, keep func(string) bool, q *Queue, depth int) error {
	res, err := f.Fetch(ctx, sitemapURL)
	if err != nil {
		return fmt.Errorf("fetching sitemap %s: %w", sitemapURL, err)
	}
	var doc sitemapDoc
	if err := xml.Unmarshal([]byte(res.HTML), &doc); err != nil {
		return fmt.Errorf("parsing sitemap %s: %w", sitemapURL, err)
	}

	for _, u := range doc.URLs {
		if u.Loc == "" || IsStaticAsset(u.Loc) {
			continue
		}
		if keep == nil || keep(u.Loc) {
			q.Add(NormalizeURL(u.Loc))
		}
	}

	if depth >= maxSitemapDepth {
		return nil
	}
	var firstErr error
	for _, sm := range doc.Sitemaps {
		if sm.Loc == "" {
			continue
		}
		if err := walkSitemap(ctx, f, sm.Loc, keep, q, depth+1); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
