package source

import (
	"context"
	"errors"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/crawl"
)

var errEnoughLinks = errors.New("link cap reached")

// ListPageExtractor walks a known site's listing pages and extracts every
// linked article.
type ListPageExtractor struct {
	deps     *Deps
	profile  SiteProfile
	maxPages int
	maxItems int
}

// NewListPageExtractor creates an extractor for one site profile.
func NewListPageExtractor(d *Deps, p SiteProfile, cfg config.ListPages) *ListPageExtractor {
	return &ListPageExtractor{deps: d, profile: p, maxPages: cfg.MaxPages, maxItems: cfg.MaxItems}
}

// Name implements core.SourceExtractor.
func (e *ListPageExtractor) Name() string { return e.profile.Name }

// Extract implements core.SourceExtractor. An empty source means the
// profile's own list URL.
func (e *ListPageExtractor) Extract(ctx context.Context, source string) ([]core.ContentItem, error) {
	if source == "" {
		source = e.profile.ListURL
	}
	links, err := e.collectLinks(ctx, source)
	if err != nil {
		return nil, core.Fail(core.StageFetch, source, err)
	}
	if len(links) == 0 {
		return nil, core.Fail(core.StageParse, source, ErrNoLinks)
	}
	e.deps.Log.Info().Str("source", e.profile.Name).Int("links", len(links)).Msg("found article links")

	return e.deps.processLinks(ctx, links, pageOptions{
		selectors:   e.profile.ContentSelectors,
		contentType: e.profile.ContentType,
		fallbacks:   true,
		metadata:    map[string]string{"source": e.profile.Name},
	}), nil
}

func (e *ListPageExtractor) collectLinks(ctx context.Context, start string) ([]string, error) {
	q := crawl.NewQueue()
	err := crawl.Paginate(ctx, e.deps.Fetcher, start, e.profile.NextSelectors, e.maxPages, func(res *core.FetchResult) error {
		links, err := crawl.ExtractLinks(res.HTML, baseURL(res), crawl.LinkOptions{Selectors: e.profile.linkSelectors()})
		if err != nil {
			return err
		}
		added := 0
		for _, link := range links {
			if e.maxItems > 0 && q.Len() >= e.maxItems {
				return errEnoughLinks
			}
			if q.Add(link) {
				added++
			}
		}
		e.deps.Log.Debug().Str("page", res.URL).Int("new_links", added).Msg("listing page")
		return nil
	})
	if err != nil && !errors.Is(err, errEnoughLinks) {
		return nil, err
	}
	return q.All(), nil
}
