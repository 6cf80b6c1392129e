package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/extract"
	"github.com/gaurav-prasanna/kbpipe/crawl"
)

// List-page heuristic thresholds.
const (
	listArticleThreshold = 3
	listLinkThreshold    = 10
)

// GenericExtractor handles any web page: a listing is expanded into its
// articles, anything else is extracted as a single page.
type GenericExtractor struct {
	deps             *Deps
	articleSelector  string
	contentSelectors []string
	linkPatterns     []*regexp.Regexp
	maxItems         int
}

// NewGenericExtractor compiles the configured link patterns.
func NewGenericExtractor(d *Deps, cfg config.GenericBlog, lists config.ListPages) (*GenericExtractor, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.ListPageLinkPatterns))
	for _, p := range cfg.ListPageLinkPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("list page link pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &GenericExtractor{
		deps:             d,
		articleSelector:  strings.Join(cfg.ArticleSelectors, ", "),
		contentSelectors: cfg.ContentSelectors,
		linkPatterns:     patterns,
		maxItems:         lists.MaxItems,
	}, nil
}

// Name implements core.SourceExtractor.
func (e *GenericExtractor) Name() string { return "generic" }

// Extract implements core.SourceExtractor.
func (e *GenericExtractor) Extract(ctx context.Context, source string) ([]core.ContentItem, error) {
	if !isHTTP(source) {
		return nil, core.Fail(core.StageSource, source, fmt.Errorf("%w: not a web URL", ErrUnsupported))
	}
	res, err := e.deps.Fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, core.Fail(core.StageFetch, source, err)
	}
	doc, err := e.deps.Cleaner.Parse(res.HTML)
	if err != nil {
		return nil, core.Fail(core.StageParse, source, err)
	}
	opts := pageOptions{selectors: e.contentSelectors, fallbacks: true}

	if e.looksLikeList(doc, baseURL(res)) {
		links, err := crawl.ExtractLinks(res.HTML, baseURL(res), crawl.LinkOptions{
			Include: e.linkPatterns,
			Limit:   e.maxItems,
		})
		if err == nil && len(links) > 0 {
			e.deps.Log.Info().Str("url", source).Int("links", len(links)).Msg("treating page as a list")
			return e.deps.processLinks(ctx, links, opts), nil
		}
		e.deps.Log.Debug().Str("url", source).Msg("list heuristic matched but no links, extracting as a page")
	}

	item, err := e.deps.buildItem(res, doc, opts)
	return e.deps.record(item, err), nil
}

// looksLikeList reports whether a page is an index of articles rather than
// an article.
func (e *GenericExtractor) looksLikeList(doc *extract.Document, pageURL string) bool {
	if e.articleSelector != "" && doc.Doc.Find(e.articleSelector).Length() > listArticleThreshold {
		return true
	}
	return crawl.CountMatching(doc.Doc, pageURL, e.linkPatterns) > listLinkThreshold
}
