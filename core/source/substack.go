package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/crawl"
)

var (
	postPath = regexp.MustCompile(`/p/[^/?#]+`)

	substackArchiveSelectors = []string{".post-preview a.post-title", `a[href*="/p/"]`}
	substackMainAuthor       = []string{".header-metadata .name", ".pencraft-byline", ".publication-author", ".author-name"}
	substackPostAuthor       = []string{".post-header .profile-hover-card-target", ".byline-names", ".post-meta .author", ".pencraft-byline"}
)

// SubstackExtractor reads the posts of a Substack publication.
type SubstackExtractor struct {
	deps *Deps
	cfg  config.Substack
}

// NewSubstackExtractor creates a Substack extractor.
func NewSubstackExtractor(d *Deps, cfg config.Substack) *SubstackExtractor {
	return &SubstackExtractor{deps: d, cfg: cfg}
}

// Name implements core.SourceExtractor.
func (e *SubstackExtractor) Name() string { return "substack" }

// Extract implements core.SourceExtractor. A post URL yields that post; any
// other URL on the publication yields its posts by the main author.
func (e *SubstackExtractor) Extract(ctx context.Context, source string) ([]core.ContentItem, error) {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return nil, core.Fail(core.StageSource, source, fmt.Errorf("%w: %q", ErrUnsupported, source))
	}
	root := u.Scheme + "://" + u.Host
	opts := pageOptions{
		selectors:       e.cfg.ContentSelectors,
		authorSelectors: substackPostAuthor,
		fallbacks:       true,
		metadata:        map[string]string{"platform": "Substack", "publication": u.Hostname()},
	}

	if postPath.MatchString(u.Path) {
		return e.deps.processLinks(ctx, []string{source}, opts), nil
	}

	author := e.cfg.TargetAuthor
	if author == "" {
		author = e.mainAuthor(ctx, root)
	}
	if author != "" {
		e.deps.Log.Info().Str("publication", u.Hostname()).Str("author", author).Msg("filtering posts by author")
		opts.keep = func(it core.ContentItem) bool { return byAuthor(it.Author, author) }
	}

	links, err := e.postLinks(ctx, root)
	if err != nil {
		return nil, core.Fail(core.StageFetch, source, err)
	}
	if len(links) == 0 {
		return nil, core.Fail(core.StageParse, source, ErrNoLinks)
	}
	if e.cfg.MaxPosts > 0 && len(links) > e.cfg.MaxPosts {
		links = links[:e.cfg.MaxPosts]
	}
	e.deps.Log.Info().Str("publication", u.Hostname()).Int("posts", len(links)).Msg("found posts")
	return e.deps.processLinks(ctx, links, opts), nil
}

// mainAuthor reads the publication's author from its home page. Empty
// when it cannot be determined.
func (e *SubstackExtractor) mainAuthor(ctx context.Context, root string) string {
	res, err := e.deps.Fetcher.Fetch(ctx, root)
	if err != nil {
		e.deps.Log.Debug().Err(err).Str("url", root).Msg("no home page, skipping author filter")
		return ""
	}
	doc, err := e.deps.Cleaner.Parse(res.HTML)
	if err != nil {
		return ""
	}
	if a := doc.AuthorFrom(substackMainAuthor); a != "" {
		return a
	}
	return doc.Author()
}

// postLinks enumerates post URLs from the archive page, then the sitemap,
// then the RSS feed. The first source that lists any post wins.
func (e *SubstackExtractor) postLinks(ctx context.Context, root string) ([]string, error) {
	var firstErr error
	note := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	archive := root + "/archive"
	if res, err := e.deps.Fetcher.Fetch(ctx, archive); err != nil {
		note(err)
	} else {
		links, err := crawl.ExtractLinks(res.HTML, baseURL(res), crawl.LinkOptions{
			Selectors: substackArchiveSelectors,
			Include:   []*regexp.Regexp{postPath},
		})
		if err == nil && len(links) > 0 {
			return links, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	links, err := crawl.FetchSitemap(ctx, e.deps.Fetcher, root+"/sitemap.xml", postPath.MatchString)
	if err != nil {
		note(err)
	} else if len(links) > 0 {
		return links, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	links, err = e.feedLinks(ctx, root+"/feed")
	if err != nil {
		note(err)
	} else if len(links) > 0 {
		return links, nil
	}
	return nil, firstErr
}

func (e *SubstackExtractor) feedLinks(ctx context.Context, feedURL string) ([]string, error) {
	res, err := e.deps.Fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(res.HTML)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	q := crawl.NewQueue()
	for _, item := range feed.Items {
		if item.Link != "" && postPath.MatchString(item.Link) {
			q.Add(crawl.NormalizeURL(item.Link))
		}
	}
	return q.All(), nil
}

// byAuthor keeps posts without a byline and posts whose byline names the
// target.
func byAuthor(byline, target string) bool {
	if byline == "" {
		return true
	}
	return strings.Contains(strings.ToLower(byline), strings.ToLower(strings.TrimSpace(target)))
}
