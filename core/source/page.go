package source

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/extract"
)

// ErrUnsupported is returned for sources an extractor cannot read.
var ErrUnsupported = errors.New("unsupported source")

// ErrNoLinks is returned when a listing yields no article links.
var ErrNoLinks = errors.New("no article links found")

// pageOptions tune how one HTML page becomes an item.
type pageOptions struct {
	// selectors are tried before the cleaner's common selectors.
	selectors []string
	// contentType is forced when set; otherwise the classifier decides.
	contentType core.ContentType
	// fallbacks enables the longest-block and readability steps after the
	// selectors; without it the cascade ends at <body>.
	fallbacks bool
	// authorSelectors are tried before the generic byline lookup.
	authorSelectors []string
	metadata        map[string]string
	// keep drops built items that fail a filter (Substack author check).
	keep func(core.ContentItem) bool
}

// processLinks turns each link into an item, in order. Failures go to the
// tracker; processing stops when ctx is done or the source's error budget
// is exhausted.
func (d *Deps) processLinks(ctx context.Context, links []string, opts pageOptions) []core.ContentItem {
	var items []core.ContentItem
	for i, link := range links {
		if ctx.Err() != nil {
			d.Log.Warn().Int("remaining", len(links)-i).Msg("cancelled, stopping source")
			break
		}
		if d.Tracker.Exhausted() {
			break
		}
		item, err := d.processPage(ctx, link, opts)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			d.Tracker.Failed(err)
			continue
		}
		if opts.keep != nil && !opts.keep(item) {
			d.Log.Debug().Str("url", link).Str("author", item.Author).Msg("skipping post by another author")
			continue
		}
		d.Tracker.Succeeded()
		d.Log.Info().Str("url", link).Str("title", item.Title).Msg("extracted")
		items = append(items, item)
	}
	return items
}

func (d *Deps) processPage(ctx context.Context, pageURL string, opts pageOptions) (core.ContentItem, error) {
	res, err := d.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return core.ContentItem{}, core.Fail(core.StageFetch, pageURL, err)
	}
	return d.buildItem(res, nil, opts)
}

// buildItem cleans, converts and classifies a fetched page. doc may be nil,
// in which case the page is parsed here.
func (d *Deps) buildItem(res *core.FetchResult, doc *extract.Document, opts pageOptions) (core.ContentItem, error) {
	pageURL := res.URL
	if doc == nil {
		var err error
		if doc, err = d.Cleaner.Parse(res.HTML); err != nil {
			return core.ContentItem{}, core.Fail(core.StageParse, pageURL, err)
		}
	}

	title := doc.Title()
	fragment, ok := doc.Select(opts.selectors)
	if !ok {
		fragment, ok = doc.Select(d.Cleaner.CommonSelectors())
	}
	if !ok && opts.fallbacks {
		fragment, ok = doc.LongestBlock()
		if !ok {
			if article, err := extract.Readable(res.HTML, baseURL(res)); err == nil {
				fragment, ok = article.Content, true
				if title == "" {
					title = article.Title
				}
			}
		}
	}
	if !ok {
		fragment, ok = doc.Body()
	}
	if !ok {
		return core.ContentItem{}, core.Fail(core.StageParse, pageURL, extract.ErrNoContent)
	}

	markdown, err := d.Normalizer.Convert(fragment, origin(baseURL(res)))
	if err != nil {
		return core.ContentItem{}, core.Fail(core.StageConvert, pageURL, err)
	}
	if markdown, err = d.checkLength(pageURL, markdown); err != nil {
		return core.ContentItem{}, err
	}

	if title == "" {
		title = core.UntitledPlaceholder
	}
	author := ""
	if len(opts.authorSelectors) > 0 {
		author = doc.AuthorFrom(opts.authorSelectors)
	}
	if author == "" {
		author = doc.Author()
	}

	contentType := opts.contentType
	if contentType == "" {
		contentType = d.Classifier.Classify(pageURL, title, markdown)
	}

	metadata := map[string]string{"domain": hostOf(pageURL)}
	if site := doc.SiteName(); site != "" {
		metadata["site_name"] = site
	}
	if res.FinalURL != "" && res.FinalURL != pageURL {
		metadata["final_url"] = res.FinalURL
	}
	for k, v := range opts.metadata {
		metadata[k] = v
	}

	return core.ContentItem{
		ID:            core.NewItemID(pageURL, title),
		Title:         title,
		Content:       markdown,
		ContentType:   contentType,
		SourceURL:     pageURL,
		Author:        author,
		DatePublished: doc.Published(),
		Tags:          mergeTags(doc.Tags(), d.Classifier.Tags(title, markdown)),
		Metadata:      metadata,
		UserID:        d.UserID,
	}, nil
}

// record reports the outcome of a single item to the tracker and returns
// the items to emit.
func (d *Deps) record(item core.ContentItem, err error) []core.ContentItem {
	if err != nil {
		d.Tracker.Failed(err)
		return nil
	}
	d.Tracker.Succeeded()
	d.Log.Info().Str("url", item.SourceURL).Str("title", item.Title).Msg("extracted")
	return []core.ContentItem{item}
}

func baseURL(res *core.FetchResult) string {
	if res.FinalURL != "" {
		return res.FinalURL
	}
	return res.URL
}

// origin is the scheme and host of rawURL, used to resolve relative links.
func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func isHTTP(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func mergeTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
