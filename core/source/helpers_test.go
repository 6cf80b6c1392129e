package source

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/classify"
	"github.com/gaurav-prasanna/kbpipe/core/extract"
	"github.com/gaurav-prasanna/kbpipe/core/fetch"
	"github.com/gaurav-prasanna/kbpipe/core/normalize"
)

// fakeFetcher serves canned bodies by URL. Fragments are ignored, as an
// HTTP client would. Unknown URLs are 404s.
type fakeFetcher struct {
	pages   map[string]string
	calls   []string
	headers []http.Header
}

func (f *fakeFetcher) Fetch(ctx context.Context, u string) (*core.FetchResult, error) {
	return f.FetchWith(ctx, u, nil)
}

func (f *fakeFetcher) FetchWith(_ context.Context, u string, h http.Header) (*core.FetchResult, error) {
	f.calls = append(f.calls, u)
	f.headers = append(f.headers, h)
	key, _, _ := strings.Cut(u, "#")
	body, ok := f.pages[key]
	if !ok {
		return nil, &fetch.StatusError{URL: u, StatusCode: http.StatusNotFound}
	}
	return &core.FetchResult{URL: u, FinalURL: u, StatusCode: http.StatusOK, HTML: body}, nil
}

func (f *fakeFetcher) called(u string) bool {
	for _, c := range f.calls {
		if c == u {
			return true
		}
	}
	return false
}

func newTestDeps(t *testing.T, pages map[string]string) (*Deps, *fakeFetcher) {
	t.Helper()
	f := &fakeFetcher{pages: pages}
	tracker := core.NewTracker(zerolog.Nop(), 5, true)
	tracker.BeginSource(t.Name())
	cfg := config.Default()
	return &Deps{
		Fetcher:    f,
		Cleaner:    extract.New(extract.Options{ExcludeSelectors: cfg.Extractors.GenericBlog.ExcludeSelectors}),
		Normalizer: normalize.New(),
		Classifier: classify.New(),
		Tracker:    tracker,
		Log:        zerolog.Nop(),
		MinContent: cfg.ContentFiltering.MinContentLength,
		MaxContent: cfg.ContentFiltering.MaxContentLength,
		UserID:     "user-1",
	}, f
}

// articlePage renders a page with boilerplate around one article.
func articlePage(title, body string) string {
	return `<html><head><title>` + title + ` | Example</title></head><body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<article><h1>` + title + `</h1><p>` + body + `</p></article>
<footer>Copyright Example</footer>
</body></html>`
}

// longText is comfortably over the default minimum content length.
var longText = strings.Repeat("Practice explaining your approach before writing code. ", 6)
