package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/classify"
	"github.com/gaurav-prasanna/kbpipe/core/extract"
	"github.com/gaurav-prasanna/kbpipe/core/fetch"
	"github.com/gaurav-prasanna/kbpipe/core/gdrive"
	"github.com/gaurav-prasanna/kbpipe/core/normalize"
	"github.com/gaurav-prasanna/kbpipe/core/output"
	"github.com/gaurav-prasanna/kbpipe/core/pdf"
	"github.com/gaurav-prasanna/kbpipe/core/render"
	"github.com/gaurav-prasanna/kbpipe/core/source"
)

type fakeExtractor struct {
	name  string
	calls []string
	fn    func(target string) ([]core.ContentItem, error)
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(_ context.Context, target string) ([]core.ContentItem, error) {
	f.calls = append(f.calls, target)
	return f.fn(target)
}

func item(u string) core.ContentItem {
	return core.ContentItem{Title: "T " + u, Content: "body", ContentType: core.TypeBook, SourceURL: u}
}

func newRunner(routes []source.Route, fallback source.Route) *Runner {
	return New(
		source.NewRouter(routes, fallback),
		core.NewTracker(zerolog.Nop(), 5, true),
		output.NewCollector(zerolog.Nop()),
		zerolog.Nop(),
	)
}

func TestRunUnreachableHostWritesValidEmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	cfg := config.Default()
	tracker := core.NewTracker(zerolog.Nop(), 5, true)
	deps := &source.Deps{
		Fetcher:    fetch.New(fetch.Options{Timeout: 2 * time.Second, Logger: zerolog.Nop()}),
		Cleaner:    extract.New(extract.Options{}),
		Normalizer: normalize.New(),
		Classifier: classify.New(),
		Tracker:    tracker,
		Log:        zerolog.Nop(),
		MinContent: cfg.ContentFiltering.MinContentLength,
	}
	router, err := source.NewDefaultRouter(source.Options{Deps: deps, Config: cfg})
	require.NoError(t, err)
	r := New(router, tracker, output.NewCollector(zerolog.Nop()), zerolog.Nop())

	summary := r.Run(context.Background(), []Source{{Target: dead + "/blog/post"}})
	assert.Equal(t, 0, summary.Items)
	assert.Greater(t, summary.Errors, 0)
	assert.Equal(t, 1, summary.ByStage[core.StageFetch])
	require.Len(t, summary.Sources, 1)
	assert.Equal(t, "generic", summary.Sources[0].Name)

	w, err := output.New(t.TempDir())
	require.NoError(t, err)
	path, err := r.Write(w, "knowledge.json", render.NewEnvelopeRenderer(), core.RunMeta{TeamID: "team-1"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, json.Valid(data))
	var doc struct {
		TeamID string            `json:"team_id"`
		Items  []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "team-1", doc.TeamID)
	assert.NotNil(t, doc.Items)
	assert.Empty(t, doc.Items)
}

func TestRunCollectsInOrderAndNamesSources(t *testing.T) {
	ok := &fakeExtractor{name: "ok", fn: func(target string) ([]core.ContentItem, error) {
		return []core.ContentItem{item(target + "/1"), item(target + "/2")}, nil
	}}
	broken := &fakeExtractor{name: "broken", fn: func(target string) ([]core.ContentItem, error) {
		return nil, core.Fail(core.StageFetch, target, errors.New("connection refused"))
	}}
	r := newRunner([]source.Route{
		{Name: "broken", Match: func(s string) bool { return strings.Contains(s, "broken") }, Extractor: broken},
	}, source.Route{Name: "ok", Match: func(string) bool { return true }, Extractor: ok})

	s := r.Run(context.Background(), []Source{
		{Name: "first", Target: "https://a.example"},
		{Target: "https://broken.example"},
		{Target: "https://c.example"},
	})

	assert.Equal(t, 4, s.Items)
	assert.Equal(t, 1, s.Errors)
	require.Len(t, s.Sources, 3)
	assert.Equal(t, []string{"first", "broken", "ok"}, []string{s.Sources[0].Name, s.Sources[1].Name, s.Sources[2].Name})

	items := r.Items()
	require.Len(t, items, 4)
	assert.Equal(t, "https://a.example/1", items[0].SourceURL)
	assert.Equal(t, "https://c.example/2", items[3].SourceURL)
}

func TestRunForcedRoute(t *testing.T) {
	list := &fakeExtractor{name: "list", fn: func(string) ([]core.ContentItem, error) { return nil, nil }}
	fallback := &fakeExtractor{name: "generic", fn: func(string) ([]core.ContentItem, error) { return nil, nil }}
	r := newRunner([]source.Route{
		{Name: "list", Match: func(string) bool { return false }, Extractor: list},
	}, source.Route{Name: "generic", Match: func(string) bool { return true }, Extractor: fallback})

	require.NoError(t, r.RunOne(context.Background(), Source{Target: "https://x.example", Route: "list"}))
	assert.Equal(t, []string{"https://x.example"}, list.calls)
	assert.Empty(t, fallback.calls)

	assert.Error(t, r.RunOne(context.Background(), Source{Target: "x", Route: "missing"}))
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ext := &fakeExtractor{name: "generic", fn: func(target string) ([]core.ContentItem, error) { return []core.ContentItem{item(target)}, nil }}
	r := newRunner(nil, source.Route{Name: "generic", Match: func(string) bool { return true }, Extractor: ext})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := r.Run(ctx, []Source{{Target: "https://a.example"}, {Target: "https://b.example"}})
	assert.Equal(t, 0, s.Items)
	assert.Empty(t, ext.calls)
}

func bookRunner(driveErr error) (*Runner, *fakeExtractor, *fakeExtractor) {
	return bookRunnerWithLocal(driveErr, nil)
}

func bookRunnerWithLocal(driveErr, localErr error) (*Runner, *fakeExtractor, *fakeExtractor) {
	drive := &fakeExtractor{name: "gdrive", fn: func(target string) ([]core.ContentItem, error) {
		if driveErr != nil {
			return nil, core.Fail(core.StageResolve, target, driveErr)
		}
		return []core.ContentItem{item(target)}, nil
	}}
	local := &fakeExtractor{name: "pdf", fn: func(target string) ([]core.ContentItem, error) {
		if localErr != nil {
			return nil, core.Fail(core.StagePDF, target, localErr)
		}
		return []core.ContentItem{item(target)}, nil
	}}
	r := newRunner([]source.Route{
		{Name: "pdf", Match: func(s string) bool { return strings.HasSuffix(s, ".pdf") }, Extractor: local},
		{Name: "gdrive", Match: func(s string) bool { return strings.Contains(s, "drive") }, Extractor: drive},
	}, source.Route{Name: "generic", Match: func(string) bool { return true }, Extractor: local})
	return r, drive, local
}

func TestBookFallsBackToLocalCopy(t *testing.T) {
	r, drive, local := bookRunner(fmt.Errorf("%w: no file ID", gdrive.ErrNotFound))

	require.NoError(t, r.Book(context.Background(), "https://drive.google.com/file/d/x", "book.pdf"))
	assert.Len(t, drive.calls, 1)
	assert.Equal(t, []string{"book.pdf"}, local.calls)
	require.Len(t, r.Items(), 1)
	assert.Equal(t, "book.pdf", r.Items()[0].SourceURL)
}

func TestBookWithoutFallbackIsFatal(t *testing.T) {
	r, _, local := bookRunner(fmt.Errorf("%w: no file ID", gdrive.ErrNotFound))

	err := r.Book(context.Background(), "https://drive.google.com/file/d/x", "")
	require.ErrorIs(t, err, gdrive.ErrNotFound)
	assert.Empty(t, local.calls)
	assert.Equal(t, 1, r.Summary().ByStage[core.StageResolve])
}

func TestBookPrefersDrive(t *testing.T) {
	r, drive, local := bookRunner(nil)

	require.NoError(t, r.Book(context.Background(), "https://drive.google.com/file/d/x", "book.pdf"))
	assert.Len(t, drive.calls, 1)
	assert.Empty(t, local.calls)
}

func TestBookNothingConfigured(t *testing.T) {
	r, _, _ := bookRunner(nil)
	assert.ErrorIs(t, r.Book(context.Background(), "", ""), ErrNoBook)
}

func TestBookScannedLocalCopyIsNotFatal(t *testing.T) {
	r, _, local := bookRunnerWithLocal(nil, pdf.ErrNoText)

	require.NoError(t, r.Book(context.Background(), "", "scanned.pdf"))
	assert.Equal(t, []string{"scanned.pdf"}, local.calls)
	assert.Empty(t, r.Items())
	s := r.Summary()
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.ByStage[core.StagePDF])
}

func TestBookMissingLocalCopyIsFatal(t *testing.T) {
	r, _, _ := bookRunnerWithLocal(fmt.Errorf("%w: no file ID", gdrive.ErrNotFound), fmt.Errorf("open pdf: %w", fs.ErrNotExist))

	err := r.Book(context.Background(), "https://drive.google.com/file/d/x", "missing.pdf")
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 2, r.Summary().Errors)
}

func TestBookDriveParseFailureDoesNotFallBack(t *testing.T) {
	r, drive, local := bookRunner(pdf.ErrNoText)

	require.NoError(t, r.Book(context.Background(), "https://drive.google.com/file/d/x", "book.pdf"))
	assert.Len(t, drive.calls, 1)
	assert.Empty(t, local.calls)
}

func TestUnresolved(t *testing.T) {
	assert.True(t, Unresolved(core.Fail(core.StageResolve, "x", fmt.Errorf("%w: folder", gdrive.ErrNotFound))))
	assert.True(t, Unresolved(core.Fail(core.StagePDF, "x", fmt.Errorf("open pdf: %w", fs.ErrNotExist))))
	assert.True(t, Unresolved(source.ErrUnsupported))
	assert.False(t, Unresolved(core.Fail(core.StagePDF, "x", pdf.ErrNoText)))
	assert.False(t, Unresolved(nil))
}

func TestSummaryReportsDroppedItems(t *testing.T) {
	ext := &fakeExtractor{name: "generic", fn: func(target string) ([]core.ContentItem, error) {
		return []core.ContentItem{item(target), {Title: "orphan", Content: "body", ContentType: core.TypeBlog}}, nil
	}}
	r := newRunner(nil, source.Route{Name: "generic", Match: func(string) bool { return true }, Extractor: ext})

	s := r.Run(context.Background(), []Source{{Target: "https://a.example"}})
	assert.Equal(t, 1, s.Dropped)
	assert.Len(t, r.Items(), 1)
}
