// Package ingest drives a run: each source goes through its extractor, the
// items land in one collector, and the collector is rendered once at the end.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/gdrive"
	"github.com/gaurav-prasanna/kbpipe/core/output"
	"github.com/gaurav-prasanna/kbpipe/core/source"
)

// ErrNoBook is returned by Book when neither a link nor a local path is set.
var ErrNoBook = errors.New("no book link or local path configured")

// Source is one unit of work.
type Source struct {
	// Name labels the source in logs and the summary; empty means the
	// route name.
	Name string
	// Target is the URL or path handed to the extractor.
	Target string
	// Route forces a route by name; empty means the router decides.
	Route string
}

// Runner processes sources sequentially.
type Runner struct {
	router    *source.Router
	tracker   *core.Tracker
	collector *output.Collector
	log       zerolog.Logger
}

// New creates a Runner.
func New(router *source.Router, tracker *core.Tracker, collector *output.Collector, log zerolog.Logger) *Runner {
	return &Runner{router: router, tracker: tracker, collector: collector, log: log}
}

// Run processes sources in order and returns the run summary. Source
// failures are recorded, never returned; the run stops between sources
// once ctx is done.
func (r *Runner) Run(ctx context.Context, sources []Source) core.Summary {
	for i, src := range sources {
		if ctx.Err() != nil {
			r.log.Warn().Int("skipped", len(sources)-i).Msg("interrupted, skipping remaining sources")
			break
		}
		_ = r.RunOne(ctx, src)
	}
	return r.Summary()
}

// RunOne processes a single source and returns its source-level error,
// which is also recorded in the summary.
func (r *Runner) RunOne(ctx context.Context, src Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	route := r.router.Select(src.Target)
	if src.Route != "" {
		rt, ok := r.router.ByName(src.Route)
		if !ok {
			return fmt.Errorf("unknown route %q", src.Route)
		}
		route = rt
	}
	name := src.Name
	if name == "" {
		name = route.Name
	}

	r.tracker.BeginSource(name)
	r.log.Info().Str("source", name).Str("extractor", route.Name).Str("target", src.Target).Msg("processing source")
	start := time.Now()

	items, err := route.Extractor.Extract(ctx, src.Target)
	kept := r.collector.Add(items...)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		r.log.Warn().Str("source", name).Msg("source interrupted")
	default:
		r.tracker.Failed(err)
	}
	r.log.Info().
		Str("source", name).
		Int("items", kept).
		Dur("elapsed", time.Since(start)).
		Msg("source done")
	return err
}

// Book processes the book PDF behind a Drive link. When the link is empty
// or cannot be resolved, the local copy is used instead. The returned error
// means no copy could be found; a copy that resolves but yields no items
// (a scanned PDF, a parse failure) is a counted error, not a returned one.
func (r *Runner) Book(ctx context.Context, link, localPath string) error {
	if link == "" && localPath == "" {
		return ErrNoBook
	}
	if link != "" {
		err := r.RunOne(ctx, Source{Name: "book", Target: link, Route: "gdrive"})
		if !Unresolved(err) || ctx.Err() != nil {
			return nil
		}
		if localPath == "" {
			return err
		}
		r.log.Warn().Err(err).Str("path", localPath).Msg("Drive download failed, using local copy")
	}
	if err := r.RunOne(ctx, Source{Name: "book", Target: localPath, Route: "pdf"}); Unresolved(err) {
		return err
	}
	return nil
}

// Unresolved reports whether err means a book source could not be located
// at all: a Drive link with no downloadable PDF, Drive support missing, or
// a local file that does not exist.
func Unresolved(err error) bool {
	return errors.Is(err, gdrive.ErrNotFound) ||
		errors.Is(err, source.ErrUnsupported) ||
		errors.Is(err, fs.ErrNotExist)
}

// Items returns the collected items.
func (r *Runner) Items() []core.ContentItem { return r.collector.Items() }

// Summary returns the run summary so far.
func (r *Runner) Summary() core.Summary {
	s := r.tracker.Summary()
	s.Dropped = r.collector.Dropped()
	return s
}

// Write renders the collected items and writes them to path. An empty run
// still produces a valid document.
func (r *Runner) Write(w *output.Writer, path string, renderer core.Renderer, meta core.RunMeta) (string, error) {
	data, err := renderer.Render(r.collector.Items(), meta)
	if err != nil {
		return "", fmt.Errorf("rendering output: %w", err)
	}
	written, err := w.Write(path, data)
	if err != nil {
		return "", err
	}
	r.log.Info().Str("path", written).Int("items", r.collector.Len()).Msg("output written")
	return written, nil
}
