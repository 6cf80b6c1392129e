package source

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/gdrive"
	"github.com/gaurav-prasanna/kbpipe/core/pdf"
)

// PDFExtractor reads a book from a local file, a PDF URL or a Drive link
// and emits one item per chapter.
type PDFExtractor struct {
	deps     *Deps
	cfg      config.PDF
	patterns []*regexp.Regexp
	dl       Downloader
	resolver *gdrive.Resolver
}

// NewPDFExtractor compiles the chapter patterns. dl downloads remote PDFs;
// resolver handles Drive links and may be nil when Drive is not used.
func NewPDFExtractor(d *Deps, cfg config.PDF, dl Downloader, resolver *gdrive.Resolver) (*PDFExtractor, error) {
	patterns, err := pdf.CompilePatterns(cfg.ChapterPatterns)
	if err != nil {
		return nil, err
	}
	return &PDFExtractor{deps: d, cfg: cfg, patterns: patterns, dl: dl, resolver: resolver}, nil
}

// Name implements core.SourceExtractor.
func (e *PDFExtractor) Name() string { return "pdf" }

// Extract implements core.SourceExtractor.
func (e *PDFExtractor) Extract(ctx context.Context, source string) ([]core.ContentItem, error) {
	switch {
	case gdrive.IsDriveLink(source):
		return e.fromDrive(ctx, source)

	case isHTTP(source):
		if e.dl == nil {
			return nil, core.Fail(core.StageFetch, source, fmt.Errorf("%w: no downloader", ErrUnsupported))
		}
		body, err := e.dl.Download(ctx, source)
		if err != nil {
			return nil, core.Fail(core.StageFetch, source, err)
		}
		doc, err := pdf.ExtractBytes(body.Data)
		if err != nil {
			return nil, core.Fail(core.StagePDF, source, err)
		}
		return e.fromDocument(source, doc, titleFromURL(source)), nil

	default:
		doc, err := pdf.ExtractText(source)
		if err != nil {
			return nil, core.Fail(core.StagePDF, source, err)
		}
		return e.fromDocument(source, doc, pdf.TitleFromPath(source)), nil
	}
}

func (e *PDFExtractor) fromDrive(ctx context.Context, link string) ([]core.ContentItem, error) {
	if e.resolver == nil {
		return nil, core.Fail(core.StageResolve, link, fmt.Errorf("%w: Drive links are not enabled", ErrUnsupported))
	}
	paths, err := e.resolver.Resolve(ctx, link)
	if err != nil {
		return nil, core.Fail(core.StageResolve, link, err)
	}
	var items []core.ContentItem
	for _, p := range paths {
		if ctx.Err() != nil || e.deps.Tracker.Exhausted() {
			break
		}
		doc, err := pdf.ExtractText(p)
		if err != nil {
			e.deps.Tracker.Failed(core.Fail(core.StagePDF, link, err))
			continue
		}
		items = append(items, e.fromDocument(link, doc, "Google Drive book")...)
	}
	return items, nil
}

// fromDocument splits a book into chapter items, or returns the whole
// document as one item when no chapter headers are found.
func (e *PDFExtractor) fromDocument(source string, doc *pdf.Document, fallbackTitle string) []core.ContentItem {
	bookTitle := doc.Title
	if bookTitle == "" {
		bookTitle = fallbackTitle
	}
	text := doc.Text()

	var chapters []pdf.Chapter
	if e.cfg.DetectChapters() {
		chapters = pdf.SplitChapters(text, e.patterns, e.cfg.MaxChapters)
	}
	if len(chapters) == 0 {
		e.deps.Log.Info().Str("source", source).Msg("no chapter headers, emitting whole document")
		item, err := e.item(source, bookTitle, doc.Author, pdf.CleanText(text), map[string]string{
			"book_title": bookTitle,
			"pages":      strconv.Itoa(len(doc.Pages)),
		})
		return e.deps.record(item, err)
	}

	e.deps.Log.Info().Str("source", source).Int("chapters", len(chapters)).Msg("split book into chapters")
	var items []core.ContentItem
	for _, ch := range chapters {
		if e.deps.Tracker.Exhausted() {
			break
		}
		item, err := e.item(source, ch.Heading(), doc.Author, pdf.CleanText(ch.Body), map[string]string{
			"book_title":     bookTitle,
			"chapter_number": strconv.Itoa(ch.Number),
		})
		items = append(items, e.deps.record(item, err)...)
	}
	return items
}

func (e *PDFExtractor) item(source, title, author, content string, metadata map[string]string) (core.ContentItem, error) {
	content, err := e.deps.checkLength(source, content)
	if err != nil {
		return core.ContentItem{}, core.Fail(core.StagePDF, source, fmt.Errorf("%s: %w", title, err))
	}
	metadata["source_type"] = "pdf"
	return core.ContentItem{
		ID:          core.NewItemID(source, title),
		Title:       title,
		Content:     content,
		ContentType: core.TypeBook,
		SourceURL:   source,
		Author:      author,
		Tags:        mergeTags(e.deps.Classifier.Tags(title, content)),
		Metadata:    metadata,
		UserID:      e.deps.UserID,
	}, nil
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return pdf.TitleFromPath(rawURL)
	}
	name, _ := url.PathUnescape(path.Base(u.Path))
	if name == "" || name == "/" || name == "." {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return pdf.TitleFromPath(name)
}
