// Package source holds the source extractors (site list pages, Substack,
// GitHub docs, PDFs, markdown files, generic pages) and the router that
// picks one for a given source string.
package source

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/extract"
	"github.com/gaurav-prasanna/kbpipe/core/fetch"
)

// Cleaner parses a page and marks its boilerplate. *extract.Cleaner is the
// implementation.
type Cleaner interface {
	Parse(page string) (*extract.Document, error)
	CommonSelectors() []string
}

// Converter turns a cleaned HTML fragment into markdown, resolving relative
// links against origin. *normalize.MarkdownNormalizer is the implementation.
type Converter interface {
	Convert(fragment, origin string) (string, error)
}

// Deps are the shared pipeline stages every extractor builds on.
type Deps struct {
	Fetcher    core.Fetcher
	Cleaner    Cleaner
	Normalizer Converter
	Classifier core.Classifier
	Tracker    *core.Tracker
	Log        zerolog.Logger

	// MinContent and MaxContent bound the markdown length in runes.
	// Zero disables the bound.
	MinContent int
	MaxContent int

	// UserID is stamped on every item.
	UserID string
}

// Downloader fetches large binary bodies (PDFs).
type Downloader interface {
	Download(ctx context.Context, url string) (*fetch.Body, error)
}

// ErrTooShort is wrapped by ShortContentError.
var ErrTooShort = errors.New("content too short")

// ShortContentError reports content under the minimum length.
type ShortContentError struct {
	Got, Min int
}

func (e *ShortContentError) Error() string {
	return fmt.Sprintf("%v: %d runes, minimum %d", ErrTooShort, e.Got, e.Min)
}

func (e *ShortContentError) Unwrap() error { return ErrTooShort }

// checkLength enforces the content bounds. Content over the maximum is
// truncated on a rune boundary and logged; content under the minimum is
// an error.
func (d *Deps) checkLength(url, content string) (string, error) {
	n := utf8.RuneCountInString(content)
	if d.MinContent > 0 && n < d.MinContent {
		return "", core.Fail(core.StageParse, url, &ShortContentError{Got: n, Min: d.MinContent})
	}
	if d.MaxContent > 0 && n > d.MaxContent {
		d.Log.Warn().Str("url", url).Int("runes", n).Int("max", d.MaxContent).Msg("truncating content")
		content = truncateRunes(content, d.MaxContent)
	}
	return content, nil
}

func truncateRunes(s string, max int) string {
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos]
		}
		i++
	}
	return s
}
