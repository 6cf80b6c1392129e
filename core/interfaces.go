// Package core defines the pipeline types and interfaces for kbpipe:
// items, the error taxonomy, and the fetch, classify, extract and render
// stages that the command layer wires together.
package core

import (
	"context"
	"net/http"
)

// FetchResult holds the raw body and response metadata from a fetch.
type FetchResult struct {
	URL         string // requested URL
	FinalURL    string // URL after redirects
	StatusCode  int
	ContentType string
	HTML        string
}

// Fetcher retrieves a document over the network.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
	// FetchWith is Fetch with extra request headers (API tokens, Accept).
	FetchWith(ctx context.Context, url string, header http.Header) (*FetchResult, error)
}

// Classifier assigns a taxonomy tag from the source URL and page text.
type Classifier interface {
	Classify(sourceURL, title, text string) ContentType
	Tags(title, text string) []string
}

// SourceExtractor is a strategy for one source family (blog list, Substack,
// PDF, ...). Extract returns the items it could build; per-item failures are
// reported to the run's Tracker, and only source-level failures are returned.
type SourceExtractor interface {
	Name() string
	Extract(ctx context.Context, source string) ([]ContentItem, error)
}

// RunMeta carries run-level pass-through values into renderers.
type RunMeta struct {
	TeamID string
	UserID string
}

// Renderer serializes the collected items of a run into one document.
type Renderer interface {
	Render(items []ContentItem, meta RunMeta) ([]byte, error)
	Extension() string
}
