package source

import (
	"net/url"
	"path"
	"strings"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/gdrive"
)

// Route binds a source matcher to an extractor.
type Route struct {
	Name        string
	Description string
	Match       func(source string) bool
	Extractor   core.SourceExtractor
}

// Router picks the extractor for a source string. Routes are tried in
// order; the fallback handles anything no route claims.
type Router struct {
	routes   []Route
	fallback Route
}

// NewRouter creates a Router.
func NewRouter(routes []Route, fallback Route) *Router {
	return &Router{routes: routes, fallback: fallback}
}

// Select returns the first route matching source, or the fallback.
func (r *Router) Select(source string) Route {
	source = strings.TrimSpace(source)
	for _, rt := range r.routes {
		if rt.Match(source) {
			return rt
		}
	}
	return r.fallback
}

// ByName finds a route by name, including the fallback.
func (r *Router) ByName(name string) (Route, bool) {
	for _, rt := range r.Routes() {
		if rt.Name == name {
			return rt, true
		}
	}
	return Route{}, false
}

// Routes returns the routing table in priority order, fallback last.
func (r *Router) Routes() []Route {
	out := append([]Route(nil), r.routes...)
	return append(out, r.fallback)
}

// Options are the collaborators of the default routing table.
type Options struct {
	Deps   *Deps
	Config config.Config
	// APIFetcher serves GitHub API calls; nil means Deps.Fetcher.
	APIFetcher core.Fetcher
	// Downloader fetches remote PDFs.
	Downloader Downloader
	// Resolver handles Drive links; nil leaves Drive links unsupported.
	Resolver *gdrive.Resolver
}

// NewDefaultRouter builds the standard routing table, most specific first:
// pdf, gdrive, markdown, github, substack, site profiles, then generic.
func NewDefaultRouter(o Options) (*Router, error) {
	cfg := o.Config
	pdfx, err := NewPDFExtractor(o.Deps, cfg.Extractors.PDF, o.Downloader, o.Resolver)
	if err != nil {
		return nil, err
	}
	mdx, err := NewMarkdownExtractor(o.Deps, cfg.Extractors.Markdown)
	if err != nil {
		return nil, err
	}
	generic, err := NewGenericExtractor(o.Deps, cfg.Extractors.GenericBlog, cfg.Extractors.ListPages)
	if err != nil {
		return nil, err
	}

	routes := []Route{
		{Name: "pdf", Description: "PDF books from a local path or URL, split into chapters", Match: isPDFSource, Extractor: pdfx},
		{Name: "gdrive", Description: "PDFs behind Google Drive file or folder links", Match: gdrive.IsDriveLink, Extractor: pdfx},
		{Name: "markdown", Description: "Local or remote markdown files", Match: isMarkdownSource, Extractor: mdx},
		{Name: "github", Description: "GitHub repository README and docs", Match: isGitHubSource, Extractor: NewGitHubExtractor(o.Deps, o.APIFetcher, cfg.Extractors.GitHub)},
		{Name: "substack", Description: "Substack publications and posts", Match: isSubstackSource, Extractor: NewSubstackExtractor(o.Deps, cfg.Extractors.Substack)},
	}
	for _, p := range DefaultProfiles(cfg.Sources) {
		routes = append(routes, Route{
			Name:        p.Name,
			Description: p.Description,
			Match:       matchURL(p.Match),
			Extractor:   NewListPageExtractor(o.Deps, p, cfg.Extractors.ListPages),
		})
	}
	fallback := Route{Name: "generic", Description: "Any web page or article index", Match: isHTTP, Extractor: generic}
	return NewRouter(routes, fallback), nil
}

func matchURL(m func(*url.URL) bool) func(string) bool {
	return func(source string) bool {
		u, err := url.Parse(source)
		return err == nil && u.Host != "" && m(u)
	}
}

// sourceExt is the lower-cased extension of a path or URL path.
func sourceExt(source string) string {
	if isHTTP(source) {
		u, _ := url.Parse(source)
		return strings.ToLower(path.Ext(u.Path))
	}
	return strings.ToLower(path.Ext(source))
}

func isPDFSource(source string) bool {
	return sourceExt(source) == ".pdf"
}

// isMarkdownSource leaves github.com pages to the GitHub extractor;
// raw.githubusercontent.com files are plain markdown.
func isMarkdownSource(source string) bool {
	if isGitHubSource(source) {
		return false
	}
	ext := sourceExt(source)
	return ext == ".md" || ext == ".markdown"
}

func isGitHubSource(source string) bool {
	_, ok := parseRepoURL(source)
	return ok
}

func isSubstackSource(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".substack.com")
}
