package source

import (
	"net/url"
	"strings"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
)

// genericLinkSelectors are tried after a profile's own link selectors, and
// by the generic extractor when it meets a list page.
var genericLinkSelectors = []string{
	`a[href*="article"]`,
	`a[href*="post"]`,
	`a[href*="blog"]`,
	".article-title a",
	".post-title a",
	"article a",
	".card a, .guide a",
}

// SiteProfile describes a known listing site.
type SiteProfile struct {
	Name        string
	Description string
	// ListURL is the listing processed when the source names the profile.
	ListURL string
	// Match reports whether a URL is this site's listing page.
	Match func(u *url.URL) bool
	// LinkSelectors are tried in order before genericLinkSelectors.
	LinkSelectors    []string
	ContentSelectors []string
	// NextSelectors find pagination links; nil means the crawl defaults.
	NextSelectors []string
	// ContentType is forced on every item when set.
	ContentType core.ContentType
}

func (p SiteProfile) linkSelectors() []string {
	return append(append([]string(nil), p.LinkSelectors...), genericLinkSelectors...)
}

// DefaultProfiles returns the built-in site profiles. List URLs come from
// the configured sources so a config file can move them.
func DefaultProfiles(sources map[string]config.SourceConfig) []SiteProfile {
	listURL := func(name string) string {
		if src, ok := sources[name]; ok && src.URL != "" {
			return src.URL
		}
		return config.DefaultSources()[name].URL
	}
	return []SiteProfile{
		{
			Name:        config.SourceInterviewingBlog,
			Description: "interviewing.io blog posts",
			ListURL:     listURL(config.SourceInterviewingBlog),
			Match:       pathIs("interviewing.io", "/blog"),
			LinkSelectors: []string{
				".post-title a, .post a, article a, .blog-post a",
				`a[href^="/blog/"]`,
			},
			ContentSelectors: []string{".blog-post-content", ".post-content", ".prose", "article"},
		},
		{
			Name:        config.SourceInterviewingCompanies,
			Description: "interviewing.io company interview guides",
			ListURL:     listURL(config.SourceInterviewingCompanies),
			Match:       pathIs("interviewing.io", "/topics"),
			LinkSelectors: []string{
				".company-card a, .topics-card a",
				`a[href*="/guides/hiring-process/"]`,
			},
			ContentSelectors: []string{".guide-content", ".prose", "article", "main"},
			ContentType:      core.TypeGuide,
		},
		{
			Name:        config.SourceInterviewingGuides,
			Description: "interviewing.io technical interview guides",
			ListURL:     listURL(config.SourceInterviewingGuides),
			Match:       pathIs("interviewing.io", "/learn"),
			LinkSelectors: []string{
				".guide-card a, .card a",
				`a[href*="/guides/"]`,
			},
			ContentSelectors: []string{".guide-content", ".prose", "article", "main"},
			ContentType:      core.TypeGuide,
		},
		{
			Name:        config.SourceNilMamanoDSA,
			Description: "nilmamano.com data structures and algorithms posts",
			ListURL:     listURL(config.SourceNilMamanoDSA),
			Match: func(u *url.URL) bool {
				return hostMatches(u, "nilmamano.com") && strings.HasPrefix(strings.TrimSuffix(u.Path, "/"), "/blog/category")
			},
			LinkSelectors:    []string{"article a, .post a, .entry a, .blog-entry a"},
			ContentSelectors: []string{".entry-content", ".post-content", "article"},
		},
		{
			Name:             "quill_blog",
			Description:      "quill.co blog posts",
			ListURL:          "https://quill.co/blog",
			Match:            pathIs("quill.co", "/blog"),
			LinkSelectors:    []string{".post-card a, .blog-post a, article a"},
			ContentSelectors: []string{".post-content", "article", "main"},
		},
	}
}

// ProfileByName finds a profile by its source name.
func ProfileByName(profiles []SiteProfile, name string) (SiteProfile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return SiteProfile{}, false
}

// pathIs matches the listing page itself (any fragment or query), not the
// posts under it.
func pathIs(host, path string) func(u *url.URL) bool {
	return func(u *url.URL) bool {
		p := strings.TrimSuffix(u.Path, "/")
		return hostMatches(u, host) && (p == path || strings.HasPrefix(p, path+"/page/"))
	}
}

func hostMatches(u *url.URL, host string) bool {
	h := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return h == host
}
