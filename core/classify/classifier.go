// Package classify assigns a content type from the fixed taxonomy.
// URL patterns decide first; otherwise keyword hits in the title and
// text pick the type. Classification never fails: anything undecided is
// "other".
package classify

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/gaurav-prasanna/kbpipe/core"
)

// urlRule maps a URL predicate onto a content type.
type urlRule struct {
	contentType core.ContentType
	match       func(host, path, full string) bool
}

// urlRules are checked in order; most specific first.
var urlRules = []urlRule{
	{core.TypeLinkedInPost, func(host, path, _ string) bool {
		return hostIs(host, "linkedin.com") && (strings.HasPrefix(path, "/posts") || strings.HasPrefix(path, "/pulse"))
	}},
	{core.TypeRedditComment, func(host, _, _ string) bool {
		return hostIs(host, "reddit.com") || hostIs(host, "redd.it")
	}},
	{core.TypePodcastTranscript, func(host, path, _ string) bool {
		return strings.Contains(host, "podcast") || strings.Contains(path, "podcast") || strings.Contains(path, "/episodes/")
	}},
	{core.TypeBook, func(_, path, full string) bool {
		return strings.HasSuffix(path, ".pdf") || (!strings.Contains(full, "://") && strings.HasSuffix(full, ".pdf"))
	}},
	{core.TypeDocumentation, func(host, path, _ string) bool {
		return hostIs(host, "github.com") || hostIs(host, "api.github.com") ||
			strings.HasPrefix(host, "docs.") || strings.HasPrefix(path, "/docs/")
	}},
	{core.TypeGuide, func(_, path, full string) bool {
		return strings.Contains(path, "/guides/") || strings.Contains(path, "/guide/") ||
			strings.HasPrefix(path, "/learn") || strings.HasPrefix(path, "/topics") ||
			strings.Contains(full, "#interview-guides") || strings.Contains(full, "#companies")
	}},
	{core.TypeBlog, func(host, path, _ string) bool {
		return strings.Contains(host, "blog") || strings.Contains(path, "blog") ||
			strings.Contains(path, "/post/") || strings.Contains(path, "/posts/") ||
			strings.Contains(path, "/article/") || strings.Contains(path, "/articles/") ||
			strings.HasSuffix(host, "substack.com") || strings.HasPrefix(path, "/p/")
	}},
}

// keywordRule is a group of keywords voting for one content type.
type keywordRule struct {
	contentType core.ContentType
	keywords    map[string]string // surface form -> stem
}

var keywordRules = []keywordRule{
	{core.TypePodcastTranscript, stems("podcast", "episode", "transcript")},
	{core.TypeBook, stems("chapter", "book")},
	{core.TypeCallTranscript, stems("call", "meeting", "interview")},
}

// stems maps each keyword and its plural to the keyword.
func stems(words ...string) map[string]string {
	m := make(map[string]string, 2*len(words))
	for _, w := range words {
		m[w] = w
		m[w+"s"] = w
	}
	return m
}

// Classifier is pure and safe for concurrent use.
type Classifier struct {
	matcher  *ahocorasick.Matcher
	patterns []string // padded surface forms, indexed as the matcher reports
	stems    []string
	rules    []int // pattern index -> keywordRules index
}

// New builds the keyword automaton.
func New() *Classifier {
	c := &Classifier{}
	for ri, r := range keywordRules {
		forms := make([]string, 0, len(r.keywords))
		for form := range r.keywords {
			forms = append(forms, form)
		}
		sort.Strings(forms)
		for _, form := range forms {
			// Padding with spaces restricts matches to whole words.
			c.patterns = append(c.patterns, " "+form+" ")
			c.stems = append(c.stems, r.keywords[form])
			c.rules = append(c.rules, ri)
		}
	}
	c.matcher = ahocorasick.NewStringMatcher(c.patterns)
	return c
}

// Classify returns the content type for an item.
func (c *Classifier) Classify(sourceURL, title, text string) core.ContentType {
	if t, ok := ByURL(sourceURL); ok {
		return t
	}

	hits := c.hits(title, text)
	best, bestCount := -1, 0
	for ri := range keywordRules {
		if n := len(hits[ri]); n > bestCount {
			best, bestCount = ri, n
		}
	}
	if best < 0 {
		return core.TypeOther
	}
	return keywordRules[best].contentType
}

// Tags returns the sorted keyword stems found in title and text.
func (c *Classifier) Tags(title, text string) []string {
	var tags []string
	for _, stems := range c.hits(title, text) {
		for s := range stems {
			tags = append(tags, s)
		}
	}
	sort.Strings(tags)
	return tags
}

// hits returns the unique stems matched per keyword rule.
func (c *Classifier) hits(title, text string) map[int]map[string]bool {
	out := make(map[int]map[string]bool)
	for _, i := range c.matcher.Match([]byte(normalizeText(title + " " + text))) {
		if i < 0 || i >= len(c.patterns) {
			continue
		}
		ri := c.rules[i]
		if out[ri] == nil {
			out[ri] = make(map[string]bool)
		}
		out[ri][c.stems[i]] = true
	}
	return out
}

// ByURL applies the URL rules only.
func ByURL(sourceURL string) (core.ContentType, bool) {
	full := strings.ToLower(strings.TrimSpace(sourceURL))
	if full == "" {
		return "", false
	}
	var host, path string
	if u, err := url.Parse(full); err == nil {
		host = strings.TrimPrefix(u.Hostname(), "www.")
		path = u.Path
	}
	for _, r := range urlRules {
		if r.match(host, path, full) {
			return r.contentType, true
		}
	}
	return "", false
}

func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// normalizeText lowercases s, turns everything but letters and digits
// into single spaces, and pads the result with spaces.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}
