// Package crawl discovers the item URLs behind a listing: link extraction
// with site-specific selectors, pagination, and sitemaps. It keeps URL
// discovery separate from the per-item pipeline.
package crawl

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultExclude matches links that never point at an article.
var DefaultExclude = regexp.MustCompile(`(#comment|/tag/|/tags/|/category/|/author/|/page/|/feed/)`)

// staticExtensions are file extensions to skip during crawling.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".xml": true, ".rss": true,
}

// Host returns the lowercased host of rawURL without a leading "www.".
func Host(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}

// IsSameDomain checks if the given URL belongs to the specified domain.
// "www." prefixes are ignored on both sides.
func IsSameDomain(rawURL string, domain string) bool {
	h := Host(rawURL)
	return h != "" && h == strings.TrimPrefix(strings.ToLower(domain), "www.")
}

// IsStaticAsset checks if a URL points to a static asset (image, CSS, JS, etc.).
func IsStaticAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return staticExtensions[ext]
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = ""
	}
	return parsed.String()
}

// resolveURL resolves a potentially relative URL against a base. Non-web
// schemes and in-page anchors resolve to "".
func resolveURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "tel:") || strings.HasPrefix(href, "#") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
