package extract

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Article is the result of the readability fallback.
type Article struct {
	Title   string
	Byline  string
	Content string // HTML
	Text    string
}

// Readable runs the readability algorithm over a full page. It is the last
// resort when selector-based extraction yields nothing.
func Readable(page, pageURL string) (*Article, error) {
	page = strings.TrimSpace(page)
	if page == "" {
		return nil, ErrNoContent
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(page), u)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}
	out := &Article{
		Title:   strings.TrimSpace(article.Title),
		Byline:  strings.TrimSpace(article.Byline),
		Content: strings.TrimSpace(article.Content),
		Text:    strings.TrimSpace(article.TextContent),
	}
	if out.Text == "" {
		return nil, ErrNoContent
	}
	return out, nil
}
