package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/normalize"
)

// frontMatter is the optional YAML header of a markdown file.
type frontMatter struct {
	Title  string   `yaml:"title"`
	Author string   `yaml:"author"`
	Date   string   `yaml:"date"`
	Tags   []string `yaml:"tags"`
}

var frontMatterBlock = regexp.MustCompile(`(?s)\A---[ \t]*\n(.*?)\n---[ \t]*(?:\n|\z)`)

// MarkdownExtractor reads a local or remote markdown file as one item.
type MarkdownExtractor struct {
	deps          *Deps
	titlePatterns []*regexp.Regexp
}

// NewMarkdownExtractor compiles the title patterns. Each pattern captures
// the title in group 1.
func NewMarkdownExtractor(d *Deps, cfg config.Markdown) (*MarkdownExtractor, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.TitlePatterns))
	for _, p := range cfg.TitlePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("title pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("title pattern %q: needs a capture group", p)
		}
		patterns = append(patterns, re)
	}
	return &MarkdownExtractor{deps: d, titlePatterns: patterns}, nil
}

// Name implements core.SourceExtractor.
func (e *MarkdownExtractor) Name() string { return "markdown" }

// Extract implements core.SourceExtractor.
func (e *MarkdownExtractor) Extract(ctx context.Context, source string) ([]core.ContentItem, error) {
	raw, err := e.load(ctx, source)
	if err != nil {
		return nil, err
	}

	meta, body := splitFrontMatter(strings.ReplaceAll(raw, "\r\n", "\n"))
	content, err := e.deps.checkLength(source, normalize.Tidy(body))
	if err != nil {
		e.deps.Tracker.Failed(err)
		return nil, nil
	}

	title := meta.Title
	if title == "" {
		title = e.title(content, source)
	}
	metadata := map[string]string{"format": "markdown"}
	if !isHTTP(source) {
		metadata["file_path"] = source
	}
	item := core.ContentItem{
		ID:            core.NewItemID(source, title),
		Title:         title,
		Content:       content,
		ContentType:   core.TypeDocumentation,
		SourceURL:     source,
		Author:        meta.Author,
		DatePublished: meta.Date,
		Tags:          mergeTags(meta.Tags, e.deps.Classifier.Tags(title, content)),
		Metadata:      metadata,
		UserID:        e.deps.UserID,
	}
	return e.deps.record(item, nil), nil
}

func (e *MarkdownExtractor) load(ctx context.Context, source string) (string, error) {
	if isHTTP(source) {
		header := http.Header{}
		header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.5")
		res, err := e.deps.Fetcher.FetchWith(ctx, source, header)
		if err != nil {
			return "", core.Fail(core.StageFetch, source, err)
		}
		return res.HTML, nil
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return "", core.Fail(core.StageSource, source, err)
	}
	return string(b), nil
}

// title applies the title patterns in order, then falls back to the file
// name without its extension.
func (e *MarkdownExtractor) title(content, source string) string {
	for _, re := range e.titlePatterns {
		if m := re.FindStringSubmatch(content); m != nil {
			if t := strings.TrimSpace(m[1]); t != "" {
				return t
			}
		}
	}
	name := filepath.Base(source)
	if isHTTP(source) {
		if u, err := url.Parse(source); err == nil {
			name = path.Base(u.Path)
		}
	}
	if stem := strings.TrimSuffix(name, path.Ext(name)); stem != "" && stem != "." && stem != "/" {
		return stem
	}
	return core.UntitledPlaceholder
}

// splitFrontMatter separates a leading YAML block from the body. A block
// that does not parse is left in the body.
func splitFrontMatter(s string) (frontMatter, string) {
	s = strings.TrimPrefix(s, "\ufeff")
	m := frontMatterBlock.FindStringSubmatchIndex(s)
	if m == nil {
		return frontMatter{}, s
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(s[m[2]:m[3]]), &fm); err != nil {
		return frontMatter{}, s
	}
	return fm, s[m[1]:]
}
