// Package config holds the kbpipe configuration schema, its defaults, and
// the loader for JSON or YAML configuration files. Every field is optional;
// a missing field keeps its default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent when no user_agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 kbpipe/1.0"

// Config is the full configuration. It is passed by value into the
// constructors that need a part of it.
type Config struct {
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFile   string `yaml:"log_file" json:"log_file"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	TeamID    string `yaml:"team_id" json:"team_id"`
	UserID    string `yaml:"user_id" json:"user_id"`

	Sources map[string]SourceConfig `yaml:"sources" json:"sources"`
	Book    BookConfig              `yaml:"book" json:"book"`

	Extractors       Extractors       `yaml:"extractors" json:"extractors"`
	Timeouts         Timeouts         `yaml:"timeout_settings" json:"timeout_settings"`
	ContentFiltering ContentFiltering `yaml:"content_filtering" json:"content_filtering"`
	ErrorHandling    ErrorHandling    `yaml:"error_handling" json:"error_handling"`
	RateLimiting     RateLimiting     `yaml:"rate_limiting" json:"rate_limiting"`
	Robots           Robots           `yaml:"robots" json:"robots"`
}

// SourceConfig toggles one of the known sources processed by --all.
type SourceConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	URL     string `yaml:"url" json:"url"`
}

// IsEnabled defaults to true when enabled is not set.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// BookConfig locates the book PDF for --all runs.
type BookConfig struct {
	GDrive    string `yaml:"gdrive" json:"gdrive"`
	LocalPath string `yaml:"local_path" json:"local_path"`
}

// Extractors groups per-extractor settings.
type Extractors struct {
	GenericBlog GenericBlog `yaml:"generic_blog" json:"generic_blog"`
	ListPages   ListPages   `yaml:"list_pages" json:"list_pages"`
	PDF         PDF         `yaml:"pdf" json:"pdf"`
	Substack    Substack    `yaml:"substack" json:"substack"`
	GitHub      GitHub      `yaml:"github" json:"github"`
	Markdown    Markdown    `yaml:"markdown" json:"markdown"`
}

// GenericBlog configures the fallback extractor.
type GenericBlog struct {
	ArticleSelectors     []string `yaml:"article_selectors" json:"article_selectors"`
	ContentSelectors     []string `yaml:"content_selectors" json:"content_selectors"`
	ExcludeSelectors     []string `yaml:"exclude_selectors" json:"exclude_selectors"`
	ListPageLinkPatterns []string `yaml:"list_page_link_patterns" json:"list_page_link_patterns"`
}

// ListPages configures the site-specific list-page extractors.
type ListPages struct {
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	MaxItems int `yaml:"max_items" json:"max_items"`
}

// PDF configures chapter segmentation.
type PDF struct {
	ChapterPatterns         []string `yaml:"chapter_patterns" json:"chapter_patterns"`
	MaxChapters             int      `yaml:"max_chapters" json:"max_chapters"`
	ChapterDetectionEnabled *bool    `yaml:"chapter_detection_enabled,omitempty" json:"chapter_detection_enabled,omitempty"`
}

// DetectChapters defaults to true.
func (p PDF) DetectChapters() bool {
	return p.ChapterDetectionEnabled == nil || *p.ChapterDetectionEnabled
}

// Substack configures the Substack extractor.
type Substack struct {
	TargetAuthor     string   `yaml:"target_author" json:"target_author"`
	ContentSelectors []string `yaml:"content_selectors" json:"content_selectors"`
	MaxPosts         int      `yaml:"max_posts" json:"max_posts"`
}

// GitHub configures the GitHub docs extractor.
type GitHub struct {
	AccessToken    string   `yaml:"access_token" json:"access_token"`
	APIBaseURL     string   `yaml:"api_base_url" json:"api_base_url"`
	MaxFiles       int      `yaml:"max_files" json:"max_files"`
	FileExtensions []string `yaml:"file_extensions" json:"file_extensions"`
	DocDirs        []string `yaml:"doc_dirs" json:"doc_dirs"`
}

// Markdown configures the markdown file extractor.
type Markdown struct {
	TitlePatterns []string `yaml:"title_patterns" json:"title_patterns"`
}

// Timeouts are expressed in seconds.
type Timeouts struct {
	RequestTimeout  int `yaml:"request_timeout" json:"request_timeout"`
	DownloadTimeout int `yaml:"download_timeout" json:"download_timeout"`
	MaxRetries      int `yaml:"max_retries" json:"max_retries"`
}

// Request returns the per-request timeout.
func (t Timeouts) Request() time.Duration { return time.Duration(t.RequestTimeout) * time.Second }

// Download returns the timeout for large downloads (PDFs, Drive files).
func (t Timeouts) Download() time.Duration { return time.Duration(t.DownloadTimeout) * time.Second }

// ContentFiltering bounds accepted markdown length, in runes.
type ContentFiltering struct {
	MinContentLength int `yaml:"min_content_length" json:"min_content_length"`
	MaxContentLength int `yaml:"max_content_length" json:"max_content_length"`
}

// ErrorHandling configures the per-source error budget.
type ErrorHandling struct {
	ContinueOnError    *bool `yaml:"continue_on_error,omitempty" json:"continue_on_error,omitempty"`
	MaxErrorsPerSource int   `yaml:"max_errors_per_source" json:"max_errors_per_source"`
}

// Continue defaults to true.
func (e ErrorHandling) Continue() bool {
	return e.ContinueOnError == nil || *e.ContinueOnError
}

// RateLimiting configures politeness between requests.
type RateLimiting struct {
	RequestsPerMinute    int       `yaml:"requests_per_minute" json:"requests_per_minute"`
	DelayBetweenRequests []float64 `yaml:"delay_between_requests" json:"delay_between_requests"`
}

// DelayRange returns the randomized delay bounds.
func (r RateLimiting) DelayRange() (time.Duration, time.Duration) {
	if len(r.DelayBetweenRequests) != 2 {
		return 0, 0
	}
	return seconds(r.DelayBetweenRequests[0]), seconds(r.DelayBetweenRequests[1])
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// Robots configures robots.txt handling.
type Robots struct {
	Respect *bool `yaml:"respect,omitempty" json:"respect,omitempty"`
}

// IsRespected defaults to true.
func (r Robots) IsRespected() bool {
	return r.Respect == nil || *r.Respect
}

// Known source names used by --all.
const (
	SourceInterviewingBlog      = "interviewing_io_blog"
	SourceInterviewingCompanies = "interviewing_io_company_guides"
	SourceInterviewingGuides    = "interviewing_io_interview_guides"
	SourceNilMamanoDSA          = "nilmamano_dsa"
)

// DefaultSources is the hard-coded list processed by --all.
func DefaultSources() map[string]SourceConfig {
	return map[string]SourceConfig{
		SourceInterviewingBlog:      {URL: "https://interviewing.io/blog"},
		SourceInterviewingCompanies: {URL: "https://interviewing.io/topics#companies"},
		SourceInterviewingGuides:    {URL: "https://interviewing.io/learn#interview-guides"},
		SourceNilMamanoDSA:          {URL: "https://nilmamano.com/blog/category/dsa"},
	}
}

// DefaultChapterPattern matches "Chapter N: Title" headers at line start.
// Group 1 is the chapter number, group 2 the optional title.
const DefaultChapterPattern = `(?m)^[ \t]*(?:Chapter|CHAPTER)[ \t]+(\d+|[IVXLC]+)\b[ \t]*[:.\-–—]?[ \t]*(.*)$`

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		OutputDir: "",
		LogLevel:  "info",
		LogFile:   "extraction.log",
		UserAgent: DefaultUserAgent,
		Sources:   DefaultSources(),
		Extractors: Extractors{
			GenericBlog: GenericBlog{
				ArticleSelectors: []string{"article", ".post", ".entry", ".blog-post"},
				ContentSelectors: []string{
					"article", ".post-content", ".entry-content", ".article-content",
					".blog-post", "main", ".content", ".main-content", "#content", "#main",
				},
				ExcludeSelectors: []string{".related-posts", ".social-share", ".author-bio"},
				ListPageLinkPatterns: []string{
					`/(article|post|blog)/`,
					`/\d{4}/\d{2}/`,
				},
			},
			ListPages: ListPages{MaxPages: 50},
			PDF: PDF{
				ChapterPatterns: []string{DefaultChapterPattern},
				MaxChapters:     8,
			},
			Substack: Substack{
				ContentSelectors: []string{".available-content", ".body.markup", ".single-post", ".post-content", "article"},
			},
			GitHub: GitHub{
				APIBaseURL:     "https://api.github.com",
				MaxFiles:       50,
				FileExtensions: []string{".md", ".markdown", ".txt", ".rst"},
				DocDirs:        []string{"docs", "documentation", "doc", "wiki"},
			},
			Markdown: Markdown{
				TitlePatterns: []string{`(?m)^# (.+)$`, `(?m)^(.+)\n=+[ \t]*$`},
			},
		},
		Timeouts: Timeouts{
			RequestTimeout:  30,
			DownloadTimeout: 300,
			MaxRetries:      3,
		},
		ContentFiltering: ContentFiltering{
			MinContentLength: 100,
			MaxContentLength: 1000000,
		},
		ErrorHandling: ErrorHandling{MaxErrorsPerSource: 5},
		RateLimiting: RateLimiting{
			RequestsPerMinute:    30,
			DelayBetweenRequests: []float64{1, 3},
		},
	}
}

// Load reads a JSON or YAML file over the defaults. Missing or malformed
// files are errors; callers treat them as fatal.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			if yerr := yaml.Unmarshal(b, &cfg); yerr != nil {
				return cfg, fmt.Errorf("parse config %s: %v (json) / %v (yaml)", path, err, yerr)
			}
		}
	}
	cfg.fillSourceURLs()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fillSourceURLs restores default URLs for known sources that a file only
// toggled.
func (c *Config) fillSourceURLs() {
	defaults := DefaultSources()
	if c.Sources == nil {
		c.Sources = defaults
		return
	}
	for name, src := range c.Sources {
		if src.URL == "" {
			if d, ok := defaults[name]; ok {
				src.URL = d.URL
				c.Sources[name] = src
			}
		}
	}
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate reports every problem found, joined into one error.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
			add("log_level %q: %v", c.LogLevel, err)
		}
	}
	for name, src := range c.Sources {
		u, err := url.Parse(src.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			add("sources.%s.url %q is not an absolute URL", name, src.URL)
		}
	}

	t := c.Timeouts
	if t.RequestTimeout < 0 || t.DownloadTimeout < 0 || t.MaxRetries < 0 {
		add("timeout_settings values must not be negative")
	}

	f := c.ContentFiltering
	if f.MinContentLength < 0 {
		add("content_filtering.min_content_length must not be negative")
	}
	if f.MaxContentLength > 0 && f.MaxContentLength < f.MinContentLength {
		add("content_filtering.max_content_length (%d) is below min_content_length (%d)", f.MaxContentLength, f.MinContentLength)
	}

	if c.ErrorHandling.MaxErrorsPerSource < 0 {
		add("error_handling.max_errors_per_source must not be negative")
	}

	r := c.RateLimiting
	if r.RequestsPerMinute < 0 {
		add("rate_limiting.requests_per_minute must not be negative")
	}
	if d := r.DelayBetweenRequests; len(d) > 0 {
		if len(d) != 2 {
			add("rate_limiting.delay_between_requests must be [min, max]")
		} else if d[0] < 0 || d[1] < d[0] {
			add("rate_limiting.delay_between_requests [%g, %g] is not a valid range", d[0], d[1])
		}
	}

	if c.Extractors.PDF.MaxChapters < 0 {
		add("extractors.pdf.max_chapters must not be negative")
	}
	checkPatterns := func(field string, patterns []string) {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				add("%s: %q: %v", field, p, err)
			}
		}
	}
	checkPatterns("extractors.pdf.chapter_patterns", c.Extractors.PDF.ChapterPatterns)
	checkPatterns("extractors.generic_blog.list_page_link_patterns", c.Extractors.GenericBlog.ListPageLinkPatterns)
	checkPatterns("extractors.markdown.title_patterns", c.Extractors.Markdown.TitlePatterns)

	if gh := c.Extractors.GitHub.APIBaseURL; gh != "" {
		if u, err := url.Parse(gh); err != nil || u.Host == "" {
			add("extractors.github.api_base_url %q is not an absolute URL", gh)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(problems, "\n  - "))
}

// EnabledSources returns the enabled known sources in a stable order.
func (c Config) EnabledSources() []NamedSource {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return sourceRank(names[i]) < sourceRank(names[j]) ||
			(sourceRank(names[i]) == sourceRank(names[j]) && names[i] < names[j])
	})

	out := make([]NamedSource, 0, len(names))
	for _, name := range names {
		if src := c.Sources[name]; src.IsEnabled() {
			out = append(out, NamedSource{Name: name, URL: src.URL})
		}
	}
	return out
}

// NamedSource is an enabled source entry.
type NamedSource struct {
	Name string
	URL  string
}

// sourceRank keeps the built-in sources in their original processing order
// ahead of user-added ones.
func sourceRank(name string) int {
	switch name {
	case SourceInterviewingBlog:
		return 0
	case SourceInterviewingCompanies:
		return 1
	case SourceInterviewingGuides:
		return 2
	case SourceNilMamanoDSA:
		return 3
	default:
		return 10
	}
}

// ResolveOutputPath joins a relative output path onto output_dir.
func (c Config) ResolveOutputPath(path string) string {
	if c.OutputDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.OutputDir, path)
}
