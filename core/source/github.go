package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gaurav-prasanna/kbpipe/config"
	"github.com/gaurav-prasanna/kbpipe/core"
	"github.com/gaurav-prasanna/kbpipe/core/fetch"
	"github.com/gaurav-prasanna/kbpipe/core/normalize"
)

// repoRef is a parsed GitHub URL.
type repoRef struct {
	Owner, Repo string
	Ref         string // branch or tag from tree/blob URLs
	Path        string // directory or file inside the repository
	Blob        bool   // Path is a single file
}

func (r repoRef) fullName() string { return r.Owner + "/" + r.Repo }

// parseRepoURL accepts github.com/<owner>/<repo>, optionally followed by
// /tree/<ref>/<dir> or /blob/<ref>/<file>.
func parseRepoURL(source string) (repoRef, bool) {
	u, err := url.Parse(source)
	if err != nil || !hostMatches(u, "github.com") {
		return repoRef{}, false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return repoRef{}, false
	}
	ref := repoRef{Owner: parts[0], Repo: strings.TrimSuffix(parts[1], ".git")}
	if len(parts) >= 4 && (parts[2] == "tree" || parts[2] == "blob") {
		ref.Ref = parts[3]
		ref.Path = strings.Join(parts[4:], "/")
		ref.Blob = parts[2] == "blob" && ref.Path != ""
	}
	return ref, true
}

// ghContent is an entry of the GitHub contents API.
type ghContent struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	HTMLURL  string `json:"html_url"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// GitHubExtractor reads a repository's README and documentation files
// through the GitHub REST API.
type GitHubExtractor struct {
	deps *Deps
	api  core.Fetcher
	cfg  config.GitHub
	exts map[string]bool
}

// NewGitHubExtractor creates a GitHub extractor. api is the fetcher used
// for API calls; the API host disallows crawlers in robots.txt, so it is
// usually a fetcher with robots checks off. Nil means d.Fetcher.
func NewGitHubExtractor(d *Deps, api core.Fetcher, cfg config.GitHub) *GitHubExtractor {
	if api == nil {
		api = d.Fetcher
	}
	exts := make(map[string]bool, len(cfg.FileExtensions))
	for _, ext := range cfg.FileExtensions {
		exts[strings.ToLower(ext)] = true
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.github.com"
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &GitHubExtractor{deps: d, api: api, cfg: cfg, exts: exts}
}

// Name implements core.SourceExtractor.
func (e *GitHubExtractor) Name() string { return "github" }

// Extract implements core.SourceExtractor.
func (e *GitHubExtractor) Extract(ctx context.Context, source string) ([]core.ContentItem, error) {
	ref, ok := parseRepoURL(source)
	if !ok {
		return nil, core.Fail(core.StageSource, source, fmt.Errorf("%w: not a repository URL", ErrUnsupported))
	}

	if ref.Blob {
		var file ghContent
		if err := e.getJSON(ctx, e.apiURL(ref, "/contents/"+ref.Path), &file); err != nil {
			return nil, core.Fail(core.StageFetch, source, err)
		}
		item, err := e.fileItem(ref, file, fmt.Sprintf("%s - %s", ref.fullName(), file.Name))
		return e.deps.record(item, err), nil
	}

	var items []core.ContentItem
	if ref.Path == "" {
		readme, err := e.readme(ctx, ref)
		if err != nil {
			return nil, core.Fail(core.StageFetch, source, err)
		}
		items = append(items, readme...)
	}

	dirs := e.cfg.DocDirs
	if ref.Path != "" {
		dirs = []string{ref.Path}
	}
	files := 0
	for _, dir := range dirs {
		if ctx.Err() != nil || e.deps.Tracker.Exhausted() {
			break
		}
		var entries []ghContent
		if err := e.getJSON(ctx, e.apiURL(ref, "/contents/"+dir), &entries); err != nil {
			if !isNotFound(err) {
				e.deps.Tracker.Failed(core.Fail(core.StageFetch, source+"/"+dir, err))
			}
			continue
		}
		for _, entry := range entries {
			if e.cfg.MaxFiles > 0 && files >= e.cfg.MaxFiles {
				break
			}
			if entry.Type != "file" || !e.exts[strings.ToLower(path.Ext(entry.Name))] {
				continue
			}
			if ctx.Err() != nil || e.deps.Tracker.Exhausted() {
				break
			}
			files++
			var file ghContent
			if err := e.getJSON(ctx, entry.URL, &file); err != nil {
				e.deps.Tracker.Failed(core.Fail(core.StageFetch, entry.HTMLURL, err))
				continue
			}
			if file.HTMLURL == "" {
				file.HTMLURL = entry.HTMLURL
			}
			item, err := e.fileItem(ref, file, fmt.Sprintf("%s - %s", ref.fullName(), entry.Name))
			items = append(items, e.deps.record(item, err)...)
		}
	}
	return items, nil
}

// readme returns the repository README as an item. A repository without
// one yields nothing.
func (e *GitHubExtractor) readme(ctx context.Context, ref repoRef) ([]core.ContentItem, error) {
	var file ghContent
	if err := e.getJSON(ctx, e.apiURL(ref, "/readme"), &file); err != nil {
		if isNotFound(err) {
			e.deps.Log.Warn().Str("repository", ref.fullName()).Msg("no README")
			return nil, nil
		}
		return nil, err
	}
	item, err := e.fileItem(ref, file, ref.fullName()+" - README")
	return e.deps.record(item, err), nil
}

func (e *GitHubExtractor) fileItem(ref repoRef, file ghContent, title string) (core.ContentItem, error) {
	sourceURL := file.HTMLURL
	if sourceURL == "" {
		sourceURL = fmt.Sprintf("https://github.com/%s/blob/HEAD/%s", ref.fullName(), file.Path)
	}
	if file.Encoding != "" && file.Encoding != "base64" {
		return core.ContentItem{}, core.Fail(core.StageParse, sourceURL, fmt.Errorf("unsupported encoding %q", file.Encoding))
	}
	data, err := base64.StdEncoding.DecodeString(file.Content)
	if err != nil {
		return core.ContentItem{}, core.Fail(core.StageParse, sourceURL, fmt.Errorf("decoding content: %w", err))
	}
	content, err := e.deps.checkLength(sourceURL, normalize.Tidy(string(data)))
	if err != nil {
		return core.ContentItem{}, err
	}
	return core.ContentItem{
		ID:          core.NewItemID(sourceURL, title),
		Title:       title,
		Content:     content,
		ContentType: core.TypeDocumentation,
		SourceURL:   sourceURL,
		Author:      ref.Owner,
		Tags:        mergeTags(e.deps.Classifier.Tags(title, content)),
		Metadata: map[string]string{
			"repository": ref.fullName(),
			"file_path":  file.Path,
			"platform":   "GitHub",
		},
		UserID: e.deps.UserID,
	}, nil
}

func (e *GitHubExtractor) apiURL(ref repoRef, suffix string) string {
	u := fmt.Sprintf("%s/repos/%s/%s%s", e.cfg.APIBaseURL, ref.Owner, ref.Repo, suffix)
	if ref.Ref != "" {
		u += "?ref=" + url.QueryEscape(ref.Ref)
	}
	return u
}

func (e *GitHubExtractor) getJSON(ctx context.Context, apiURL string, v any) error {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github.v3+json")
	if e.cfg.AccessToken != "" {
		header.Set("Authorization", "token "+e.cfg.AccessToken)
	}
	res, err := e.api.FetchWith(ctx, apiURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(res.HTML), v); err != nil {
		return fmt.Errorf("decoding %s: %w", apiURL, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var se *fetch.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
