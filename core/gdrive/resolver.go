// Package gdrive turns Google Drive share links into local PDF files.
package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/kbpipe/core/fetch"
)

// DefaultBaseURL is the Drive host used for downloads and folder listings.
const DefaultBaseURL = "https://drive.google.com"

// smallFileBytes is the size below which a download is suspicious.
const smallFileBytes = 1024

var (
	// ErrNotFound is returned when a link yields no downloadable PDF.
	ErrNotFound = errors.New("drive file not found")
	// ErrNotPDF is returned when a download is not a PDF.
	ErrNotPDF = errors.New("downloaded file is not a PDF")

	filePath    = regexp.MustCompile(`/file/d/([-\w]+)`)
	docPath     = regexp.MustCompile(`/(?:document|presentation|spreadsheets)/d/([-\w]+)`)
	folderPath  = regexp.MustCompile(`/folders/([-\w]+)`)
	longToken   = regexp.MustCompile(`[-\w]{25,}`)
	confirmText = regexp.MustCompile(`confirm=([-\w]+)`)
	pdfMagic    = []byte("%PDF")
)

// Downloader fetches a URL into memory.
type Downloader interface {
	Download(ctx context.Context, url string) (*fetch.Body, error)
}

// Link is a parsed Drive link.
type Link struct {
	ID     string
	Folder bool
}

// ParseLink extracts the file or folder ID from a Drive or Docs link.
func ParseLink(link string) (Link, bool) {
	link = strings.TrimSpace(link)
	if m := folderPath.FindStringSubmatch(link); m != nil {
		return Link{ID: m[1], Folder: true}, true
	}
	if m := filePath.FindStringSubmatch(link); m != nil {
		return Link{ID: m[1]}, true
	}
	if m := docPath.FindStringSubmatch(link); m != nil {
		return Link{ID: m[1]}, true
	}
	if u, err := url.Parse(link); err == nil {
		if id := u.Query().Get("id"); id != "" {
			return Link{ID: id}, true
		}
	}
	if m := longToken.FindString(link); m != "" {
		return Link{ID: m}, true
	}
	return Link{}, false
}

// IsDriveLink reports whether link points at Google Drive or Docs.
func IsDriveLink(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "drive.google.com" || host == "docs.google.com"
}

// Resolver downloads Drive files into a temporary directory.
type Resolver struct {
	dl      Downloader
	baseURL string
	log     zerolog.Logger
	dir     string
}

// New creates a Resolver. baseURL defaults to DefaultBaseURL.
func New(dl Downloader, baseURL string, log zerolog.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{dl: dl, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// Resolve downloads the file, or every file of a folder, behind link and
// returns the local paths of the PDFs.
func (r *Resolver) Resolve(ctx context.Context, link string) ([]string, error) {
	l, ok := ParseLink(link)
	if !ok {
		return nil, fmt.Errorf("%w: no file ID in %q", ErrNotFound, link)
	}
	if !l.Folder {
		path, err := r.downloadFile(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, link, err)
		}
		return []string{path}, nil
	}

	ids, err := r.listFolder(ctx, l.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: folder %s: %w", ErrNotFound, l.ID, err)
	}
	var paths []string
	for _, id := range ids {
		if ctx.Err() != nil {
			return paths, ctx.Err()
		}
		path, err := r.downloadFile(ctx, id)
		if err != nil {
			r.log.Warn().Err(err).Str("file_id", id).Msg("skipping folder entry")
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: folder %s has no PDFs", ErrNotFound, l.ID)
	}
	return paths, nil
}

// Cleanup removes downloaded files.
func (r *Resolver) Cleanup() error {
	if r.dir == "" {
		return nil
	}
	err := os.RemoveAll(r.dir)
	r.dir = ""
	return err
}

func (r *Resolver) downloadURL(id string) string {
	return r.baseURL + "/uc?export=download&id=" + url.QueryEscape(id)
}

func (r *Resolver) downloadFile(ctx context.Context, id string) (string, error) {
	body, err := r.dl.Download(ctx, r.downloadURL(id))
	if err != nil {
		return "", err
	}
	data := body.Data
	if !bytes.HasPrefix(data, pdfMagic) {
		// Large files answer with a virus-scan warning page first.
		next, ok := r.confirmURL(id, body)
		if !ok {
			return "", ErrNotPDF
		}
		r.log.Debug().Str("file_id", id).Str("url", next).Msg("following drive confirmation")
		body, err = r.dl.Download(ctx, next)
		if err != nil {
			return "", err
		}
		data = body.Data
		if !bytes.HasPrefix(data, pdfMagic) {
			return "", ErrNotPDF
		}
	}
	if len(data) < smallFileBytes {
		r.log.Warn().Str("file_id", id).Int("bytes", len(data)).Msg("downloaded file is unusually small")
	}

	if r.dir == "" {
		dir, err := os.MkdirTemp("", "kbpipe-gdrive-*")
		if err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
		r.dir = dir
	}
	path := filepath.Join(r.dir, id+".pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("save download: %w", err)
	}
	r.log.Info().Str("file_id", id).Str("path", path).Int("bytes", len(data)).Msg("downloaded drive file")
	return path, nil
}

// confirmURL finds the follow-up download URL on a warning page: the
// download form, a confirm link, or a bare confirm token.
func (r *Resolver) confirmURL(id string, body *fetch.Body) (string, bool) {
	page := string(body.Data)
	base, _ := url.Parse(body.FinalURL)
	if base == nil {
		base, _ = url.Parse(r.baseURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err == nil {
		if form := doc.Find("form#download-form, form[action*='download']").First(); form.Length() > 0 {
			action, _ := form.Attr("action")
			u, err := base.Parse(action)
			if err == nil {
				q := u.Query()
				form.Find("input[type=hidden]").Each(func(_ int, in *goquery.Selection) {
					if name, ok := in.Attr("name"); ok {
						q.Set(name, in.AttrOr("value", ""))
					}
				})
				u.RawQuery = q.Encode()
				return u.String(), true
			}
		}
		if href, ok := doc.Find("a[href*='confirm=']").First().Attr("href"); ok {
			if u, err := base.Parse(href); err == nil {
				return u.String(), true
			}
		}
	}
	if m := confirmText.FindStringSubmatch(page); m != nil {
		return r.downloadURL(id) + "&confirm=" + url.QueryEscape(m[1]), true
	}
	return "", false
}

// listFolder returns the file IDs listed in a public folder.
func (r *Resolver) listFolder(ctx context.Context, folderID string) ([]string, error) {
	body, err := r.dl.Download(ctx, r.baseURL+"/embeddedfolderview?id="+url.QueryEscape(folderID))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body.Data))
	if err != nil {
		return nil, fmt.Errorf("parse folder listing: %w", err)
	}
	seen := make(map[string]bool)
	var ids []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := filePath.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		name := strings.ToLower(strings.TrimSpace(a.Find(".flip-entry-title").Text()))
		if name != "" && !strings.HasSuffix(name, ".pdf") {
			return
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	})
	return ids, nil
}
