// Package fetch implements the Fetcher interface.
// It performs polite HTTP GET requests: bounded retries on transient
// failures, a randomized delay and a requests-per-minute cap between
// requests, and robots.txt checks.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/kbpipe/core"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultDownload     = 300 * time.Second
	defaultBackoff      = 500 * time.Millisecond
	defaultMaxRedirects = 10
	defaultUserAgent    = "kbpipe/1.0 (+https://github.com/gaurav-prasanna/kbpipe)"

	maxPageBytes     = 16 << 20
	maxDownloadBytes = 256 << 20
)

var (
	// ErrDisallowed is returned when robots.txt forbids a URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
	// ErrTooLarge is returned when a body exceeds the page or download limit.
	ErrTooLarge = errors.New("response too large")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Options configures an HTTPFetcher. Zero values fall back to defaults,
// except the politeness fields where zero disables the feature.
type Options struct {
	UserAgent       string
	Timeout         time.Duration // per request
	DownloadTimeout time.Duration // per Download call
	MaxRetries      int           // retries after the first attempt
	Backoff         time.Duration // attempt n waits n*Backoff before retrying
	MaxRedirects    int
	MaxPageBytes     int64 // Fetch body limit
	MaxDownloadBytes int64 // Download body limit

	DelayMin          time.Duration
	DelayMax          time.Duration
	RequestsPerMinute int
	RespectRobots     bool

	// Client overrides the underlying http.Client (tests).
	Client *http.Client
	// Sleep overrides the delay function (tests).
	Sleep func(ctx context.Context, d time.Duration) error

	Logger zerolog.Logger
}

// HTTPFetcher fetches web pages and files via HTTP.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
	polite *politeness
	robots *RobotsChecker
	log    zerolog.Logger
}

// New creates an HTTPFetcher.
func New(opts Options) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = defaultDownload
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.MaxPageBytes <= 0 {
		opts.MaxPageBytes = maxPageBytes
	}
	if opts.MaxDownloadBytes <= 0 {
		opts.MaxDownloadBytes = maxDownloadBytes
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}

	var client http.Client
	if opts.Client != nil {
		client = *opts.Client
	}
	if client.Jar == nil {
		// Drive confirm pages hand out their token via cookies.
		jar, _ := cookiejar.New(nil)
		client.Jar = jar
	}
	client.CheckRedirect = checkRedirect(opts.MaxRedirects)

	f := &HTTPFetcher{
		client: &client,
		opts:   opts,
		log:    opts.Logger,
	}
	if opts.RespectRobots {
		f.robots = NewRobotsChecker(&client, opts.UserAgent, opts.Timeout)
	}
	f.polite = newPoliteness(opts.DelayMin, opts.DelayMax, opts.RequestsPerMinute, opts.Sleep, f.crawlDelay)
	return f
}

// Fetch retrieves the HTML content of the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	return f.FetchWith(ctx, url, nil)
}

// FetchWith retrieves url with extra request headers.
func (f *HTTPFetcher) FetchWith(ctx context.Context, url string, header http.Header) (*core.FetchResult, error) {
	resp, err := f.get(ctx, url, header, f.opts.Timeout, f.opts.MaxPageBytes)
	if err != nil {
		return nil, err
	}
	return &core.FetchResult{
		URL:         url,
		FinalURL:    resp.finalURL,
		StatusCode:  resp.status,
		ContentType: resp.contentType,
		HTML:        string(resp.body),
	}, nil
}

// Body is a downloaded binary response.
type Body struct {
	URL         string
	FinalURL    string
	ContentType string
	Data        []byte
}

// Download retrieves a file using the longer download timeout.
func (f *HTTPFetcher) Download(ctx context.Context, url string) (*Body, error) {
	resp, err := f.get(ctx, url, nil, f.opts.DownloadTimeout, f.opts.MaxDownloadBytes)
	if err != nil {
		return nil, err
	}
	return &Body{
		URL:         url,
		FinalURL:    resp.finalURL,
		ContentType: resp.contentType,
		Data:        resp.body,
	}, nil
}

type response struct {
	finalURL    string
	status      int
	contentType string
	body        []byte
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string, header http.Header, timeout time.Duration, limit int64) (*response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if !isHTTPScheme(u) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}

	if f.robots != nil {
		allowed, err := f.robots.IsAllowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	attempts := f.opts.MaxRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := time.Duration(i) * f.opts.Backoff
			f.log.Debug().Str("url", rawURL).Int("attempt", i+1).Dur("backoff", wait).Err(lastErr).Msg("retrying")
			if err := f.opts.Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
		if err := f.polite.wait(ctx, u.Host); err != nil {
			return nil, err
		}

		resp, err := f.tryOnce(ctx, rawURL, header, timeout, limit)
		if err == nil {
			f.log.Debug().Str("url", rawURL).Int("status", resp.status).Int("bytes", len(resp.body)).Msg("fetched")
			return resp, nil
		}
		lastErr = err
		if !isTransient(ctx, err) {
			break
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) tryOnce(ctx context.Context, rawURL string, header http.Header, timeout time.Duration, limit int64) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%s: %w (over %d bytes)", rawURL, ErrTooLarge, limit)
	}
	return &response{
		finalURL:    resp.Request.URL.String(),
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
	}, nil
}

func (f *HTTPFetcher) crawlDelay(host string) time.Duration {
	if f.robots == nil {
		return 0
	}
	return f.robots.CrawlDelay(host)
}

// isTransient treats 5xx, 429, timeouts and connection failures as
// retryable. Caller cancellation and robots denials are not.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrDisallowed) || errors.Is(err, ErrTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return !strings.Contains(ue.Err.Error(), "redirect")
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func checkRedirect(max int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
