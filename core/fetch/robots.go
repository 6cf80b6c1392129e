package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const maxRobotsBodyBytes = 512 * 1024

// RobotsChecker checks and caches robots.txt rules per host for one run.
// Missing, unreadable or non-2xx robots.txt files allow everything.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData // nil entry means allow all
}

// NewRobotsChecker creates a RobotsChecker. timeout bounds each robots.txt
// request; zero means the request timeout default.
func NewRobotsChecker(client *http.Client, userAgent string, timeout time.Duration) *RobotsChecker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether rawURL may be fetched.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}
	if strings.EqualFold(u.Path, "/robots.txt") {
		return true, nil
	}

	data := r.lookup(ctx, u.Scheme, host)
	if data == nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.userAgent), nil
}

// CrawlDelay returns the crawl-delay robots.txt sets for host, or zero.
func (r *RobotsChecker) CrawlDelay(host string) time.Duration {
	r.mu.RLock()
	data := r.cache[strings.ToLower(host)]
	r.mu.RUnlock()
	if data == nil {
		return 0
	}
	group := data.FindGroup(r.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (r *RobotsChecker) lookup(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, scheme, host)
	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()
	return data
}

func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	if scheme == "" {
		scheme = "https"
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+host+"/robots.txt", http.NoBody)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}
