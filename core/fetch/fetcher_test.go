package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleep captures requested delays instead of sleeping.
type recordSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestFetcher(rs *recordSleep, opts Options) *HTTPFetcher {
	opts.Sleep = rs.sleep
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	return New(opts)
}

func TestFetchReturnsBodyAndHeaders(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{UserAgent: "test-agent"})
	res, err := f.FetchWith(context.Background(), srv.URL+"/page", http.Header{"Authorization": {"token abc"}})
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Contains(t, res.HTML, "hi")
	assert.Equal(t, srv.URL+"/page", res.FinalURL)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "token abc", gotAuth)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rs := &recordSleep{}
	f := newTestFetcher(rs, Options{MaxRetries: 3, Backoff: 10 * time.Millisecond})
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.HTML)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, rs.delays)
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{MaxRetries: 2})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchUnreachableHostFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{MaxRetries: 1})
	_, err := f.Fetch(context.Background(), addr)
	require.Error(t, err)
}

func TestFetchRejectsNonHTTPScheme(t *testing.T) {
	f := newTestFetcher(&recordSleep{}, Options{})
	_, err := f.Fetch(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
}

func TestPolitenessDelaysBetweenRequestsOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rs := &recordSleep{}
	f := newTestFetcher(rs, Options{DelayMin: time.Second, DelayMax: 3 * time.Second})
	for i := 0; i < 4; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	require.Len(t, rs.delays, 3, "no delay before the first request")
	for _, d := range rs.delays {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}

func TestRobotsDisallowAndCrawlDelay(t *testing.T) {
	var pageHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\nCrawl-delay: 7\n"))
			return
		}
		atomic.AddInt32(&pageHits, 1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rs := &recordSleep{}
	f := newTestFetcher(rs, Options{RespectRobots: true, DelayMin: time.Second, DelayMax: time.Second})

	_, err := f.Fetch(context.Background(), srv.URL+"/private/page")
	require.ErrorIs(t, err, ErrDisallowed)
	assert.EqualValues(t, 0, atomic.LoadInt32(&pageHits))

	_, err = f.Fetch(context.Background(), srv.URL+"/public")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), srv.URL+"/public/2")
	require.NoError(t, err)
	require.Len(t, rs.delays, 1)
	assert.Equal(t, 7*time.Second, rs.delays[0], "crawl-delay widens the politeness delay")
}

func TestRobotsMissingAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{RespectRobots: true})
	_, err := f.Fetch(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
}

func TestRobotsRequestIsBoundedByTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{RespectRobots: true, Timeout: 200 * time.Millisecond})
	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err, "an unanswered robots.txt allows everything")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOversizedBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{MaxPageBytes: 100, MaxDownloadBytes: 50, MaxRetries: 3})
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err, "a body exactly at the limit is accepted")
	assert.Len(t, res.HTML, 100)

	_, err = f.Download(context.Background(), srv.URL+"/book.pdf")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestDownloadReturnsBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	f := newTestFetcher(&recordSleep{}, Options{})
	body, err := f.Download(context.Background(), srv.URL+"/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", body.ContentType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), body.Data)
}

func TestCanceledContextStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newTestFetcher(&recordSleep{}, Options{MaxRetries: 5})
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
}
