// Package fetch retrieves source pages as cleaned plaintext ready for
// extraction. Requests are rate limited per host and retried on transient
// failures.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/showscout/showscout-cli/internal/resilience"
)

const defaultMaxBodyBytes = 2 << 20 // 2 MiB is plenty for a listings page

// Options configures the Fetcher.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	HostRPS    float64
	MaxBody    int64
	Retry      resilience.RetryConfig
	HTTPClient *http.Client
}

// Fetcher fetches and cleans source pages.
type Fetcher struct {
	client   *http.Client
	opts     Options
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Fetcher with the given options.
func New(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "showscout/1.0"
	}
	if opts.HostRPS <= 0 {
		opts.HostRPS = 2
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = defaultMaxBodyBytes
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		client:   client,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch downloads a source page and returns its cleaned plaintext. Transient
// statuses are retried with backoff; everything else fails fast with a fetch
// error the scheduler counts against the source.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Host == "" {
		return "", resilience.NewError(resilience.KindFetch, "parse url", eris.Errorf("invalid url %q", targetURL))
	}

	if err := f.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return "", resilience.NewError(resilience.KindFetch, "rate limit", err)
	}

	cfg := f.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("fetch", parsed.Host)

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return f.fetchOnce(ctx, targetURL)
	})
	if err != nil {
		return "", resilience.NewError(resilience.KindFetch, targetURL, err)
	}

	text, err := CleanHTML(string(body))
	if err != nil {
		return "", resilience.NewError(resilience.KindFetch, "clean html", err)
	}

	zap.L().Debug("fetched source page",
		zap.String("url", targetURL),
		zap.Int("body_bytes", len(body)),
		zap.Int("text_bytes", len(text)),
	)
	return text, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: build request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("fetch: status %d for %s", resp.StatusCode, targetURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBody))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}
	if len(body) == 0 {
		return nil, eris.Errorf("fetch: empty body from %s", targetURL)
	}
	return body, nil
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.opts.HostRPS), 1)
		f.limiters[host] = lim
	}
	return lim
}
