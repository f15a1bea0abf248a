package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/gocolly/colly"
	"github.com/richardwooding/freshrss-mcp/model"
	"golang.org/x/time/rate"
)

const (
	defaultStaticTimeout = 30 * time.Second
	defaultPageCacheTTL  = 5 * time.Minute
	defaultUserAgent     = "freshrss-mcp/1.0 (article fetcher)"
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// RateLimitedTransport wraps an http.RoundTripper with rate limiting
// so article fetches cannot hammer a single origin.
type RateLimitedTransport struct {
	transport   http.RoundTripper
	rateLimiter *rate.Limiter
}

// RoundTrip implements http.RoundTripper with rate limiting.
func (r *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := r.rateLimiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return r.transport.RoundTrip(req)
}

// StaticConfig configures a StaticFetcher. Zero values get sensible
// defaults from NewStaticFetcher.
type StaticConfig struct {
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	BurstCapacity     int
	UserAgent         string
	Logger            *slog.Logger
}

// StaticFetcher downloads article pages over plain HTTP. Raw page
// bodies are cached for a short TTL so repeated recovery attempts for
// the same URL (static tier, then extraction retries) hit the network
// once.
type StaticFetcher struct {
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
	pages     *cache.LoadableCache[string]
	logger    *slog.Logger
}

// NewStaticFetcher creates a static page fetcher with an in-process
// page cache and a rate-limited transport.
func NewStaticFetcher(cfg StaticConfig) (*StaticFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultStaticTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultPageCacheTTL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.BurstCapacity <= 0 {
		cfg.BurstCapacity = 4
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ristrettoCache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, model.NewReaderErrorWithCause(model.ErrorTypeConfiguration,
			"Failed to initialize page cache", err).WithComponent("static_fetcher")
	}

	f := &StaticFetcher{
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		transport: &RateLimitedTransport{
			transport:   http.DefaultTransport,
			rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstCapacity),
		},
		logger: cfg.Logger,
	}

	loadFunction := func(ctx context.Context, key any) (string, []store.Option, error) {
		rawURL, ok := key.(string)
		if !ok {
			return "", nil, model.NewReaderError(model.ErrorTypeInternal, "Page cache key is not a URL")
		}
		body, err := f.download(rawURL)
		if err != nil {
			return "", nil, err
		}
		return body, []store.Option{store.WithExpiration(cfg.CacheTTL)}, nil
	}

	f.pages = cache.NewLoadable[string](loadFunction,
		cache.New[string](ristretto_store.NewRistretto(ristrettoCache)))

	return f, nil
}

// Fetch returns the raw HTML for rawURL, from cache or the network.
func (f *StaticFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	return f.pages.Get(ctx, rawURL)
}

// download performs one HTTP fetch of rawURL. Only HTML responses are
// accepted; binary payloads (PDFs, images) are rejected rather than
// fed into text extraction. Redirects are bounded by net/http's
// ten-hop limit.
func (f *StaticFetcher) download(rawURL string) (string, error) {
	c := colly.NewCollector(colly.UserAgent(f.userAgent))
	c.SetRequestTimeout(f.timeout)
	c.WithTransport(f.transport)

	var (
		body        []byte
		contentType string
		status      int
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", acceptHeader)
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		contentType = r.Headers.Get("Content-Type")
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil {
		if status >= 400 {
			return "", model.NewReaderError(model.ErrorTypeNetwork,
				fmt.Sprintf("Article fetch failed with HTTP %d", status)).
				WithURL(rawURL).
				WithOperation("static_fetch").
				WithComponent("static_fetcher").
				WithHTTP(status, "")
		}
		return "", model.CreateNetworkError(err, rawURL, "static_fetch", "static_fetcher")
	}

	if !isHTMLContentType(contentType) {
		return "", model.NewReaderError(model.ErrorTypeUnsupportedContent,
			fmt.Sprintf("URL does not serve HTML content (got %q)", contentType)).
			WithURL(rawURL).
			WithOperation("static_fetch").
			WithComponent("static_fetcher")
	}

	f.logger.Debug("fetched page", "url", rawURL, "bytes", len(body))
	return string(body), nil
}

// isHTMLContentType reports whether the Content-Type header names an
// HTML document. A missing header is treated as HTML; extraction will
// sort out anything unusable.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
