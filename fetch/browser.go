package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/richardwooding/freshrss-mcp/model"
)

// Browser owns the process-wide headless rendering engine. The engine
// starts lazily on first demand and is shared across renders; each
// render runs in its own incognito browser context so cookies and
// storage never leak between pages. Only startup and teardown hold the
// instance lock; renders proceed concurrently.
type Browser struct {
	logger *slog.Logger

	mu            sync.Mutex
	started       bool
	startErr      error
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewBrowser creates a lazy headless browser. No process is launched
// until the first Render call.
func NewBrowser(logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{logger: logger}
}

// start launches the shared browser process once. A startup failure
// (typically no Chrome/Chromium binary on the host) is latched so
// later renders fail fast instead of retrying a broken runtime.
func (b *Browser) start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	if b.startErr != nil {
		return b.startErr
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		chromedp.DefaultExecAllocatorOptions[:]...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Running an empty task list forces the browser process to start,
	// surfacing a missing runtime here instead of mid-navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		b.startErr = model.NewReaderErrorWithCause(model.ErrorTypeBrowserUnavailable,
			"Headless browser failed to start", err).
			WithComponent("browser")
		b.logger.Warn("headless browser unavailable", "error", err)
		return b.startErr
	}

	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.allocCancel = allocCancel
	b.started = true
	b.logger.Info("headless browser started")
	return nil
}

// Render loads rawURL in a fresh incognito context, waits for the DOM
// to become ready, and returns the rendered document.
func (b *Browser) Render(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	if err := b.start(); err != nil {
		return "", err
	}

	b.mu.Lock()
	parent := b.browserCtx
	b.mu.Unlock()
	if parent == nil {
		return "", model.NewReaderError(model.ErrorTypeBrowserUnavailable,
			"Headless browser has been shut down").
			WithComponent("browser")
	}

	tabCtx, cancel := chromedp.NewContext(parent, chromedp.WithNewBrowserContext())
	defer cancel()

	// Tab contexts descend from the browser, not the caller; forward
	// caller cancellation so shutdown tears down in-flight renders.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	runCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", model.CreateNetworkError(err, rawURL, "render", "browser")
	}

	b.logger.Debug("rendered page", "url", rawURL, "bytes", len(html))
	return html, nil
}

// Close shuts down the shared browser process. Safe to call when the
// browser never started, and idempotent.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}
	b.browserCancel()
	b.allocCancel()
	b.browserCtx = nil
	b.started = false
	b.logger.Info("headless browser closed")
}
