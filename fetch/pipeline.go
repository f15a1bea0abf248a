package fetch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/richardwooding/freshrss-mcp/model"
)

const (
	defaultMinContentLength = 200
	defaultBrowserTimeout   = 30 * time.Second
)

// StaticSource fetches raw page HTML over plain HTTP.
type StaticSource interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Renderer produces the post-JavaScript document for a page.
type Renderer interface {
	Render(ctx context.Context, rawURL string, timeout time.Duration) (string, error)
}

// PipelineConfig configures a content recovery Pipeline.
type PipelineConfig struct {
	Static           StaticSource
	Browser          Renderer
	DynamicEnabled   bool
	MinContentLength int
	BrowserTimeout   time.Duration
	AllowPrivateIPs  bool
	Logger           *slog.Logger
}

// Pipeline recovers full article text from a URL. The cheap static
// tier runs first; when its extracted text falls below the quality
// gate the rendered tier takes over. Outcomes are always reported as
// an ExtractionResult, never as an error, so callers get a uniform
// shape for success and failure alike.
type Pipeline struct {
	static         StaticSource
	browser        Renderer
	dynamicEnabled bool
	minContentLen  int
	browserTimeout time.Duration
	allowPrivate   bool
	logger         *slog.Logger
}

// NewPipeline creates a content recovery pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Static == nil {
		return nil, model.NewReaderError(model.ErrorTypeConfiguration,
			"Content pipeline requires a static fetcher")
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = defaultMinContentLength
	}
	if cfg.BrowserTimeout <= 0 {
		cfg.BrowserTimeout = defaultBrowserTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		static:         cfg.Static,
		browser:        cfg.Browser,
		dynamicEnabled: cfg.DynamicEnabled && cfg.Browser != nil,
		minContentLen:  cfg.MinContentLength,
		browserTimeout: cfg.BrowserTimeout,
		allowPrivate:   cfg.AllowPrivateIPs,
		logger:         cfg.Logger,
	}, nil
}

// FetchFullArticle recovers the readable text of the page at rawURL.
// forceDynamic skips the static tier entirely and goes straight to the
// browser.
func (p *Pipeline) FetchFullArticle(ctx context.Context, rawURL string, forceDynamic bool) model.ExtractionResult {
	result := model.ExtractionResult{URL: rawURL}

	if err := model.ValidateArticleURL(rawURL, p.allowPrivate); err != nil {
		verr := model.CreateValidationError(err, rawURL)
		result.Error = verr.Message
		return result
	}

	if !forceDynamic {
		res, err := p.staticTier(ctx, rawURL)
		switch {
		case err == nil && len(res.Content) >= p.minContentLen:
			return res
		case err == nil:
			p.logger.Debug("static extraction below quality gate",
				"url", rawURL, "chars", len(res.Content), "min", p.minContentLen)
			result.Error = "static extraction produced too little content"
		case model.Kind(err) == model.ErrorTypeUnsupportedContent:
			// Rendering a PDF or image in a browser recovers nothing.
			result.Error = errMessage(err)
			return result
		default:
			p.logger.Debug("static fetch failed", "url", rawURL, "error", err)
			result.Error = errMessage(err)
		}
	}

	if !p.dynamicEnabled {
		if result.Error == "" {
			result.Error = "dynamic content extraction is disabled"
		} else {
			result.Error += " and dynamic content extraction is disabled"
		}
		return result
	}

	res, err := p.dynamicTier(ctx, rawURL)
	if err != nil {
		result.Error = errMessage(err)
		return result
	}
	if strings.TrimSpace(res.Content) == "" {
		res.Success = false
		res.Error = "rendered page yielded no readable text"
	}
	return res
}

func (p *Pipeline) staticTier(ctx context.Context, rawURL string) (model.ExtractionResult, error) {
	html, err := p.static.Fetch(ctx, rawURL)
	if err != nil {
		return model.ExtractionResult{}, err
	}
	return model.ExtractionResult{
		URL:     rawURL,
		Title:   ExtractTitle(html),
		Content: ExtractArticleText(html),
		Method:  model.MethodStatic,
		Success: true,
	}, nil
}

func (p *Pipeline) dynamicTier(ctx context.Context, rawURL string) (model.ExtractionResult, error) {
	html, err := p.browser.Render(ctx, rawURL, p.browserTimeout)
	if err != nil {
		return model.ExtractionResult{}, err
	}
	return model.ExtractionResult{
		URL:     rawURL,
		Title:   ExtractTitle(html),
		Content: ExtractArticleText(html),
		Method:  model.MethodDynamic,
		Success: true,
	}, nil
}

// errMessage prefers the structured message over the full wrapped
// chain for agent-facing failure text.
func errMessage(err error) string {
	var re *model.ReaderError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
