// Package cmd wires CLI flags to the running MCP server.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/richardwooding/freshrss-mcp/fetch"
	"github.com/richardwooding/freshrss-mcp/greader"
	"github.com/richardwooding/freshrss-mcp/mcpserver"
	"github.com/richardwooding/freshrss-mcp/model"
)

// RunCmd runs the MCP server against a FreshRSS instance. Credentials
// come from flags or the environment; the environment is the usual
// path when an MCP client launches the binary.
type RunCmd struct {
	APIURL   string `name:"api-url" env:"FRESHRSS_API_URL" required:"" help:"Base URL of the FreshRSS Google Reader API (e.g. https://rss.example.net/api/greader.php)."`
	Username string `name:"username" env:"FRESHRSS_USERNAME" required:"" help:"FreshRSS account username."`
	Password string `name:"password" env:"FRESHRSS_API_PASSWORD" required:"" help:"FreshRSS API password (not the web login password)."`

	Transport string `name:"transport" default:"stdio" enum:"stdio,http" help:"Transport to use for the MCP server."`
	Addr      string `name:"addr" default:":8080" help:"Listen address for the http transport."`
	APIKey    string `name:"api-key" env:"MCP_API_KEY" help:"Bearer token required on the http transport. Empty disables authentication."`

	Timeout      time.Duration `name:"timeout" env:"REQUEST_TIMEOUT" default:"30s" help:"Timeout for FreshRSS API requests."`
	ArticleLimit int           `name:"article-limit" env:"DEFAULT_ARTICLE_LIMIT" default:"20" help:"Default number of unread articles returned when a tool call gives no limit."`

	EnableDynamicFetch bool          `name:"enable-dynamic-fetch" env:"ENABLE_DYNAMIC_FETCH" default:"true" negatable:"" help:"Allow falling back to a headless browser for script-heavy article pages."`
	BrowserTimeout     time.Duration `name:"browser-timeout" env:"BROWSER_TIMEOUT" default:"30s" help:"Per-page timeout for headless browser rendering."`
	MinContentLength   int           `name:"min-content-length" default:"200" help:"Minimum extracted characters before static article extraction is considered good enough."`
	PageCacheTTL       time.Duration `name:"page-cache-ttl" default:"5m" help:"How long fetched article pages are cached in memory."`
	AllowPrivateIPs    bool          `name:"allow-private-ips" help:"Permit article fetches from private and loopback addresses."`

	LogLevel string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Minimum log level."`
}

// Run starts the MCP server and blocks until ctx is canceled.
func (c *RunCmd) Run(globals *model.Globals, ctx context.Context) error {
	logger := newLogger(c.LogLevel)

	transport, err := model.ParseTransport(c.Transport)
	if err != nil {
		return err
	}

	client, err := greader.NewClient(greader.Config{
		BaseURL:  c.APIURL,
		Username: c.Username,
		Password: c.Password,
		Timeout:  c.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	static, err := fetch.NewStaticFetcher(fetch.StaticConfig{
		Timeout:  c.Timeout,
		CacheTTL: c.PageCacheTTL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	cfg := fetch.PipelineConfig{
		Static:           static,
		DynamicEnabled:   c.EnableDynamicFetch,
		MinContentLength: c.MinContentLength,
		BrowserTimeout:   c.BrowserTimeout,
		AllowPrivateIPs:  c.AllowPrivateIPs,
		Logger:           logger,
	}
	if c.EnableDynamicFetch {
		browser := fetch.NewBrowser(logger)
		defer browser.Close()
		cfg.Browser = browser
	}

	pipeline, err := fetch.NewPipeline(cfg)
	if err != nil {
		return err
	}

	server, err := mcpserver.NewServer(mcpserver.Config{
		Subscriptions: client,
		Unread:        client,
		Articles:      client,
		Marker:        client,
		Fetcher:       pipeline,
		Transport:     transport,
		Addr:          c.Addr,
		APIKey:        c.APIKey,
		ArticleLimit:  c.ArticleLimit,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	return server.Run(ctx)
}

// newLogger builds the process logger. Logs go to stderr because the
// stdio transport owns stdout for MCP frames.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
