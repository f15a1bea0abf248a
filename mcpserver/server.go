// Package mcpserver implements the Model Context Protocol server that
// exposes a FreshRSS account to AI agents: triage of unread articles,
// reading stored content, marking read state, and full-text recovery
// for truncated articles.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richardwooding/freshrss-mcp/model"
	"github.com/richardwooding/freshrss-mcp/version"
)

var sessionCounter int64

const defaultArticleLimit = 20

// Config holds the configuration for creating a new MCP server
type Config struct {
	Subscriptions SubscriptionLister
	Unread        UnreadLister
	Articles      ArticleGetter
	Marker        ReadStateMarker
	Fetcher       ArticleFetcher
	Transport     model.Transport
	Addr          string
	APIKey        string
	ArticleLimit  int
	Logger        *slog.Logger
}

// Server implements an MCP server over a FreshRSS account
type Server struct {
	subscriptions SubscriptionLister
	unread        UnreadLister
	articles      ArticleGetter
	marker        ReadStateMarker
	fetcher       ArticleFetcher
	transport     model.Transport
	addr          string
	apiKey        string
	articleLimit  int
	sessionID     string
	logger        *slog.Logger
}

// generateSessionID creates a unique session ID for this server instance
func generateSessionID() string {
	counter := atomic.AddInt64(&sessionCounter, 1)
	return fmt.Sprintf("freshrss-mcp-session-%d-%d", time.Now().UnixNano(), counter)
}

// NewServer creates a new MCP server with the given configuration
func NewServer(config Config) (*Server, error) {
	if config.Transport == model.UndefinedTransport {
		return nil, model.NewReaderError(model.ErrorTypeTransport, "transport must be specified").
			WithOperation("create_server").
			WithComponent("mcp_server")
	}
	if config.Subscriptions == nil || config.Unread == nil || config.Articles == nil || config.Marker == nil {
		return nil, model.NewReaderError(model.ErrorTypeConfiguration, "a FreshRSS client is required").
			WithOperation("create_server").
			WithComponent("mcp_server")
	}
	if config.Fetcher == nil {
		return nil, model.NewReaderError(model.ErrorTypeConfiguration, "an article fetcher is required").
			WithOperation("create_server").
			WithComponent("mcp_server")
	}
	if config.ArticleLimit <= 0 {
		config.ArticleLimit = defaultArticleLimit
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Server{
		subscriptions: config.Subscriptions,
		unread:        config.Unread,
		articles:      config.Articles,
		marker:        config.Marker,
		fetcher:       config.Fetcher,
		transport:     config.Transport,
		addr:          config.Addr,
		apiKey:        config.APIKey,
		articleLimit:  config.ArticleLimit,
		sessionID:     generateSessionID(),
		logger:        config.Logger,
	}, nil
}

// GetUnreadParams contains parameters for the get_unread_articles tool.
type GetUnreadParams struct {
	Limit  int    `json:"limit,omitempty"`
	FeedID string `json:"feed_id,omitempty"`
}

// GetArticleParams contains parameters for the get_article_content tool.
type GetArticleParams struct {
	ArticleID string `json:"article_id"`
}

// MarkArticlesParams contains parameters for the mark_as_read and
// mark_as_starred tools.
type MarkArticlesParams struct {
	ArticleIDs []string `json:"article_ids"`
}

// FetchFullArticleParams contains parameters for the fetch_full_article tool.
type FetchFullArticleParams struct {
	URL          string `json:"url"`
	ForceDynamic bool   `json:"force_dynamic,omitempty"`
}

// toolFailure is the JSON body returned to the agent when a tool
// invocation fails. Kind and suggestion give the agent enough to
// decide between retrying, surfacing the failure, or fixing its input.
type toolFailure struct {
	Error      bool   `json:"error"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// failureResult renders err as an in-band tool error rather than a
// protocol error, keeping the MCP session alive.
func failureResult(err error) *mcp.CallToolResult {
	f := toolFailure{
		Error:   true,
		Kind:    string(model.Kind(err)),
		Message: err.Error(),
	}
	var re *model.ReaderError
	if errors.As(err, &re) {
		f.Message = re.Message
		f.Suggestion = re.Suggestion
	}
	data, marshalErr := json.Marshal(f)
	if marshalErr != nil {
		data = []byte(`{"error":true,"kind":"internal","message":"failed to encode error"}`)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return failureResult(model.NewReaderErrorWithCause(model.ErrorTypeInternal,
			"Failed to encode tool result", err)), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// Run starts the MCP server and handles client connections until context is canceled
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "FreshRSS Reader",
			Version: version.GetVersion(),
		},
		nil,
	)

	s.addTools(srv)

	switch s.transport {
	case model.StdioTransport:
		return srv.Run(ctx, &mcp.StdioTransport{})
	case model.HTTPTransport:
		return s.runHTTP(ctx, srv)
	default:
		return model.NewReaderError(model.ErrorTypeTransport, "unsupported transport").
			WithOperation("run_server").
			WithComponent("mcp_server")
	}
}

// addTools registers the reader tools.
func (s *Server) addTools(srv *mcp.Server) {
	getSubscriptionsTool := &mcp.Tool{
		Name:        "get_subscriptions",
		Description: "List all subscribed feeds with their categories and unread counts",
		InputSchema: &jsonschema.Schema{Type: "object"}, // No parameters needed
	}
	mcp.AddTool(srv, getSubscriptionsTool, func(ctx context.Context, req *mcp.CallToolRequest, args any) (*mcp.CallToolResult, any, error) {
		subs, err := s.subscriptions.ListSubscriptions(ctx)
		if err != nil {
			return failureResult(err), nil, nil
		}
		return jsonResult(subs)
	})

	getUnreadTool := &mcp.Tool{
		Name:        "get_unread_articles",
		Description: "Get unread articles, newest first, optionally limited to a single feed",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit": {
					Type:        "integer",
					Description: "Maximum number of articles to return",
				},
				"feed_id": {
					Type:        "string",
					Description: "Restrict results to this feed (ID from get_subscriptions)",
				},
			},
		},
	}
	mcp.AddTool(srv, getUnreadTool, func(ctx context.Context, req *mcp.CallToolRequest, args GetUnreadParams) (*mcp.CallToolResult, any, error) {
		limit := args.Limit
		if limit <= 0 {
			limit = s.articleLimit
		}
		articles, err := s.unread.ListUnread(ctx, limit, args.FeedID)
		if err != nil {
			return failureResult(err), nil, nil
		}
		return jsonResult(articles)
	})

	getArticleTool := &mcp.Tool{
		Name:        "get_article_content",
		Description: "Get the full stored content of one article by its ID",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"article_id"},
			Properties: map[string]*jsonschema.Schema{
				"article_id": {
					Type:        "string",
					Description: "Article ID from get_unread_articles",
				},
			},
		},
	}
	mcp.AddTool(srv, getArticleTool, func(ctx context.Context, req *mcp.CallToolRequest, args GetArticleParams) (*mcp.CallToolResult, any, error) {
		if args.ArticleID == "" {
			return failureResult(model.NewReaderError(model.ErrorTypeValidation,
				"article_id must not be empty")), nil, nil
		}
		article, err := s.articles.GetArticle(ctx, args.ArticleID)
		if err != nil {
			return failureResult(err), nil, nil
		}
		return jsonResult(article)
	})

	markReadTool := &mcp.Tool{
		Name:        "mark_as_read",
		Description: "Mark one or more articles as read",
		InputSchema: markSchema(),
	}
	mcp.AddTool(srv, markReadTool, func(ctx context.Context, req *mcp.CallToolRequest, args MarkArticlesParams) (*mcp.CallToolResult, any, error) {
		if len(args.ArticleIDs) == 0 {
			return failureResult(model.NewReaderError(model.ErrorTypeValidation,
				"article_ids must not be empty")), nil, nil
		}
		result, err := s.marker.MarkRead(ctx, args.ArticleIDs)
		if err != nil {
			return failureResult(err), nil, nil
		}
		return jsonResult(result)
	})

	markStarredTool := &mcp.Tool{
		Name:        "mark_as_starred",
		Description: "Star one or more articles for later reading",
		InputSchema: markSchema(),
	}
	mcp.AddTool(srv, markStarredTool, func(ctx context.Context, req *mcp.CallToolRequest, args MarkArticlesParams) (*mcp.CallToolResult, any, error) {
		if len(args.ArticleIDs) == 0 {
			return failureResult(model.NewReaderError(model.ErrorTypeValidation,
				"article_ids must not be empty")), nil, nil
		}
		result, err := s.marker.MarkStarred(ctx, args.ArticleIDs)
		if err != nil {
			return failureResult(err), nil, nil
		}
		return jsonResult(result)
	})

	fetchFullTool := &mcp.Tool{
		Name:        "fetch_full_article",
		Description: "Fetch and extract the full text of an article from its original URL, rendering JavaScript when needed",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"url"},
			Properties: map[string]*jsonschema.Schema{
				"url": {
					Type:        "string",
					Description: "Article URL (http or https)",
				},
				"force_dynamic": {
					Type:        "boolean",
					Description: "Skip the static fetch and render the page in a browser",
				},
			},
		},
	}
	mcp.AddTool(srv, fetchFullTool, func(ctx context.Context, req *mcp.CallToolRequest, args FetchFullArticleParams) (*mcp.CallToolResult, any, error) {
		if args.URL == "" {
			return failureResult(model.NewReaderError(model.ErrorTypeValidation,
				"url must not be empty")), nil, nil
		}
		result := s.fetcher.FetchFullArticle(ctx, args.URL, args.ForceDynamic)
		return jsonResult(result)
	})
}

func markSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"article_ids"},
		Properties: map[string]*jsonschema.Schema{
			"article_ids": {
				Type:        "array",
				Description: "Article IDs to update",
				Items:       &jsonschema.Schema{Type: "string"},
			},
		},
	}
}
