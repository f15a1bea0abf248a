package greader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/richardwooding/freshrss-mcp/model"
)

const (
	// maxPageSize is the largest item count requested per stream page;
	// the service caps pages around this size anyway.
	maxPageSize = 100
	// maxResponseBytes bounds how much of any response body is read.
	maxResponseBytes = 8 << 20
)

// Config holds the configuration for creating a new Client.
type Config struct {
	// BaseURL is the greader endpoint root, e.g.
	// https://rss.example.net/api/greader.php
	BaseURL  string
	Username string
	Password string
	// Timeout applies to every feed service request. Defaults to 30s.
	Timeout time.Duration
	// MarkReadChunkSize caps ids per edit-tag call. Defaults to 50.
	MarkReadChunkSize int
	// MaxPages bounds continuation-following per list call even when
	// the server keeps returning tokens. Defaults to 20.
	MaxPages   int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues typed operations against a Google Reader compatible
// feed service. All operations acquire a session transparently and
// retry exactly once after an auth rejection.
type Client struct {
	baseURL   string
	http      *http.Client
	session   *SessionManager
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
	chunkSize int
	maxPages  int
}

// NewClient creates a feed service client from config, applying
// defaults for unset optional fields.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, model.NewReaderError(model.ErrorTypeConfiguration, "feed service base URL is required").
			WithOperation("create_client").
			WithComponent("greader_client")
	}
	if config.Username == "" || config.Password == "" {
		return nil, model.NewReaderError(model.ErrorTypeConfiguration, "feed service credentials are required").
			WithOperation("create_client").
			WithComponent("greader_client")
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MarkReadChunkSize <= 0 {
		config.MarkReadChunkSize = 50
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 20
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "greader",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		baseURL:   baseURL,
		http:      config.HTTPClient,
		session:   NewSessionManager(baseURL, config.Username, config.Password, config.HTTPClient, config.Logger),
		breaker:   breaker,
		logger:    config.Logger,
		chunkSize: config.MarkReadChunkSize,
		maxPages:  config.MaxPages,
	}, nil
}

// Session exposes the underlying session manager, mainly for tests.
func (c *Client) Session() *SessionManager {
	return c.session
}

// ListSubscriptions returns all subscriptions joined with their unread
// counts. Two endpoints feed the join; a subscription missing from the
// unread-count list defaults to zero.
func (c *Client) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	const operation = "list_subscriptions"

	body, err := c.do(ctx, http.MethodGet, "/reader/api/0/subscription/list", jsonOutput(nil), nil, operation)
	if err != nil {
		return nil, err
	}
	var subs subscriptionListResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, model.CreateParsingError(err, "/reader/api/0/subscription/list", operation)
	}

	body, err = c.do(ctx, http.MethodGet, "/reader/api/0/unread-count", jsonOutput(nil), nil, operation)
	if err != nil {
		return nil, err
	}
	var counts unreadCountResponse
	if err := json.Unmarshal(body, &counts); err != nil {
		return nil, model.CreateParsingError(err, "/reader/api/0/unread-count", operation)
	}

	unreadByID := make(map[string]int, len(counts.UnreadCounts))
	for _, uc := range counts.UnreadCounts {
		unreadByID[uc.ID] = uc.Count
	}

	result := make([]model.Subscription, 0, len(subs.Subscriptions))
	for _, s := range subs.Subscriptions {
		result = append(result, model.Subscription{
			ID:          s.ID,
			Title:       s.Title,
			URL:         s.URL,
			Category:    s.category(),
			UnreadCount: unreadByID[s.ID],
		})
	}

	c.logger.Debug("listed subscriptions", "count", len(result))

	return result, nil
}

// ListUnread returns up to limit unread articles, optionally narrowed
// to one feed. Continuation tokens are followed until the limit is
// met, the stream is exhausted, or the page cap is hit.
func (c *Client) ListUnread(ctx context.Context, limit int, feedID string) ([]model.Article, error) {
	const operation = "list_unread"

	if limit <= 0 {
		limit = maxPageSize
	}
	streamID := stateReadingList
	if feedID != "" {
		streamID = feedID
	}
	endpoint := "/reader/api/0/stream/contents/" + url.QueryEscape(streamID)

	var articles []model.Article
	continuation := ""

	for page := 0; page < c.maxPages && len(articles) < limit; page++ {
		n := limit - len(articles)
		if n > maxPageSize {
			n = maxPageSize
		}

		query := jsonOutput(url.Values{
			"n":  {strconv.Itoa(n)},
			"xt": {stateRead},
		})
		if continuation != "" {
			query.Set("c", continuation)
		}

		body, err := c.do(ctx, http.MethodGet, endpoint, query, nil, operation)
		if err != nil {
			return nil, err
		}
		var stream streamContentsResponse
		if err := json.Unmarshal(body, &stream); err != nil {
			return nil, model.CreateParsingError(err, endpoint, operation)
		}

		for _, item := range stream.Items {
			articles = append(articles, item.toArticle())
		}

		// A short page means the stream is drained regardless of any
		// continuation token the server still hands out.
		if stream.Continuation == "" || len(stream.Items) < n {
			break
		}
		continuation = stream.Continuation
	}

	if len(articles) > limit {
		articles = articles[:limit]
	}

	c.logger.Debug("listed unread articles", "count", len(articles), "stream", streamID)

	return articles, nil
}

// GetArticle fetches a single article by its short id.
func (c *Client) GetArticle(ctx context.Context, articleID string) (model.Article, error) {
	const operation = "get_article"
	const endpoint = "/reader/api/0/stream/items/contents"

	form := url.Values{
		"i":      {StreamItemID(articleID)},
		"output": {"json"},
	}

	body, err := c.do(ctx, http.MethodPost, endpoint, nil, form, operation)
	if err != nil {
		return model.Article{}, err
	}
	var stream streamContentsResponse
	if err := json.Unmarshal(body, &stream); err != nil {
		return model.Article{}, model.CreateParsingError(err, endpoint, operation)
	}
	if len(stream.Items) == 0 {
		return model.Article{}, model.NewReaderError(model.ErrorTypeNotFound, "Article not found").
			WithEndpoint(endpoint).
			WithOperation(operation).
			WithComponent("greader_client")
	}

	return stream.Items[0].toArticle(), nil
}

// MarkRead marks the given articles as read, reporting per-chunk
// outcomes instead of aborting on the first failed chunk.
func (c *Client) MarkRead(ctx context.Context, articleIDs []string) (model.MarkReadResult, error) {
	return c.editTag(ctx, articleIDs, stateRead, "mark_read")
}

// MarkStarred stars the given articles with the same batch semantics
// as MarkRead.
func (c *Client) MarkStarred(ctx context.Context, articleIDs []string) (model.MarkReadResult, error) {
	return c.editTag(ctx, articleIDs, stateStarred, "mark_starred")
}

// editTag applies addTag to the articles in chunks. Each chunk gets a
// fresh action token; tokens expire quickly enough that caching them
// causes spurious invalid-token failures in long sessions.
func (c *Client) editTag(ctx context.Context, articleIDs []string, addTag, operation string) (model.MarkReadResult, error) {
	result := model.MarkReadResult{Succeeded: []string{}, Failed: []string{}}

	for start := 0; start < len(articleIDs); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(articleIDs) {
			end = len(articleIDs)
		}
		chunk := articleIDs[start:end]

		if err := c.editTagChunk(ctx, chunk, addTag, operation); err != nil {
			c.logger.Warn("edit-tag chunk failed", "operation", operation, "ids", len(chunk), "error", err)
			result.Failed = append(result.Failed, chunk...)
			continue
		}
		result.Succeeded = append(result.Succeeded, chunk...)
	}

	return result, nil
}

func (c *Client) editTagChunk(ctx context.Context, chunk []string, addTag, operation string) error {
	token, err := c.actionToken(ctx, operation)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("T", token)
	for _, id := range chunk {
		form.Add("i", StreamItemID(id))
	}
	form.Set("a", addTag)

	_, err = c.do(ctx, http.MethodPost, "/reader/api/0/edit-tag", nil, form, operation)
	return err
}

// actionToken fetches a fresh edit token for POST operations.
func (c *Client) actionToken(ctx context.Context, operation string) (string, error) {
	const endpoint = "/reader/api/0/token"

	body, err := c.do(ctx, http.MethodGet, endpoint, nil, nil, operation)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", model.NewReaderError(model.ErrorTypeRemoteService, "Empty action token from feed service").
			WithEndpoint(endpoint).
			WithOperation(operation).
			WithComponent("greader_client")
	}
	return token, nil
}

// do issues one authenticated request. A 401/403 invalidates the
// session and triggers exactly one re-login and retry; a second auth
// rejection is terminal.
func (c *Client) do(ctx context.Context, method, endpoint string, query, form url.Values, operation string) ([]byte, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := c.roundTrip(ctx, method, endpoint, query, form, token, operation)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.logger.Info("session rejected, re-authenticating", "endpoint", endpoint, "status", status)
		c.session.Invalidate(token)

		token, err = c.session.Token(ctx)
		if err != nil {
			return nil, err
		}
		body, status, err = c.roundTrip(ctx, method, endpoint, query, form, token, operation)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, model.NewReaderError(model.ErrorTypeAuth, "Feed service rejected a freshly issued token").
				WithEndpoint(endpoint).
				WithOperation(operation).
				WithComponent("greader_client").
				WithHTTP(status, string(body))
		}
	}

	if status < 200 || status > 299 {
		return nil, model.CreateRemoteServiceError(status, endpoint, string(body), operation)
	}

	return body, nil
}

type roundTripResult struct {
	body   []byte
	status int
}

// roundTrip performs the HTTP exchange under the circuit breaker. Only
// transport-level failures count against the breaker; HTTP error
// statuses are the caller's business.
func (c *Client) roundTrip(ctx context.Context, method, endpoint string, query, form url.Values, token, operation string) ([]byte, int, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	v, err := c.breaker.Execute(func() (any, error) {
		var reqBody io.Reader
		if form != nil {
			reqBody = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
		if err != nil {
			return nil, model.NewReaderErrorWithCause(model.ErrorTypeInternal, "Failed to build request", err).
				WithEndpoint(endpoint).
				WithOperation(operation).
				WithComponent("greader_client")
		}
		req.Header.Set("Authorization", "GoogleLogin auth="+token)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, model.CreateNetworkError(err, target, operation, "greader_client")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, model.CreateNetworkError(err, target, operation, "greader_client")
		}

		return roundTripResult{body: body, status: resp.StatusCode}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, 0, model.NewReaderErrorWithCause(model.ErrorTypeRemoteService, "Feed service temporarily unavailable", err).
				WithEndpoint(endpoint).
				WithOperation(operation).
				WithComponent("circuit_breaker")
		}
		return nil, 0, err
	}

	res := v.(roundTripResult)
	return res.body, res.status, nil
}

// jsonOutput merges output=json into query values, allocating when nil.
func jsonOutput(query url.Values) url.Values {
	if query == nil {
		query = url.Values{}
	}
	query.Set("output", "json")
	return query
}
