// Package greader implements a client for the Google Reader compatible
// API exposed by FreshRSS: session lifecycle, typed stream operations,
// pagination and batch tag edits.
package greader

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/richardwooding/freshrss-mcp/model"
)

// Session is a snapshot of the authenticated state. The token is opaque
// and valid for a remote-controlled duration; holders must be prepared
// for it to be rejected at any time.
type Session struct {
	Token    string
	IssuedAt time.Time
	Username string
}

// SessionManager owns the auth token for one FreshRSS account. Login is
// performed lazily and concurrent callers share a single in-flight
// ClientLogin exchange instead of issuing duplicate logins.
type SessionManager struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *slog.Logger

	mu      sync.Mutex
	session Session

	group singleflight.Group
}

// NewSessionManager creates a session manager for the given account.
func NewSessionManager(baseURL, username, password string, client *http.Client, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		client:   client,
		logger:   logger,
	}
}

// Token returns the current auth token, performing the login exchange
// when none is cached.
func (s *SessionManager) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	tok := s.session.Token
	s.mu.Unlock()
	if tok != "" {
		return tok, nil
	}

	v, err, _ := s.group.Do("login", func() (any, error) {
		// A racing caller may have completed the login while this one
		// was queued on the guard.
		s.mu.Lock()
		tok := s.session.Token
		s.mu.Unlock()
		if tok != "" {
			return tok, nil
		}
		return s.authenticate(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token if it still matches tok, forcing a
// fresh login on the next Token call. The comparison prevents a stale
// 401 from discarding a token another caller already renewed.
func (s *SessionManager) Invalidate(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token == tok {
		s.session = Session{}
	}
}

// Current returns the cached session, if any.
func (s *SessionManager) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.session.Token != ""
}

// authenticate performs the ClientLogin exchange. The response body is
// a newline-separated key=value block; only the Auth line matters.
func (s *SessionManager) authenticate(ctx context.Context) (string, error) {
	endpoint := s.baseURL + "/accounts/ClientLogin"
	form := url.Values{
		"Email":  {s.username},
		"Passwd": {s.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", model.NewReaderErrorWithCause(model.ErrorTypeAuth, "Failed to build login request", err).
			WithEndpoint("/accounts/ClientLogin").
			WithOperation("authenticate").
			WithComponent("session_manager")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", model.NewReaderErrorWithCause(model.ErrorTypeAuth, "Login request failed", err).
			WithEndpoint("/accounts/ClientLogin").
			WithOperation("authenticate").
			WithComponent("session_manager")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", model.NewReaderErrorWithCause(model.ErrorTypeAuth, "Failed to read login response", err).
			WithEndpoint("/accounts/ClientLogin").
			WithOperation("authenticate").
			WithComponent("session_manager")
	}

	if resp.StatusCode != http.StatusOK {
		return "", model.NewReaderError(model.ErrorTypeAuth, "Login rejected by feed service").
			WithEndpoint("/accounts/ClientLogin").
			WithOperation("authenticate").
			WithComponent("session_manager").
			WithHTTP(resp.StatusCode, string(body))
	}

	token := parseAuthToken(string(body))
	if token == "" {
		return "", model.NewReaderError(model.ErrorTypeAuth, "No Auth token in login response").
			WithEndpoint("/accounts/ClientLogin").
			WithOperation("authenticate").
			WithComponent("session_manager").
			WithHTTP(resp.StatusCode, string(body))
	}

	s.mu.Lock()
	s.session = Session{Token: token, IssuedAt: time.Now().UTC(), Username: s.username}
	s.mu.Unlock()

	s.logger.Info("authenticated with feed service", "username", s.username)

	return token, nil
}

// parseAuthToken extracts the Auth= value from a ClientLogin response
// body, tolerating trailing whitespace and blank lines.
func parseAuthToken(body string) string {
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok && key == "Auth" && value != "" {
			return value
		}
	}
	return ""
}
