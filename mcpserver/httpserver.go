package mcpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richardwooding/freshrss-mcp/model"
	"github.com/richardwooding/freshrss-mcp/version"
)

const shutdownGrace = 10 * time.Second

// healthResponse is the /healthz body.
type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Transport string `json:"transport"`
}

// runHTTP serves the MCP server over streamable HTTP until ctx is
// canceled, then drains connections within a grace period.
func (s *Server) runHTTP(ctx context.Context, srv *mcp.Server) error {
	if s.addr == "" {
		return model.NewReaderError(model.ErrorTypeConfiguration, "HTTP transport requires a listen address").
			WithOperation("run_server").
			WithComponent("mcp_server")
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/", s.requireAPIKey(handler))

	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	s.logger.Info("serving MCP over HTTP", "addr", s.addr, "auth", s.apiKey != "")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return model.NewReaderErrorWithCause(model.ErrorTypeTransport,
				"HTTP server shutdown failed", err).
				WithComponent("mcp_server")
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return model.NewReaderErrorWithCause(model.ErrorTypeTransport,
			"HTTP server failed", err).
			WithComponent("mcp_server")
	}
}

// handleHealth reports liveness. Probes hit this path without the API
// key, so it must stay outside the auth middleware.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "ok",
		Version:   version.GetVersion(),
		Transport: s.transport.String(),
	})
}

// requireAPIKey enforces bearer authentication on MCP endpoints when
// an API key is configured. Comparison is constant-time.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	if s.apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.apiKey)) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
