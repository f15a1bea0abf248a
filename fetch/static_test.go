package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richardwooding/freshrss-mcp/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestStaticFetcher(t *testing.T) *StaticFetcher {
	t.Helper()
	f, err := NewStaticFetcher(StaticConfig{
		Timeout:           5 * time.Second,
		RequestsPerSecond: 100,
		BurstCapacity:     100,
		Logger:            discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewStaticFetcher: %v", err)
	}
	return f
}

func TestStaticFetcher_FetchesHTML(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if got := r.Header.Get("Accept"); !strings.Contains(got, "text/html") {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "freshrss-mcp") {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>hello reader</p></body></html>")
	}))
	defer srv.Close()

	f := newTestStaticFetcher(t)
	body, err := f.Fetch(context.Background(), srv.URL+"/post")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(body, "hello reader") {
		t.Errorf("body = %q", body)
	}
}

func TestStaticFetcher_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.7 ...")
	}))
	defer srv.Close()

	f := newTestStaticFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL+"/report.pdf")
	if kind := model.Kind(err); kind != model.ErrorTypeUnsupportedContent {
		t.Errorf("error kind = %s, want %s", kind, model.ErrorTypeUnsupportedContent)
	}
}

func TestStaticFetcher_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestStaticFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if kind := model.Kind(err); kind != model.ErrorTypeNetwork {
		t.Errorf("error kind = %s, want %s", kind, model.ErrorTypeNetwork)
	}
}

func TestStaticFetcher_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	f := newTestStaticFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL+"/post")
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
}

func TestIsHTMLContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"TEXT/HTML", true},
		{"", true},
		{"application/pdf", false},
		{"image/png", false},
		{"application/json", false},
	}
	for _, tt := range tests {
		if got := isHTMLContentType(tt.ct); got != tt.want {
			t.Errorf("isHTMLContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}
