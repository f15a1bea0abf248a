package greader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/richardwooding/freshrss-mcp/model"
)

const testLoginBody = "SID=ignored\nLSID=ignored\nAuth=%s\n"

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:    srv.URL,
		Username:   "alice",
		Password:   "secret",
		HTTPClient: srv.Client(),
		Logger:     discardLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func streamPage(start, count int, continuation string) streamContentsResponse {
	page := streamContentsResponse{Continuation: continuation}
	for i := 0; i < count; i++ {
		n := start + i
		page.Items = append(page.Items, wireItem{
			ID:        fmt.Sprintf("%s%016x", longItemIDPrefix, uint64(n)),
			Title:     fmt.Sprintf("Article %d", n),
			Published: int64(1700000000 + n),
			Summary:   wireSummary{Content: "<p>body</p>"},
			Alternate: []wireLink{{Href: fmt.Sprintf("https://example.net/posts/%d", n)}},
			Origin:    wireOrigin{StreamID: "feed/1", Title: "Example Feed"},
		})
	}
	return page
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{Username: "a", Password: "b"}); model.Kind(err) != model.ErrorTypeConfiguration {
		t.Errorf("missing base URL: kind = %s", model.Kind(err))
	}
	if _, err := NewClient(Config{BaseURL: "https://rss.example.net"}); model.Kind(err) != model.ErrorTypeConfiguration {
		t.Errorf("missing credentials: kind = %s", model.Kind(err))
	}
}

func TestClient_ListSubscriptions_JoinsUnreadCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case "/reader/api/0/subscription/list":
			if got := r.Header.Get("Authorization"); got != "GoogleLogin auth=tok" {
				t.Errorf("Authorization = %q", got)
			}
			writeJSON(t, w, subscriptionListResponse{Subscriptions: []wireSubscription{
				{ID: "feed/1", Title: "Busy Feed", URL: "https://one.example.net/rss", Categories: []wireCategory{{ID: "user/-/label/Tech", Label: "Tech"}}},
				{ID: "feed/2", Title: "Quiet Feed", URL: "https://two.example.net/rss"},
			}})
		case "/reader/api/0/unread-count":
			writeJSON(t, w, unreadCountResponse{UnreadCounts: []wireUnreadCount{
				{ID: "feed/1", Count: 7},
				{ID: "user/-/state/com.google/reading-list", Count: 7},
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	subs, err := client.ListSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(subs))
	}
	if subs[0].UnreadCount != 7 || subs[0].Category != "Tech" {
		t.Errorf("subs[0] = %+v", subs[0])
	}
	if subs[1].UnreadCount != 0 {
		t.Errorf("feed with no unread entry should default to 0, got %d", subs[1].UnreadCount)
	}
}

func TestClient_ReauthenticatesOnceOn401(t *testing.T) {
	var logins int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/ClientLogin":
			n := atomic.AddInt64(&logins, 1)
			fmt.Fprintf(w, testLoginBody, fmt.Sprintf("tok-%d", n))
		case "/reader/api/0/subscription/list":
			if r.Header.Get("Authorization") == "GoogleLogin auth=tok-1" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			writeJSON(t, w, subscriptionListResponse{})
		case "/reader/api/0/unread-count":
			writeJSON(t, w, unreadCountResponse{})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	if _, err := client.ListSubscriptions(context.Background()); err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if n := atomic.LoadInt64(&logins); n != 2 {
		t.Errorf("logins = %d, want 2 (initial + one re-login)", n)
	}
}

func TestClient_SecondAuthRejectionIsTerminal(t *testing.T) {
	var logins int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/accounts/ClientLogin" {
			n := atomic.AddInt64(&logins, 1)
			fmt.Fprintf(w, testLoginBody, fmt.Sprintf("tok-%d", n))
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	_, err := client.ListSubscriptions(context.Background())
	if err == nil {
		t.Fatal("expected terminal auth error")
	}
	if kind := model.Kind(err); kind != model.ErrorTypeAuth {
		t.Errorf("error kind = %s, want %s", kind, model.ErrorTypeAuth)
	}
	if n := atomic.LoadInt64(&logins); n != 2 {
		t.Errorf("logins = %d, want exactly 2", n)
	}
}

func TestClient_ListUnread_FollowsContinuations(t *testing.T) {
	var nParams []string
	var cParams []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case strings.HasPrefix(r.URL.Path, "/reader/api/0/stream/contents/"):
			if !strings.HasSuffix(r.URL.Path, "user/-/state/com.google/reading-list") {
				t.Errorf("unexpected stream path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("xt"); got != stateRead {
				t.Errorf("xt = %q", got)
			}
			nParams = append(nParams, r.URL.Query().Get("n"))
			c := r.URL.Query().Get("c")
			cParams = append(cParams, c)
			switch c {
			case "":
				writeJSON(t, w, streamPage(0, 100, "c1"))
			case "c1":
				writeJSON(t, w, streamPage(100, 100, "c2"))
			case "c2":
				writeJSON(t, w, streamPage(200, 50, "c3"))
			default:
				t.Errorf("unexpected continuation %q", c)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	articles, err := client.ListUnread(context.Background(), 250, "")
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(articles) != 250 {
		t.Fatalf("got %d articles, want 250", len(articles))
	}
	wantN := []string{"100", "100", "50"}
	wantC := []string{"", "c1", "c2"}
	if len(nParams) != 3 {
		t.Fatalf("server saw %d pages, want 3", len(nParams))
	}
	for i := range wantN {
		if nParams[i] != wantN[i] || cParams[i] != wantC[i] {
			t.Errorf("page %d: n=%q c=%q, want n=%q c=%q", i, nParams[i], cParams[i], wantN[i], wantC[i])
		}
	}

	// Article ids reach the caller in short decimal form.
	if articles[0].ID != "0" || articles[1].ID != "1" {
		t.Errorf("ids = %q, %q", articles[0].ID, articles[1].ID)
	}
}

func TestClient_ListUnread_ShortPageStops(t *testing.T) {
	var pages int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case strings.HasPrefix(r.URL.Path, "/reader/api/0/stream/contents/"):
			atomic.AddInt64(&pages, 1)
			// Short page with a leftover continuation token: the
			// stream is drained and the token must be ignored.
			writeJSON(t, w, streamPage(0, 3, "stale"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	articles, err := client.ListUnread(context.Background(), 50, "")
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(articles) != 3 {
		t.Errorf("got %d articles, want 3", len(articles))
	}
	if n := atomic.LoadInt64(&pages); n != 1 {
		t.Errorf("server saw %d pages, want 1", n)
	}
}

func TestClient_ListUnread_PageCapStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case strings.HasPrefix(r.URL.Path, "/reader/api/0/stream/contents/"):
			// Always a full page with a fresh token; a buggy server
			// that loops forever.
			writeJSON(t, w, streamPage(0, 100, "again"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, func(cfg *Config) { cfg.MaxPages = 3 })
	articles, err := client.ListUnread(context.Background(), 1000, "")
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(articles) != 300 {
		t.Errorf("got %d articles, want 300 (3 page cap)", len(articles))
	}
}

func TestClient_ListUnread_FeedScope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case strings.HasPrefix(r.URL.Path, "/reader/api/0/stream/contents/"):
			if !strings.HasSuffix(r.URL.Path, "feed/9") {
				t.Errorf("stream path = %s, want feed/9 suffix", r.URL.Path)
			}
			writeJSON(t, w, streamPage(0, 1, ""))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	if _, err := client.ListUnread(context.Background(), 5, "feed/9"); err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
}

func TestClient_GetArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case "/reader/api/0/stream/items/contents":
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if got := r.PostForm.Get("i"); got != "tag:google.com,2005:reader/item/000000000000004d" {
				t.Errorf("i = %q", got)
			}
			writeJSON(t, w, streamPage(77, 1, ""))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	article, err := client.GetArticle(context.Background(), "77")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if article.ID != "77" || article.Title != "Article 77" {
		t.Errorf("article = %+v", article)
	}
	if article.Link != "https://example.net/posts/77" {
		t.Errorf("link = %q", article.Link)
	}
}

func TestClient_GetArticle_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case "/reader/api/0/stream/items/contents":
			writeJSON(t, w, streamContentsResponse{})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	_, err := client.GetArticle(context.Background(), "404404")
	if kind := model.Kind(err); kind != model.ErrorTypeNotFound {
		t.Errorf("error kind = %s, want %s", kind, model.ErrorTypeNotFound)
	}
}

func TestClient_MarkRead_PartialFailure(t *testing.T) {
	var tokens int64
	failing := StreamItemID("2")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case "/reader/api/0/token":
			fmt.Fprintf(w, "edit-token-%d", atomic.AddInt64(&tokens, 1))
		case "/reader/api/0/edit-tag":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if !strings.HasPrefix(r.PostForm.Get("T"), "edit-token-") {
				t.Errorf("T = %q", r.PostForm.Get("T"))
			}
			if got := r.PostForm.Get("a"); got != stateRead {
				t.Errorf("a = %q, want %s", got, stateRead)
			}
			for _, id := range r.PostForm["i"] {
				if id == failing {
					http.Error(w, "NOK", http.StatusInternalServerError)
					return
				}
			}
			fmt.Fprint(w, "OK")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, func(cfg *Config) { cfg.MarkReadChunkSize = 1 })
	result, err := client.MarkRead(context.Background(), []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if got := strings.Join(result.Succeeded, ","); got != "1,3" {
		t.Errorf("Succeeded = %q, want 1,3", got)
	}
	if got := strings.Join(result.Failed, ","); got != "2" {
		t.Errorf("Failed = %q, want 2", got)
	}
	// Every chunk uses a freshly fetched action token.
	if n := atomic.LoadInt64(&tokens); n != 3 {
		t.Errorf("token fetches = %d, want 3", n)
	}
}

func TestClient_MarkStarred(t *testing.T) {
	var gotTag string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/ClientLogin":
			fmt.Fprintf(w, testLoginBody, "tok")
		case "/reader/api/0/token":
			fmt.Fprint(w, "edit-token")
		case "/reader/api/0/edit-tag":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			gotTag = r.PostForm.Get("a")
			fmt.Fprint(w, "OK")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	result, err := client.MarkStarred(context.Background(), []string{"5"})
	if err != nil {
		t.Fatalf("MarkStarred: %v", err)
	}
	if gotTag != stateStarred {
		t.Errorf("a = %q, want %s", gotTag, stateStarred)
	}
	if len(result.Succeeded) != 1 || len(result.Failed) != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestClient_RemoteErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/accounts/ClientLogin" {
			fmt.Fprintf(w, testLoginBody, "tok")
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	_, err := client.ListSubscriptions(context.Background())
	if err == nil {
		t.Fatal("expected remote service error")
	}
	var re *model.ReaderError
	if !errors.As(err, &re) {
		t.Fatalf("error %T is not a ReaderError", err)
	}
	if re.ErrorType != model.ErrorTypeRemoteService {
		t.Errorf("kind = %s", re.ErrorType)
	}
	if re.HTTPStatus != http.StatusBadGateway {
		t.Errorf("status = %d", re.HTTPStatus)
	}
}
