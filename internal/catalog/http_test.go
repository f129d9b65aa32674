package catalog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/internal/catalog"
)

type recorded struct {
	method string
	path   string
	query  url.Values
	form   url.Values
	cookie string
	agent  string
}

type catalogServer struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func (s *catalogServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	rec := recorded{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query(),
		form:   r.PostForm,
		agent:  r.UserAgent(),
	}
	if c, err := r.Cookie("session"); err == nil {
		rec.cookie = c.Value
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	status, body := s.status, s.body
	s.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (s *catalogServer) last(t *testing.T) recorded {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("no request recorded")
	}
	return s.requests[len(s.requests)-1]
}

func newClient(t *testing.T, srv *catalogServer) *catalog.HTTPClient {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := &catalog.Config{
		BaseURL:      ts.URL,
		ServerDomain: "api.example.org",
		UserAgent:    "curator-test",
		User:         "curator-bot",
		Password:     "secret",
		Timeout:      "5s",
	}
	c, err := catalog.NewHTTPClient(cfg, ts.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	return c
}

func edit() catalog.Edit {
	return catalog.Edit{
		Barcode:      "3017620422003",
		InsightID:    uuid.MustParse("6f1c8d2e-3b5a-4c7d-9e0f-1a2b3c4d5e6f"),
		ServerDomain: "api.example.org",
	}
}

func TestProduct(t *testing.T) {
	srv := &catalogServer{body: `{"status":1,"product":{"code":"3017620422003","brands_tags":["ferrero"]}}`}
	c := newClient(t, srv)

	p, err := c.Product(context.Background(), "3017620422003", "code", "brands_tags")
	if err != nil {
		t.Fatalf("Product() error = %v", err)
	}
	if p.String("code") != "3017620422003" {
		t.Errorf("code = %q", p.String("code"))
	}
	if got := p.Strings("brands_tags"); len(got) != 1 || got[0] != "ferrero" {
		t.Errorf("brands_tags = %v", got)
	}

	req := srv.last(t)
	if req.path != "/api/v0/product/3017620422003.json" {
		t.Errorf("path = %s", req.path)
	}
	if req.query.Get("fields") != "code,brands_tags" {
		t.Errorf("fields = %q", req.query.Get("fields"))
	}
	if req.agent != "curator-test" {
		t.Errorf("user agent = %q", req.agent)
	}
}

func TestProductUnknown(t *testing.T) {
	srv := &catalogServer{body: `{"status":0,"status_verbose":"product not found"}`}
	c := newClient(t, srv)

	p, err := c.Product(context.Background(), "0000000000000")
	if err != nil {
		t.Fatalf("Product() error = %v", err)
	}
	if p != nil {
		t.Errorf("Product() = %v, want nil", p)
	}
}

func TestWriteUsesServiceAccount(t *testing.T) {
	srv := &catalogServer{body: `{"status":1,"status_verbose":"fields saved"}`}
	c := newClient(t, srv)

	if err := c.AddLabel(context.Background(), edit(), "en:organic"); err != nil {
		t.Fatalf("AddLabel() error = %v", err)
	}

	req := srv.last(t)
	if req.method != http.MethodPost || req.path != "/cgi/product_jqm2.pl" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	if req.form.Get("add_labels") != "en:organic" {
		t.Errorf("add_labels = %q", req.form.Get("add_labels"))
	}
	if req.form.Get("user_id") != "curator-bot" || req.form.Get("password") != "secret" {
		t.Errorf("credentials = %q/%q", req.form.Get("user_id"), req.form.Get("password"))
	}
	if !strings.HasPrefix(req.form.Get("comment"), "[curator] Adding label tag, ID: 6f1c8d2e") {
		t.Errorf("comment = %q", req.form.Get("comment"))
	}
}

func TestWriteOnBehalfOfUser(t *testing.T) {
	srv := &catalogServer{body: `{"status":1}`}
	c := newClient(t, srv)

	e := edit()
	e.Auth = &catalog.Auth{SessionCookie: "user_id&alice&user_session&abc"}
	if err := c.UpdateQuantity(context.Background(), e, "500 g"); err != nil {
		t.Fatalf("UpdateQuantity() error = %v", err)
	}

	req := srv.last(t)
	if req.cookie != "user_id&alice&user_session&abc" {
		t.Errorf("cookie = %q", req.cookie)
	}
	if req.form.Has("user_id") {
		t.Error("service account sent alongside session cookie")
	}

	e.Auth = &catalog.Auth{User: "bob", Password: "pw"}
	if err := c.AddStore(context.Background(), e, "Carrefour"); err != nil {
		t.Fatalf("AddStore() error = %v", err)
	}
	if got := srv.last(t).form.Get("user_id"); got != "bob" {
		t.Errorf("user_id = %q, want bob", got)
	}
}

func TestSelectRotateImage(t *testing.T) {
	srv := &catalogServer{body: `{"status":"status ok"}`}
	c := newClient(t, srv)

	rotate := 90
	if err := c.SelectRotateImage(context.Background(), edit(), "2", "front_fr", &rotate); err != nil {
		t.Fatalf("SelectRotateImage() error = %v", err)
	}

	req := srv.last(t)
	if req.path != "/cgi/product_image_crop.pl" {
		t.Errorf("path = %s", req.path)
	}
	if req.form.Get("imgid") != "2" || req.form.Get("id") != "front_fr" || req.form.Get("angle") != "90" {
		t.Errorf("form = %v", req.form)
	}
}

func TestWriteErrors(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		srv := &catalogServer{body: `{"status":0,"status_verbose":"no code or invalid code"}`}
		c := newClient(t, srv)

		err := c.AddBrand(context.Background(), edit(), "Ferrero")
		var we *catalog.WriteError
		if !errors.As(err, &we) {
			t.Fatalf("error = %v, want WriteError", err)
		}
		if we.Reason != "no code or invalid code" || we.Barcode != "3017620422003" {
			t.Errorf("WriteError = %+v", we)
		}
	})

	t.Run("http status", func(t *testing.T) {
		srv := &catalogServer{status: http.StatusBadGateway, body: "upstream\n  unavailable"}
		c := newClient(t, srv)

		err := c.AddCategory(context.Background(), edit(), "en:snacks")
		var he *catalog.HTTPError
		if !errors.As(err, &he) {
			t.Fatalf("error = %v, want HTTPError", err)
		}
		if he.StatusCode != http.StatusBadGateway || he.Snippet != "upstream unavailable" {
			t.Errorf("HTTPError = %+v", he)
		}
	})

	t.Run("long multibyte body", func(t *testing.T) {
		srv := &catalogServer{status: http.StatusInternalServerError, body: "a" + strings.Repeat("é", 150)}
		c := newClient(t, srv)

		err := c.AddStore(context.Background(), edit(), "Carrefour")
		var he *catalog.HTTPError
		if !errors.As(err, &he) {
			t.Fatalf("error = %v, want HTTPError", err)
		}
		if !utf8.ValidString(he.Snippet) || !strings.HasSuffix(he.Snippet, "...") {
			t.Errorf("snippet = %q, want valid UTF-8 ending in ...", he.Snippet)
		}
		if len(he.Snippet) > 203 {
			t.Errorf("snippet length = %d", len(he.Snippet))
		}
	})
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_CATALOG_RATE", "2.5")

	cfg := catalog.Config{}
	if err := cfg.Finalize(&catalog.Env{RateLimit: "TEST_CATALOG_RATE"}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.RateLimit != 2.5 || cfg.Burst != 1 || cfg.Timeout != "30s" {
		t.Errorf("config = %+v", cfg)
	}

	bad := catalog.Config{BaseURL: "not a url"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected invalid base_url error")
	}
}
