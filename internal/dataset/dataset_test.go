package dataset_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/JaimeStill/curator/internal/dataset"
	"github.com/JaimeStill/curator/pkg/lifecycle"
	"github.com/JaimeStill/curator/pkg/storage"
)

type blob struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

type memStorage struct {
	mu    sync.Mutex
	blobs map[string]blob
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string]blob)}
}

func (m *memStorage) Start(*lifecycle.Coordinator) error { return nil }
func (m *memStorage) Ready() bool                         { return true }

func (m *memStorage) Upload(_ context.Context, key string, r io.Reader, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob{data: data, contentType: contentType, metadata: metadata}
	return nil
}

func (m *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (m *memStorage) Properties(_ context.Context, key string) (*storage.Properties, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Properties{
		Key:           key,
		ContentType:   b.contentType,
		ContentLength: int64(len(b.data)),
		Metadata:      b.metadata,
	}, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

type publisher struct {
	mu       sync.Mutex
	etag     string
	modified string
	unsized  bool
	body     string
	gets     int
}

func (p *publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.etag != "" {
		w.Header().Set("ETag", p.etag)
	}
	if p.modified != "" {
		w.Header().Set("Last-Modified", p.modified)
	}
	if !p.unsized {
		w.Header().Set("Content-Length", strconv.Itoa(len(p.body)))
	}
	w.Header().Set("Content-Type", "application/gzip")
	if r.Method == http.MethodGet {
		p.gets++
		io.WriteString(w, p.body)
	}
}

func (p *publisher) publish(etag, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.etag, p.body = etag, body
}

func newRemote(t *testing.T, url string, store storage.System, maxSize string) *dataset.Remote {
	t.Helper()
	cfg := &dataset.Config{URL: url, MaxSize: maxSize}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	r, err := dataset.NewRemote(cfg, store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	return r
}

func TestRemoteRefreshCycle(t *testing.T) {
	pub := &publisher{}
	pub.publish(`"v1"`, "first dump")
	srv := httptest.NewServer(pub)
	defer srv.Close()

	store := newMemStorage()
	r := newRemote(t, srv.URL+"/products.jsonl.gz", store, "1MB")
	ctx := context.Background()

	changed, err := r.HasChanged(ctx)
	if err != nil || !changed {
		t.Fatalf("HasChanged with no snapshot = %v, %v; want true", changed, err)
	}

	if err := r.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	changed, err = r.HasChanged(ctx)
	if err != nil || changed {
		t.Fatalf("HasChanged after fetch = %v, %v; want false", changed, err)
	}

	pub.publish(`"v2"`, "second dump")
	changed, err = r.HasChanged(ctx)
	if err != nil || !changed {
		t.Fatalf("HasChanged after publish = %v, %v; want true", changed, err)
	}

	if err := r.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	rc, err := store.Download(ctx, "products/openfoodfacts-products.jsonl.gz")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second dump" {
		t.Errorf("stored = %q, want second dump", data)
	}
}

func TestRemoteWithoutETag(t *testing.T) {
	ctx := context.Background()

	t.Run("last modified", func(t *testing.T) {
		pub := &publisher{modified: "Mon, 05 Oct 2026 02:00:00 GMT"}
		pub.publish("", "dump")
		srv := httptest.NewServer(pub)
		defer srv.Close()

		r := newRemote(t, srv.URL, newMemStorage(), "1MB")
		if err := r.Fetch(ctx); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		changed, err := r.HasChanged(ctx)
		if err != nil || changed {
			t.Fatalf("HasChanged after fetch = %v, %v; want false", changed, err)
		}

		pub.mu.Lock()
		pub.modified = "Tue, 06 Oct 2026 02:00:00 GMT"
		pub.mu.Unlock()
		changed, err = r.HasChanged(ctx)
		if err != nil || !changed {
			t.Errorf("HasChanged after republish = %v, %v; want true", changed, err)
		}
	})

	t.Run("no version headers", func(t *testing.T) {
		pub := &publisher{unsized: true}
		pub.publish("", "dump")
		srv := httptest.NewServer(pub)
		defer srv.Close()

		r := newRemote(t, srv.URL, newMemStorage(), "1MB")
		if err := r.Fetch(ctx); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		changed, err := r.HasChanged(ctx)
		if err != nil || !changed {
			t.Errorf("HasChanged = %v, %v; want true", changed, err)
		}
	})
}

func TestRemoteFetchTooLarge(t *testing.T) {
	pub := &publisher{}
	pub.publish(`"big"`, strings.Repeat("x", 2048))
	srv := httptest.NewServer(pub)
	defer srv.Close()

	store := newMemStorage()
	r := newRemote(t, srv.URL, store, "1KB")

	err := r.Fetch(context.Background())
	if !errors.Is(err, dataset.ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
	if ok, _ := store.Exists(context.Background(), "products/openfoodfacts-products.jsonl.gz"); ok {
		t.Error("oversized dataset was stored")
	}
}

func TestRemoteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	r := newRemote(t, srv.URL, newMemStorage(), "1MB")
	if _, err := r.HasChanged(context.Background()); err == nil {
		t.Error("HasChanged: expected error")
	}
	if err := r.Fetch(context.Background()); err == nil {
		t.Error("Fetch: expected error")
	}
}

func TestNewRemoteRequiresURL(t *testing.T) {
	cfg := &dataset.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := dataset.NewRemote(cfg, newMemStorage(), nil, slog.Default()); !errors.Is(err, dataset.ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_DATASET_URL", "https://static.example.org/dump.jsonl.gz")

	cfg := &dataset.Config{}
	if err := cfg.Finalize(&dataset.Env{URL: "TEST_DATASET_URL"}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("expected enabled after env override")
	}
	if cfg.MaxSizeBytes() <= 0 {
		t.Errorf("MaxSizeBytes = %d", cfg.MaxSizeBytes())
	}

	bad := []dataset.Config{
		{URL: "ftp://example.org/dump"},
		{MaxSize: "lots"},
		{Timeout: "forever"},
	}
	for _, c := range bad {
		if err := c.Finalize(nil); err == nil {
			t.Errorf("Finalize(%+v): expected error", c)
		}
	}
}
