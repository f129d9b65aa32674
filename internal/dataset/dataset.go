// Package dataset keeps a copy of the external product dataset dump in blob
// storage and refreshes it when the published dump changes.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/curator/pkg/formatting"
	"github.com/JaimeStill/curator/pkg/storage"
)

// Blob metadata keys. versionKey holds the token HasChanged compares;
// etagKey keeps the raw ETag when the publisher sent one.
const (
	etagKey    = "source_etag"
	versionKey = "source_version"
)

// Snapshot is the locally held copy of an external dataset.
type Snapshot interface {
	// HasChanged reports whether the published dataset differs from the held copy.
	HasChanged(ctx context.Context) (bool, error)
	// Fetch replaces the held copy with the published dataset.
	Fetch(ctx context.Context) error
}

// Remote is a Snapshot of a dataset published over HTTP and held in blob storage.
// Changes are detected by comparing the published version with the one
// recorded on the stored blob. The version is the ETag, or Last-Modified
// and Content-Length when the publisher sends no ETag.
type Remote struct {
	url     string
	key     string
	maxSize int64
	http    *http.Client
	store   storage.System
	logger  *slog.Logger
}

// NewRemote creates a Remote from cfg. A nil httpClient uses a client with
// the configured timeout.
func NewRemote(cfg *Config, store storage.System, httpClient *http.Client, logger *slog.Logger) (*Remote, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TimeoutDuration()}
	}

	return &Remote{
		url:     cfg.URL,
		key:     cfg.Key,
		maxSize: cfg.MaxSizeBytes(),
		http:    httpClient,
		store:   store,
		logger:  logger.With("system", "dataset"),
	}, nil
}

func (r *Remote) HasChanged(ctx context.Context) (bool, error) {
	published, err := r.publishedVersion(ctx)
	if err != nil {
		return false, err
	}
	if published == "" {
		r.logger.Warn("dataset has no version headers, assuming changed", "url", r.url)
		return true, nil
	}

	props, err := r.store.Properties(ctx, r.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("stored snapshot: %w", err)
	}

	return props.Metadata[versionKey] != published, nil
}

func (r *Remote) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("download dataset: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("download dataset: unexpected status %s", resp.Status)
	}
	if resp.ContentLength > r.maxSize {
		return fmt.Errorf("%w: %s > %s", ErrTooLarge,
			formatting.FormatBytes(resp.ContentLength, 1),
			formatting.FormatBytes(r.maxSize, 1))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	metadata := map[string]string{}
	if etag := resp.Header.Get("ETag"); etag != "" {
		metadata[etagKey] = etag
	}
	if v := version(resp.Header); v != "" {
		metadata[versionKey] = v
	}

	body := &limitedReader{r: resp.Body, remaining: r.maxSize}
	if err := r.store.Upload(ctx, r.key, body, contentType, metadata); err != nil {
		return fmt.Errorf("store dataset: %w", err)
	}

	r.logger.Info(
		"dataset snapshot stored",
		"key", r.key,
		"size", formatting.FormatBytes(body.read, 1),
		"version", metadata[versionKey],
	)
	return nil
}

func (r *Remote) publishedVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("check dataset: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("check dataset: unexpected status %s", resp.Status)
	}
	return version(resp.Header), nil
}

// version identifies a published dump from its response headers. An empty
// result means the publisher gave nothing to compare.
func version(h http.Header) string {
	if etag := h.Get("ETag"); etag != "" {
		return etag
	}
	modified, length := h.Get("Last-Modified"), h.Get("Content-Length")
	if modified == "" && length == "" {
		return ""
	}
	return "modified=" + modified + ";length=" + length
}

// limitedReader fails with ErrTooLarge once more than remaining bytes are read,
// so an oversized stream aborts the upload instead of being truncated.
type limitedReader struct {
	r         io.Reader
	remaining int64
	read      int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// Stored returns the properties of the held snapshot, or storage.ErrNotFound
// before the first fetch.
func (r *Remote) Stored(ctx context.Context) (*storage.Properties, error) {
	return r.store.Properties(ctx, r.key)
}
