// Package catalog is the client side of the product catalog: projection
// reads of product records and the per-field edits that apply accepted
// insights.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Product is a projection of a catalog record, decoded from JSON.
// A nil Product means the barcode is unknown to the catalog.
type Product map[string]any

// Has reports whether the projection contains key.
func (p Product) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string value of key, or "" when absent or not a string.
func (p Product) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Strings returns the string list stored under key. Non-string items are skipped.
func (p Product) Strings(key string) []string {
	raw, ok := p[key].([]any)
	if !ok {
		if typed, ok := p[key].([]string); ok {
			return typed
		}
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Images returns the image metadata keyed by image id or role key
// ("front_en", "nutrition_fr", ...). ok is false when the projection has no
// images field.
func (p Product) Images() (Images, bool) {
	raw, ok := p["images"]
	if !ok {
		return nil, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}

	images := make(Images, len(m))
	for key, v := range m {
		if meta, ok := v.(map[string]any); ok {
			images[key] = ImageMeta(meta)
		}
	}
	return images, true
}

// Images maps image keys to their metadata.
type Images map[string]ImageMeta

// ImageMeta is the metadata of one uploaded or selected image.
type ImageMeta map[string]any

// ImgID returns the uploaded image a role key points at, as a string.
func (m ImageMeta) ImgID() string {
	return stringify(m["imgid"])
}

// UploadedAt returns the upload time as Unix seconds.
func (m ImageMeta) UploadedAt() (int64, error) {
	v, ok := m["uploaded_t"]
	if !ok {
		return 0, fmt.Errorf("uploaded_t missing")
	}
	s := stringify(v)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid uploaded_t %q: %w", s, err)
	}
	return n, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
