package annotate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/catalog/catalogtest"
)

const maxAge = 30 * 24 * time.Hour

var base = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func upload(at time.Time) map[string]any {
	return map[string]any{"uploaded_t": float64(at.Unix())}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		product catalog.Product
		source  string
		maxAge  time.Duration
		want    annotate.Processability
	}{
		{
			name:    "no source image",
			product: catalog.Product{"images": map[string]any{}},
			source:  "",
			maxAge:  maxAge,
			want:    annotate.NotProcessable,
		},
		{
			name:    "non numeric image id",
			product: catalog.Product{"images": map[string]any{}},
			source:  "/123/front_fr.400.jpg",
			maxAge:  maxAge,
			want:    annotate.NotProcessable,
		},
		{
			name: "only image",
			product: catalog.Product{"images": map[string]any{
				"1": upload(base),
			}},
			source: "/123/1.jpg",
			maxAge: maxAge,
			want:   annotate.Processable,
		},
		{
			name: "newer image within max age",
			product: catalog.Product{"images": map[string]any{
				"1": upload(base),
				"2": upload(base.Add(10 * 24 * time.Hour)),
			}},
			source: "/123/1.jpg",
			maxAge: maxAge,
			want:   annotate.Processable,
		},
		{
			name: "older images only",
			product: catalog.Product{"images": map[string]any{
				"1": upload(base.Add(-400 * 24 * time.Hour)),
				"2": upload(base),
			}},
			source: "/123/2.jpg",
			maxAge: maxAge,
			want:   annotate.Processable,
		},
		{
			name: "newer image beyond max age",
			product: catalog.Product{"images": map[string]any{
				"1": upload(base),
				"2": upload(base.Add(40 * 24 * time.Hour)),
			}},
			source: "/123/1.jpg",
			maxAge: maxAge,
			want:   annotate.NotProcessable,
		},
		{
			name: "selected front image regardless of age",
			product: catalog.Product{"images": map[string]any{
				"1":        upload(base),
				"2":        upload(base.Add(40 * 24 * time.Hour)),
				"front_fr": map[string]any{"imgid": "1"},
			}},
			source: "/123/1.jpg",
			maxAge: maxAge,
			want:   annotate.Processable,
		},
		{
			name: "other role does not count",
			product: catalog.Product{"images": map[string]any{
				"1":            upload(base),
				"2":            upload(base.Add(40 * 24 * time.Hour)),
				"packaging_fr": map[string]any{"imgid": "1"},
				"front_fr":     map[string]any{"imgid": "2"},
			}},
			source: "/123/1.jpg",
			maxAge: maxAge,
			want:   annotate.NotProcessable,
		},
		{
			name: "compared by calendar date",
			product: catalog.Product{"images": map[string]any{
				"1": upload(time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC)),
				"2": upload(time.Date(2024, 1, 11, 23, 0, 0, 0, time.UTC)),
			}},
			source: "/123/1.jpg",
			maxAge: 24 * time.Hour,
			want:   annotate.Processable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := catalogtest.New(map[string]catalog.Product{"123": tt.product})
			e := annotate.NewEvaluator(fake, discard())

			got, err := e.Evaluate(context.Background(), "123", tt.source, tt.maxAge)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluateInvalidInsight(t *testing.T) {
	tests := []struct {
		name     string
		products map[string]catalog.Product
	}{
		{"missing product", nil},
		{"no images", map[string]catalog.Product{"123": {"code": "123"}}},
		{"image not found", map[string]catalog.Product{"123": {"images": map[string]any{
			"2": upload(base),
		}}}},
		{"bad upload time", map[string]catalog.Product{"123": {"images": map[string]any{
			"1": map[string]any{"uploaded_t": "soon"},
			"2": upload(base),
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := annotate.NewEvaluator(catalogtest.New(tt.products), discard())

			got, err := e.Evaluate(context.Background(), "123", "/123/1.jpg", maxAge)
			if got != annotate.Indeterminate {
				t.Errorf("Evaluate = %s, want indeterminate", got)
			}
			if !errors.Is(err, annotate.ErrInvalidInsight) {
				t.Fatalf("error = %v, want ErrInvalidInsight", err)
			}

			var invalid *annotate.InvalidInsightError
			if !errors.As(err, &invalid) || invalid.Barcode != "123" {
				t.Errorf("error = %#v, want InvalidInsightError for 123", err)
			}

			ok, err := e.IsAutomaticallyProcessable(context.Background(), "123", "/123/1.jpg", maxAge)
			if ok || err == nil {
				t.Errorf("IsAutomaticallyProcessable = %v, %v; want false with error", ok, err)
			}
		})
	}
}
