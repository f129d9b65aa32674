// Package catalogtest provides an in-memory catalog.Client for tests.
package catalogtest

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/JaimeStill/curator/internal/catalog"
)

// Write records one edit received by a Fake.
type Write struct {
	Op    string
	Edit  catalog.Edit
	Value string
}

// Fake stores products in memory and applies edits to them so that a
// repeated edit observes its own earlier effect.
type Fake struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	writes   []Write
	reads    int

	// Err, when set, is returned by every write.
	Err error
}

// New returns a Fake holding the given products keyed by barcode.
func New(products map[string]catalog.Product) *Fake {
	f := &Fake{products: make(map[string]catalog.Product)}
	for code, p := range products {
		f.products[code] = maps.Clone(p)
	}
	return f
}

// SetProduct replaces the stored product for barcode.
func (f *Fake) SetProduct(barcode string, p catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[barcode] = maps.Clone(p)
}

// Writes returns the edits received so far.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// Reads returns the number of product reads.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *Fake) Product(_ context.Context, barcode string, fields ...string) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++

	p, ok := f.products[barcode]
	if !ok {
		return nil, nil
	}
	if len(fields) == 0 {
		return maps.Clone(p), nil
	}

	out := catalog.Product{}
	for _, field := range fields {
		if v, ok := p[field]; ok {
			out[field] = v
		}
	}
	return out, nil
}

func (f *Fake) UpdateEmbCodes(_ context.Context, edit catalog.Edit, codes []string) error {
	joined := strings.Join(codes, ",")
	return f.apply("emb_codes", edit, joined, func(p catalog.Product) {
		p["emb_codes"] = joined
	})
}

func (f *Fake) AddLabel(_ context.Context, edit catalog.Edit, tag string) error {
	return f.apply("add_labels", edit, tag, appendTag("labels_tags", tag))
}

func (f *Fake) AddCategory(_ context.Context, edit catalog.Edit, tag string) error {
	return f.apply("add_categories", edit, tag, appendTag("categories_tags", tag))
}

func (f *Fake) UpdateQuantity(_ context.Context, edit catalog.Edit, quantity string) error {
	return f.apply("quantity", edit, quantity, func(p catalog.Product) {
		p["quantity"] = quantity
	})
}

func (f *Fake) UpdateExpirationDate(_ context.Context, edit catalog.Edit, date string) error {
	return f.apply("expiration_date", edit, date, func(p catalog.Product) {
		p["expiration_date"] = date
	})
}

func (f *Fake) AddBrand(_ context.Context, edit catalog.Edit, brand string) error {
	return f.apply("add_brands", edit, brand, appendTag("brands_tags", catalog.Tag(brand)))
}

func (f *Fake) AddStore(_ context.Context, edit catalog.Edit, store string) error {
	return f.apply("add_stores", edit, store, appendTag("stores_tags", catalog.Tag(store)))
}

func (f *Fake) AddPackaging(_ context.Context, edit catalog.Edit, packaging string) error {
	return f.apply("add_packaging", edit, packaging, appendTag("packaging_tags", catalog.Tag(packaging)))
}

func (f *Fake) SaveIngredients(_ context.Context, edit catalog.Edit, lang, text string) error {
	return f.apply("ingredients_text_"+lang, edit, text, func(p catalog.Product) {
		p["ingredients_text_"+lang] = text
	})
}

func (f *Fake) SelectRotateImage(_ context.Context, edit catalog.Edit, imageID, imageKey string, _ *int) error {
	return f.apply("select_image", edit, imageKey+"="+imageID, func(p catalog.Product) {
		images, _ := p["images"].(map[string]any)
		if images == nil {
			images = map[string]any{}
			p["images"] = images
		}
		images[imageKey] = map[string]any{"imgid": imageID}
	})
}

func (f *Fake) apply(op string, edit catalog.Edit, value string, mutate func(catalog.Product)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}

	f.writes = append(f.writes, Write{Op: op, Edit: edit, Value: value})
	if p, ok := f.products[edit.Barcode]; ok {
		mutate(p)
	}
	return nil
}

func appendTag(field, tag string) func(catalog.Product) {
	return func(p catalog.Product) {
		existing := p.Strings(field)
		tags := make([]any, 0, len(existing)+1)
		for _, t := range existing {
			tags = append(tags, t)
		}
		p[field] = append(tags, tag)
	}
}
