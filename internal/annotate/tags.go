package annotate

import (
	"context"
	"fmt"
	"slices"

	"github.com/JaimeStill/curator/internal/catalog"
)

// Label adds a label tag.
type Label struct {
	Base
	client catalog.Client
}

func (a *Label) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	tag := req.Insight.ValueTagString()
	return applyTag(ctx, a.client, req, "labels_tags", tag, func(edit catalog.Edit) error {
		return a.client.AddLabel(ctx, edit, tag)
	})
}

// Category adds a category tag.
type Category struct {
	Base
	client catalog.Client
}

func (a *Category) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	tag := req.Insight.ValueTagString()
	return applyTag(ctx, a.client, req, "categories_tags", tag, func(edit catalog.Edit) error {
		return a.client.AddCategory(ctx, edit, tag)
	})
}

// Store adds the store name; presence is checked against the store tags.
type Store struct {
	Base
	client catalog.Client
}

func (a *Store) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	return applyTag(ctx, a.client, req, "stores_tags", tagOf(req), func(edit catalog.Edit) error {
		return a.client.AddStore(ctx, edit, req.Insight.ValueString())
	})
}

// Packaging adds the packaging value; presence is checked against the packaging tags.
type Packaging struct {
	Base
	client catalog.Client
}

func (a *Packaging) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	return applyTag(ctx, a.client, req, "packaging_tags", tagOf(req), func(edit catalog.Edit) error {
		return a.client.AddPackaging(ctx, edit, req.Insight.ValueString())
	})
}

// Brand adds the brand name; presence is checked against the brand tags.
type Brand struct {
	Base
	client catalog.Client
}

func (a *Brand) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	return applyTag(ctx, a.client, req, "brands_tags", tagOf(req), func(edit catalog.Edit) error {
		return a.client.AddBrand(ctx, edit, req.Insight.ValueString())
	})
}

// tagOf prefers the stored value tag and derives one from the value otherwise.
func tagOf(req Request) string {
	if tag := req.Insight.ValueTagString(); tag != "" {
		return tag
	}
	return catalog.Tag(req.Insight.ValueString())
}

func applyTag(
	ctx context.Context,
	client catalog.Client,
	req Request,
	field, tag string,
	write func(catalog.Edit) error,
) (Result, error) {
	product, err := client.Product(ctx, req.Insight.Barcode, field)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", field, err)
	}
	if product == nil {
		return MissingProduct, nil
	}

	if slices.Contains(product.Strings(field), tag) {
		return AlreadyAnnotated, nil
	}

	if err := write(req.Edit()); err != nil {
		return Result{}, fmt.Errorf("update %s: %w", field, err)
	}
	return Updated, nil
}
