package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/curator/internal/catalog"
)

// PackagerCode appends a packager (EMB) code to the product's code list.
// Codes are compared in normalized form, so "EMB 35069" matches "emb35069a".
type PackagerCode struct {
	Base
	client catalog.Client
}

func (a *PackagerCode) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	code := req.Insight.ValueString()

	product, err := a.client.Product(ctx, req.Insight.Barcode, "emb_codes")
	if err != nil {
		return Result{}, fmt.Errorf("read emb_codes: %w", err)
	}
	if product == nil {
		return MissingProduct, nil
	}

	var codes []string
	if raw := product.String("emb_codes"); raw != "" {
		for c := range strings.SplitSeq(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codes = append(codes, c)
			}
		}
	}

	if embCodeExists(code, codes) {
		return AlreadyAnnotated, nil
	}

	codes = append(codes, code)
	if err := a.client.UpdateEmbCodes(ctx, req.Edit(), codes); err != nil {
		return Result{}, fmt.Errorf("update emb_codes: %w", err)
	}
	return Updated, nil
}

func embCodeExists(code string, codes []string) bool {
	target := catalog.NormalizeEmbCode(code)
	for _, c := range codes {
		if catalog.NormalizeEmbCode(c) == target {
			return true
		}
	}
	return false
}

// ProductWeight sets the quantity when the product has none.
type ProductWeight struct {
	Base
	client catalog.Client
}

func (a *ProductWeight) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	return applyIfAbsent(ctx, a.client, req, "quantity", func(edit catalog.Edit) error {
		return a.client.UpdateQuantity(ctx, edit, req.Insight.ValueString())
	})
}

// ExpirationDate sets the expiration date when the product has none.
type ExpirationDate struct {
	Base
	client catalog.Client
}

func (a *ExpirationDate) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	return applyIfAbsent(ctx, a.client, req, "expiration_date", func(edit catalog.Edit) error {
		return a.client.UpdateExpirationDate(ctx, edit, req.Insight.ValueString())
	})
}

// applyIfAbsent writes a single-valued field; any non-empty current value
// counts as already annotated.
func applyIfAbsent(
	ctx context.Context,
	client catalog.Client,
	req Request,
	field string,
	write func(catalog.Edit) error,
) (Result, error) {
	product, err := client.Product(ctx, req.Insight.Barcode, field)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", field, err)
	}
	if product == nil {
		return MissingProduct, nil
	}

	if product.String(field) != "" {
		return AlreadyAnnotated, nil
	}

	if err := write(req.Edit()); err != nil {
		return Result{}, fmt.Errorf("update %s: %w", field, err)
	}
	return Updated, nil
}
