package annotate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/curator/internal/catalog"
)

// IngredientSpellcheck replaces an ingredient list with its corrected text.
// The insight stores the text it was computed from; if the product's list
// has changed since, the correction is stale and UpdatedProduct is returned
// without writing.
type IngredientSpellcheck struct {
	Base
	client catalog.Client
	logger *slog.Logger
}

func (a *IngredientSpellcheck) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	lang, ok := req.Insight.DataString("lang")
	if !ok || lang == "" {
		return Result{}, fmt.Errorf("%w: spellcheck insight %s has no lang", ErrMalformedInsight, req.Insight.ID)
	}
	original, ok := req.Insight.DataString("text")
	if !ok {
		return Result{}, fmt.Errorf("%w: spellcheck insight %s has no text", ErrMalformedInsight, req.Insight.ID)
	}
	corrected, ok := req.Insight.DataString("corrected")
	if !ok {
		return Result{}, fmt.Errorf("%w: spellcheck insight %s has no correction", ErrMalformedInsight, req.Insight.ID)
	}

	field := "ingredients_text_" + lang
	product, err := a.client.Product(ctx, req.Insight.Barcode, field)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", field, err)
	}
	if product == nil {
		return MissingProduct, nil
	}

	if current, _ := product[field].(string); current != original || !product.Has(field) {
		a.logger.Warn(
			"ingredients changed since spellcheck",
			"barcode", req.Insight.Barcode,
			"insight_id", req.Insight.ID,
			"lang", lang,
		)
		return UpdatedProduct, nil
	}

	if err := a.client.SaveIngredients(ctx, req.Edit(), lang, corrected); err != nil {
		return Result{}, fmt.Errorf("save ingredients: %w", err)
	}
	return Updated, nil
}
