package annotate

import (
	"context"
	"fmt"
	"math"

	"github.com/JaimeStill/curator/internal/catalog"
)

// NutritionImage selects the insight's source image as the nutrition image
// for the language in ValueTag, rotated by data["rotation"] when present.
type NutritionImage struct {
	Base
	client catalog.Client
}

func (a *NutritionImage) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	product, err := a.client.Product(ctx, req.Insight.Barcode, "code", "images")
	if err != nil {
		return Result{}, fmt.Errorf("read images: %w", err)
	}
	if product == nil {
		return MissingProduct, nil
	}

	imageID, ok := catalog.ImageID(req.Insight.SourceImageString())
	if !ok {
		return InvalidImage, nil
	}

	imageKey := "nutrition_" + req.Insight.ValueTagString()
	if images, ok := product.Images(); ok {
		if meta, ok := images[imageKey]; ok && meta.ImgID() == imageID {
			return AlreadyAnnotated, nil
		}
	}

	if err := a.client.SelectRotateImage(ctx, req.Edit(), imageID, imageKey, rotation(req.Insight.Data)); err != nil {
		return Result{}, fmt.Errorf("select image: %w", err)
	}
	return Updated, nil
}

// rotation reads data["rotation"] as whole degrees. JSON numbers decode as float64.
func rotation(data map[string]any) *int {
	var deg int
	switch v := data["rotation"].(type) {
	case float64:
		deg = int(math.Round(v))
	case int:
		deg = v
	default:
		return nil
	}
	return &deg
}

// NutritionTableStructure stores caller-supplied table annotations on the
// insight itself. It never contacts the catalog.
type NutritionTableStructure struct{}

func (NutritionTableStructure) DataRequired() bool {
	return true
}

func (NutritionTableStructure) ProcessAnnotation(ctx context.Context, req Request) (Result, error) {
	if req.Insight.Data == nil {
		req.Insight.Data = make(map[string]any)
	}
	req.Insight.Data["annotation"] = req.Data

	if err := req.Store.Save(ctx, req.Insight); err != nil {
		return Result{}, fmt.Errorf("save table structure: %w", err)
	}
	return Saved, nil
}
