package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/curator/internal/catalog"
)

// Processability is the outcome of an automatic-processability evaluation.
type Processability int

const (
	// Indeterminate means the evaluation could not complete; it is always
	// returned together with an error.
	Indeterminate Processability = iota
	NotProcessable
	Processable
)

func (p Processability) String() string {
	switch p {
	case NotProcessable:
		return "not_processable"
	case Processable:
		return "processable"
	default:
		return "indeterminate"
	}
}

// selectedRoles are the image role prefixes whose selection vouches for an image.
var selectedRoles = []string{"nutrition", "front", "ingredients"}

const day = 24 * time.Hour

// Evaluator decides whether an image-grounded insight is safe to apply
// without human review.
type Evaluator struct {
	client catalog.Client
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator reading image metadata from client.
func NewEvaluator(client catalog.Client, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		client: client,
		logger: logger.With("system", "evaluator"),
	}
}

// Evaluate reports whether the insight derived from sourceImage on the
// product barcode can be processed automatically.
//
// The image qualifies when no other image of the product was uploaded more
// than maxAge after it (compared by UTC calendar date) or when it is
// currently selected for one of the nutrition, front, or ingredients roles.
// A missing source image or a non-numeric image id is NotProcessable. A
// missing product, image collection, or image entry yields Indeterminate
// with an *InvalidInsightError.
func (e *Evaluator) Evaluate(ctx context.Context, barcode, sourceImage string, maxAge time.Duration) (Processability, error) {
	if sourceImage == "" {
		return NotProcessable, nil
	}

	imageID, ok := catalog.ImageID(sourceImage)
	if !ok {
		return NotProcessable, nil
	}

	product, err := e.client.Product(ctx, barcode, "images")
	if err != nil {
		return Indeterminate, fmt.Errorf("read images for %s: %w", barcode, err)
	}
	if product == nil {
		return Indeterminate, &InvalidInsightError{Barcode: barcode, Reason: "product not found"}
	}

	images, ok := product.Images()
	if !ok {
		return Indeterminate, &InvalidInsightError{Barcode: barcode, Reason: "product has no images"}
	}
	if _, ok := images[imageID]; !ok {
		return Indeterminate, &InvalidInsightError{Barcode: barcode, ImageID: imageID, Reason: "image not found"}
	}

	recent, err := isRecent(images, imageID, maxAge)
	if err != nil {
		return Indeterminate, &InvalidInsightError{Barcode: barcode, ImageID: imageID, Reason: err.Error()}
	}
	if recent {
		return Processable, nil
	}

	if role, ok := selectedRole(images, imageID); ok {
		e.logger.Debug("image selected for role", "barcode", barcode, "image_id", imageID, "role", role)
		return Processable, nil
	}

	e.logger.Debug("more recent image exists", "barcode", barcode, "image_id", imageID)
	return NotProcessable, nil
}

// IsAutomaticallyProcessable reduces Evaluate to a boolean, keeping its error.
func (e *Evaluator) IsAutomaticallyProcessable(ctx context.Context, barcode, sourceImage string, maxAge time.Duration) (bool, error) {
	p, err := e.Evaluate(ctx, barcode, sourceImage, maxAge)
	if err != nil {
		return false, err
	}
	return p == Processable, nil
}

// isRecent compares the upload date of imageID with every other uploaded
// image. Only numeric keys are uploads; the rest are role selections.
func isRecent(images catalog.Images, imageID string, maxAge time.Duration) (bool, error) {
	var target time.Time
	others := make([]time.Time, 0, len(images))

	for key, meta := range images {
		if id, ok := catalog.ImageID(key); !ok || id != key {
			continue
		}
		uploaded, err := meta.UploadedAt()
		if err != nil {
			return false, fmt.Errorf("image %s: %w", key, err)
		}
		date := time.Unix(uploaded, 0).UTC().Truncate(day)
		if key == imageID {
			target = date
			continue
		}
		others = append(others, date)
	}

	for _, other := range others {
		if other.Sub(target) > maxAge {
			return false, nil
		}
	}
	return true, nil
}

func selectedRole(images catalog.Images, imageID string) (string, bool) {
	keys := slices.Sorted(maps.Keys(images))
	for _, prefix := range selectedRoles {
		for _, key := range keys {
			if strings.HasPrefix(key, prefix) && images[key].ImgID() == imageID {
				return prefix, true
			}
		}
	}
	return "", false
}
