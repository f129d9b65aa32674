package annotate

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInsight marks insights whose premises cannot be resolved
	// against the catalog (missing product, images, or image entry).
	ErrInvalidInsight = errors.New("invalid insight")
	// ErrMalformedInsight marks insights whose stored data lacks fields
	// their annotator needs.
	ErrMalformedInsight = errors.New("malformed insight data")
	// ErrInvalidRequest marks an annotation request that cannot be decoded.
	ErrInvalidRequest = errors.New("invalid annotation request")
	// ErrUnauthorized marks a request whose credentials were rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

// InvalidInsightError explains why an insight could not be evaluated.
type InvalidInsightError struct {
	Barcode string
	ImageID string
	Reason  string
}

func (e *InvalidInsightError) Error() string {
	if e.ImageID != "" {
		return fmt.Sprintf("invalid insight for product %s, image %s: %s", e.Barcode, e.ImageID, e.Reason)
	}
	return fmt.Sprintf("invalid insight for product %s: %s", e.Barcode, e.Reason)
}

func (e *InvalidInsightError) Unwrap() error {
	return ErrInvalidInsight
}

// MapHTTPStatus maps annotation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrInvalidInsight) || errors.Is(err, ErrMalformedInsight) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
