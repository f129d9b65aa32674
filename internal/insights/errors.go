package insights

import (
	"errors"
	"net/http"
)

// Domain errors for insight operations.
var (
	ErrNotFound    = errors.New("insight not found")
	ErrDuplicate   = errors.New("insight already exists")
	ErrInvalidID   = errors.New("invalid insight id")
	ErrInvalidType = errors.New("invalid insight type")
)

// MapHTTPStatus maps insight domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidType) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
