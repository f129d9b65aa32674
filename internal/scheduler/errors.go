package scheduler

import (
	"errors"
	"net/http"
)

var (
	ErrUnknownJob    = errors.New("unknown job")
	ErrInvalidMaxAge = errors.New("invalid max age")
)

// MapHTTPStatus maps scheduler errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnknownJob) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidMaxAge) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
