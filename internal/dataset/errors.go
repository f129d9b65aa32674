package dataset

import "errors"

var (
	ErrTooLarge      = errors.New("dataset exceeds max size")
	ErrNotConfigured = errors.New("dataset url not configured")
)
