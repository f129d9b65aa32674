package storage

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrEmptyKey   = errors.New("empty blob key")
	ErrInvalidKey = errors.New("invalid blob key")
)

// validateKey accepts slash-separated relative keys. Absolute keys, empty
// segments and dot segments are refused so a key always names one blob
// inside the container.
func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.ContainsRune(key, '\\') {
		return fmt.Errorf("%w %q: backslash", ErrInvalidKey, key)
	}

	segments := strings.Split(key, "/")
	if slices.ContainsFunc(segments, func(s string) bool {
		return s == "" || s == "." || s == ".."
	}) {
		return fmt.Errorf("%w %q: empty or dot segment", ErrInvalidKey, key)
	}
	return nil
}
