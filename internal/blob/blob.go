// Package blob stores receipt files and hands back URLs that the rest of the
// system treats as opaque.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrInvalidKey = errors.New("invalid blob key")

type Store interface {
	// Upload stores data under key and returns a URL for it.
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// CleanKey validates a slash-separated key. Keys are relative and may not
// climb out of their root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}
