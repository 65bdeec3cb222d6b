// Package store holds encoded models under string keys.
//
// Keys are slash-separated relative names such as "runs/2024/model.ens".
// Implementations return errors.ErrNotFound (checked with errors.Is) when a
// key does not exist.
package store

import (
	"context"
	"path"
	"strings"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// Store is a flat key/value blob store.
type Store interface {
	// Put writes data under key, replacing any existing value.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix in sorted order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// CleanKey normalises key and rejects names escaping the store root.
func CleanKey(key string) (string, error) {
	if key == "" {
		return "", errors.NewValueError("store", "empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", errors.NewValueError("store", "key must be relative: "+key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.NewValueError("store", "key escapes the store root: "+key)
	}
	return clean, nil
}

// NotFound wraps errors.ErrNotFound with the missing key.
func NotFound(key string) error {
	return errors.Wrapf(errors.ErrNotFound, "key %q", key)
}
