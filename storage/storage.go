package storage

import (
	"context"
	"io"
	"strings"
)

// Storage stores product images. Keys double as the public id handed to
// clients.
type Storage interface {
	// Put uploads r under key and returns the URL clients use to fetch it.
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// publicURL joins a base URL and an object key.
func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
