package storage

import (
	"context"
	"errors"
)

// Backend is an opaque get/set/remove byte-string service.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get retrieves the entry stored under key.
	// Returns (nil, nil) if the key doesn't exist.
	// Returns (nil, err) on backend errors.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores data under key, overwriting any existing entry.
	Set(ctx context.Context, key string, data []byte) error

	// Remove deletes the entry stored under key.
	// Should not return an error if the key doesn't exist.
	Remove(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// ErrClosed is returned when operations are attempted on a closed backend.
var ErrClosed = errors.New("storage: backend is closed")

// cloneBytes returns a copy of b so callers can't mutate stored data.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
