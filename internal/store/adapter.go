package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key was never written.
var ErrKeyNotFound = errors.New("key not found")

// Adapter is a pluggable persistence backend for client-side state
// (favorites, recently viewed). Stores serialize their records to JSON
// before handing them over, so backends carry opaque blobs and never learn
// the record schema. Writes are last-writer-wins.
type Adapter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
