// Package metadata is the client's small durable key/value store. It backs
// the token store and is available in three flavours: SQLite (default, with
// goose migrations), bbolt and in-memory.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	// Update runs fn against a view of the store whose writes are applied
	// all together or not at all.
	Update(ctx context.Context, fn func(ctx context.Context, r Repository) error) error
}
