package interfaces

import "context"

// StoreBackend provides whole-file access to the persisted rotation store.
// The store is small and always rewritten in full, so backends expose plain
// read/write rather than streaming.
type StoreBackend interface {
	// Read returns the full store content. Returns ErrStoreNotFound if the
	// store does not exist yet.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the full store content.
	Write(ctx context.Context, data []byte) error

	// Name returns a short backend identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}
