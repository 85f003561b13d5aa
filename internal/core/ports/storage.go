package ports

import (
	"context"
	"errors"
)

// ErrSlotNotFound is returned by SnapshotStore.Get when the slot is empty.
var ErrSlotNotFound = errors.New("snapshot slot not found")

// SnapshotStore is a durable key-value slot store.
// Implementations: memory, JSON file, SQL (sqlite, postgres), S3-compatible.
type SnapshotStore interface {
	// Get returns the document stored under slot, or ErrSlotNotFound.
	Get(ctx context.Context, slot string) ([]byte, error)

	// Put replaces the document stored under slot.
	Put(ctx context.Context, slot string, data []byte) error

	// Delete removes slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, slot string) error

	// Close releases the underlying connection.
	Close() error
}
