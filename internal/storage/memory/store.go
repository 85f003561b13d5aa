// Package memory keeps snapshot slots in process memory.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// Store is an in-memory implementation of ports.SnapshotStore.
type Store struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

var _ ports.SnapshotStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		slots: make(map[string][]byte),
	}
}

func (s *Store) Get(ctx context.Context, slot string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[slot]
	if !ok {
		return nil, ports.ErrSlotNotFound
	}
	return bytes.Clone(data), nil
}

func (s *Store) Put(ctx context.Context, slot string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[slot] = bytes.Clone(data)
	return nil
}

func (s *Store) Delete(ctx context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, slot)
	return nil
}

func (s *Store) Close() error {
	return nil
}
