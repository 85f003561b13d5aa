// Package file stores snapshot slots as files under a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

// Store writes each slot to its own JSON file. Writes go to a temporary
// file first and are renamed into place, so a crash never leaves a torn
// document behind.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ ports.SnapshotStore = (*Store)(nil)

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("snapshot directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// path maps a slot like "polyglot-studio/snapshot" to a flat file name.
func (s *Store) path(slot string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(slot)
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) Get(ctx context.Context, slot string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ports.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", slot, err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, slot string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write slot %s: %w", slot, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		return fmt.Errorf("rename slot %s: %w", slot, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(slot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
