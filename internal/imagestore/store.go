// Package imagestore keeps the set of images captured by the current job.
// The index lives in memory; blobs live in a Storage.
package imagestore

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vrsandeep/turntable-go/internal/models"
)

// ErrNotFound is returned by Fetch for names that were never stored.
var ErrNotFound = errors.New("image not found")

// Store is an index of image names paired with their blobs. A name is
// only ever visible in the index once its blob is fully written.
type Store struct {
	mu      sync.RWMutex
	index   map[string]struct{}
	storage Storage
}

// New creates a store and resets the storage so that no blob exists
// without an index entry.
func New(storage Storage) (*Store, error) {
	s := &Store{
		index:   make(map[string]struct{}),
		storage: storage,
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Store persists data under name. The index is untouched on failure.
func (s *Store) Store(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Write(name, data); err != nil {
		return err
	}
	s.index[name] = struct{}{}
	return nil
}

// List returns a snapshot of the index, ordered by round then image.
func (s *Store) List() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.index))
	for name := range s.index {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool {
		return lessImageName(names[i], names[j])
	})
	return names
}

// Len returns the number of indexed images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Fetch returns the blob stored under name. It returns ErrNotFound when
// name is not indexed and a wrapped I/O error when the blob is unreadable.
func (s *Store) Fetch(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.index[name]; !ok {
		return nil, ErrNotFound
	}
	data, err := s.storage.Read(name)
	if err != nil {
		return nil, fmt.Errorf("stored image %s is unreadable: %w", name, err)
	}
	return data, nil
}

// Reset empties the index and wipes the storage. The index is cleared
// first, so a failed wipe never leaves entries pointing at removed blobs.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.index)
	if err := s.storage.Reset(); err != nil {
		return fmt.Errorf("failed to reset image store: %w", err)
	}
	return nil
}

func lessImageName(a, b string) bool {
	ra, ia, okA := models.ParseImageName(a)
	rb, ib, okB := models.ParseImageName(b)
	switch {
	case okA && okB:
		if ra != rb {
			return ra < rb
		}
		return ia < ib
	case okA != okB:
		return okA
	default:
		return a < b
	}
}
