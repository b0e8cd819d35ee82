package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// Ensure ArchiveStore implements the interface.
var _ driven.ArchiveStorage = (*ArchiveStore)(nil)

// ArchiveStore keeps record files in memory. Dry runs write here.
type ArchiveStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailOn makes Put fail for matching keys. Used by tests.
	FailOn func(key string) error
}

// NewArchiveStore creates an empty in-memory archive.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{objects: make(map[string][]byte)}
}

// Put stores a copy of data at key.
func (s *ArchiveStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailOn != nil {
		if err := s.FailOn(key); err != nil {
			return err
		}
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf
	return nil
}

// Stats counts the stored objects.
func (s *ArchiveStore) Stats(_ context.Context) (domain.ArchiveStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := domain.ArchiveStats{Location: s.Location(), Exists: true, Files: len(s.objects)}
	for _, b := range s.objects {
		st.Bytes += int64(len(b))
	}
	return st, nil
}

// Location returns ":memory:".
func (s *ArchiveStore) Location() string {
	return ":memory:"
}

// Get returns the object at key.
func (s *ArchiveStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[key]
	return b, ok
}

// Keys returns every stored key, sorted.
func (s *ArchiveStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
