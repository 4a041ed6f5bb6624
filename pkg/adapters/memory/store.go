package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/otsync/pkg/domain"
)

// SnapshotStore implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type SnapshotStore struct {
	data map[string]domain.Snapshot
	mu   sync.RWMutex
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]domain.Snapshot),
	}
}

// Save replaces the snapshot of snap.DocumentID unless the stored one is newer.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	// Deltas are immutable values, a struct copy isolates the stored snapshot.
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.data[snap.DocumentID]; ok && snap.Revision < current.Revision {
		return fmt.Errorf("%w: %s at %d, stored %d", domain.ErrStaleSnapshot, snap.DocumentID, snap.Revision, current.Revision)
	}
	s.data[snap.DocumentID] = *snap
	return nil
}

// Snapshot retrieves the latest snapshot of a document.
func (s *SnapshotStore) Snapshot(ctx context.Context, documentID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[documentID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return &snap, nil
}

// Delete removes the snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, documentID)
	return nil
}

// List returns the stored document ids in order.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
