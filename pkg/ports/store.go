package ports

import (
	"context"

	"github.com/aretw0/otsync/pkg/domain"
)

// SnapshotSource yields the latest server snapshot of a document, e.g. to resync a
// client after a reconnect.
type SnapshotSource interface {
	// Snapshot returns domain.ErrSnapshotNotFound if the document does not exist.
	Snapshot(ctx context.Context, documentID string) (*domain.Snapshot, error)
}

// SnapshotStore persists snapshots. Every store is also a SnapshotSource.
type SnapshotStore interface {
	SnapshotSource

	// Save persists the snapshot under snap.DocumentID, replacing older ones.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Delete removes the snapshot for a document.
	Delete(ctx context.Context, documentID string) error
}
