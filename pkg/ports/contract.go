package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	docID := "contract-test-doc-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := &domain.Snapshot{
			DocumentID: docID,
			Revision:   7,
			Contents:   delta.FromText("Hello", delta.Attributes{"bold": true}).Insert(" world\n", nil),
			UpdatedAt:  time.Now().UTC().Truncate(time.Second),
		}

		require.NoError(t, store.Save(ctx, snap), "Save should not return error")

		loaded, err := store.Snapshot(ctx, docID)
		require.NoError(t, err, "Snapshot should not return error")
		assert.Equal(t, 7, loaded.Revision)
		assert.Equal(t, docID, loaded.DocumentID)
		assert.Equal(t, "Hello world\n", loaded.Contents.Text())
		assert.True(t, snap.Contents.Equal(loaded.Contents), "contents must round-trip, got %s", loaded.Contents)
	})

	t.Run("Save replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &domain.Snapshot{DocumentID: docID, Revision: 8, Contents: delta.FromText("v8\n", nil)}))

		loaded, err := store.Snapshot(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, 8, loaded.Revision)
		assert.Equal(t, "v8\n", loaded.Contents.Text())
	})

	t.Run("Save older revision fails", func(t *testing.T) {
		err := store.Save(ctx, &domain.Snapshot{DocumentID: docID, Revision: 6, Contents: delta.FromText("v6\n", nil)})
		assert.ErrorIs(t, err, domain.ErrStaleSnapshot)

		loaded, err := store.Snapshot(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, 8, loaded.Revision, "a stale save must not regress the document")
		assert.Equal(t, "v8\n", loaded.Contents.Text())

		// Saving the same revision again is allowed.
		require.NoError(t, store.Save(ctx, &domain.Snapshot{DocumentID: docID, Revision: 8, Contents: delta.FromText("v8\n", nil)}))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Snapshot(ctx, "non-existent-"+docID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, docID), "Delete should not return error")

		_, err := store.Snapshot(ctx, docID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})
}
