package loam_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/otsync/internal/logging"
	"github.com/aretw0/otsync/pkg/adapters/loam"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dir string) *loam.SnapshotStore {
	t.Helper()
	store, err := loam.Open(dir, loam.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	return store
}

func TestLoamSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, openStore(t, t.TempDir()))
}

func TestLoamSnapshotStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	first := openStore(t, dir)
	require.NoError(t, first.Save(ctx, &domain.Snapshot{
		DocumentID: "notes",
		Revision:   3,
		Contents:   delta.FromText("Title", delta.Attributes{"header": 1}).Insert("\n", nil),
		UpdatedAt:  at,
	}))

	second := openStore(t, dir)
	snap, err := second.Snapshot(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Revision)
	assert.Equal(t, "Title\n", snap.Contents.Text())
	assert.True(t, at.Equal(snap.UpdatedAt))

	// The revision guard reads what the first store wrote.
	err = second.Save(ctx, &domain.Snapshot{DocumentID: "notes", Revision: 2, Contents: delta.FromText("\n", nil)})
	assert.ErrorIs(t, err, domain.ErrStaleSnapshot)
}

func TestLoamSnapshotStore_List(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Save(ctx, &domain.Snapshot{DocumentID: "b", Contents: delta.FromText("\n", nil)}))
	require.NoError(t, store.Save(ctx, &domain.Snapshot{DocumentID: "a", Contents: delta.FromText("\n", nil)}))

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "missing"))
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}
