package otsync_test

import (
	"context"
	"testing"

	"github.com/aretw0/otsync"
	"github.com/aretw0/otsync/internal/logging"
	"github.com/aretw0/otsync/pkg/adapters/memory"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/modifiers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacade_Integration(t *testing.T) {
	ctx := context.Background()
	hub := memory.NewHub()
	require.NoError(t, hub.CreateDocument("doc", delta.FromText("Untitled\n", nil), 1))

	conn, err := hub.Connect("doc", "alice")
	require.NoError(t, err)
	editor := memory.NewEditor(delta.FromText("Untitled\n", nil))

	var sends, acks int
	client, err := otsync.New(1, conn, editor,
		otsync.WithDocumentID("doc"),
		otsync.WithLogger(logging.NewNop()),
		otsync.WithModifiers(modifiers.StampAuthor("alice")),
		otsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnSend: func(*domain.OperationEvent) { sends++ },
		}),
		otsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnAck: func(*domain.OperationEvent) { acks++ },
		}),
	)
	require.NoError(t, err)
	defer client.Close()
	assert.Same(t, editor, client.Editor())

	require.NoError(t, editor.UserEdit(delta.Delta{}.Retain(8, nil).Insert("!", nil)))
	assert.False(t, client.IsSynchronized())
	assert.Equal(t, domain.KindAwaitingConfirm, client.State().Kind())

	_, err = hub.Process(ctx)
	require.NoError(t, err)
	_, err = conn.Deliver()
	require.NoError(t, err)

	assert.True(t, client.IsSynchronized())
	assert.Equal(t, 2, client.Revision())
	assert.Equal(t, 1, sends)
	assert.Equal(t, 1, acks)

	snap, err := hub.Snapshot(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "Untitled!\n", snap.Contents.Text())
	// The server copy carries the stamped author, the local one does not.
	assert.Equal(t, delta.Attributes{domain.KeyAuthor: "alice"}, snap.Contents.Ops()[1].Attributes)
}

func TestFacade_InvalidRevision(t *testing.T) {
	hub := memory.NewHub()
	require.NoError(t, hub.CreateDocument("doc", delta.FromText("\n", nil), 0))
	conn, err := hub.Connect("doc", "alice")
	require.NoError(t, err)

	_, err = otsync.New(-3, conn, memory.NewEditor(delta.FromText("\n", nil)))
	assert.ErrorIs(t, err, domain.ErrInvalidRevision)
}

func TestFacade_ApplyOperationAndReset(t *testing.T) {
	hub := memory.NewHub()
	require.NoError(t, hub.CreateDocument("doc", delta.FromText("\n", nil), 0))
	conn, err := hub.Connect("doc", "alice")
	require.NoError(t, err)
	editor := memory.NewEditor(delta.FromText("\n", nil))

	var failures []*domain.ApplyOperationError
	client, err := otsync.New(0, conn, editor,
		otsync.WithAuthorResolver(func(id string) string { return "User " + id }),
		otsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnApplyError: func(e *domain.ApplyOperationError) { failures = append(failures, e) },
		}),
	)
	require.NoError(t, err)

	client.ApplyOperation(delta.Delta{}.Retain(50, nil).Insert("x", delta.Attributes{domain.KeyAuthor: "7"}))
	require.Len(t, failures, 1)
	assert.Equal(t, "User 7", failures[0].Author)
	assert.ErrorIs(t, failures[0], delta.ErrLengthMismatch)

	client.AddModifier(modifiers.StripEmptyAttributes)
	require.NoError(t, editor.UserEdit(delta.Delta{}.Insert("a", nil)))
	require.NoError(t, client.ResetClientWithRevision(4))
	assert.True(t, client.IsSynchronized())
	assert.Equal(t, 4, client.Revision())
	require.NoError(t, client.SendCursor(&domain.Selection{Index: 1}))
}
