package simulation

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/otsync/pkg/adapters/memory"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/modifiers"
	"github.com/aretw0/otsync/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertConverged(t *testing.T, report *Report) {
	t.Helper()
	require.True(t, report.Converged, report.Dump())
	for _, c := range report.Clients {
		assert.Equal(t, report.Text, c.Text, c.Name)
		assert.Equal(t, report.Revision, c.Revision, c.Name)
		assert.Equal(t, domain.KindSynchronized, c.State, c.Name)
	}
}

func TestRun_Converges(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		report, err := New().Run(context.Background(), Config{
			Clients: 3,
			Edits:   60,
			Seed:    seed,
			Initial: "Hello world\n",
		})
		require.NoError(t, err, "seed %d", seed)
		assertConverged(t, report)
		assert.True(t, report.Identical, "seed %d", seed)

		edits := 0
		for _, c := range report.Clients {
			edits += c.Edits
		}
		assert.Equal(t, 60, edits)
	}
}

func TestRun_WithRejectionsAndDrops(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		report, err := New().Run(context.Background(), Config{
			Clients:    4,
			Edits:      80,
			Seed:       seed,
			DropRate:   0.05,
			RejectRate: 0.2,
		})
		require.NoError(t, err, "seed %d", seed)
		assertConverged(t, report)
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := Config{Clients: 3, Edits: 40, Seed: 7, DropRate: 0.05, RejectRate: 0.1}
	a, err := New().Run(context.Background(), cfg)
	require.NoError(t, err)
	b, err := New().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Dump(), b.Dump())
}

func TestRun_ModifiersAndHooks(t *testing.T) {
	sends := map[string]int{}
	store := memory.NewSnapshotStore()
	sim := New(
		WithModifiers(modifiers.StampAuthor("sim")),
		WithSnapshotStore(store),
		WithHooks(func(client string) domain.LifecycleHooks {
			return domain.LifecycleHooks{
				OnSend: func(*domain.OperationEvent) { sends[client]++ },
			}
		}),
	)

	report, err := sim.Run(context.Background(), Config{Clients: 2, Edits: 30, Seed: 3, DocumentID: "doc"})
	require.NoError(t, err)
	assertConverged(t, report)

	for _, c := range report.Clients {
		assert.Equal(t, c.Sent, sends[c.Name])
	}

	snap, err := store.Snapshot(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, report.Revision, snap.Revision)
	assert.Equal(t, report.Text, snap.Contents.Text())
}

func TestRun_SingleClientNoEdits(t *testing.T) {
	report, err := New().Run(context.Background(), Config{Clients: 1, Initial: "abc"})
	require.NoError(t, err)
	assertConverged(t, report)
	assert.Equal(t, "abc\n", report.Text)
	assert.Equal(t, 0, report.Revision)
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := New().Run(context.Background(), Config{Clients: 0})
	assert.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Run(ctx, Config{Clients: 2, Edits: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomEdit_StaysValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	doc := delta.FromText("\n", nil)
	for range 500 {
		op := randomEdit(rng, doc)
		next, err := delta.Apply(doc, op)
		require.NoError(t, err, "%s on %s", op, doc)
		require.True(t, next.IsDocument())
		require.Equal(t, "\n", next.Text()[len(next.Text())-1:])
		doc = next
	}
}

func TestReport_Dump(t *testing.T) {
	r := &Report{Seed: 9, Text: "hi\n", Clients: []ClientReport{{Name: "client-1", Rollbacks: 2}, {Name: "client-2", Rollbacks: 1}}}
	assert.Equal(t, 3, r.Rollbacks())
	out := r.Dump()
	assert.Contains(t, out, "Seed: 9")
	assert.Contains(t, out, `"client-1"`)
}

func TestRun_StatusMirrorsDrops(t *testing.T) {
	statuses := map[string]*memory.Status{}
	sim := New(WithStatus(func(client string) ports.StatusStore {
		s := memory.NewStatus(nil)
		statuses[client] = s
		return s
	}))

	report, err := sim.Run(context.Background(), Config{Clients: 3, Edits: 60, Seed: 11, DropRate: 0.2})
	require.NoError(t, err)
	assertConverged(t, report)
	require.Positive(t, report.Drops)

	offline := 0
	for _, s := range statuses {
		kind, _ := s.Banner()
		assert.Equal(t, ports.BannerNone, kind)
		assert.False(t, s.ReadOnly())
		for _, b := range s.BannerHistory() {
			if b == ports.BannerOffline {
				offline++
			}
		}
	}
	assert.Equal(t, report.Drops, offline)
}
