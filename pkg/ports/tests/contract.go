package tests

import (
	"testing"

	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
)

// EditorContractTest is a reusable test suite that verifies if an adapter complies with
// ports.EditorAdapter. newEditor must return an editor holding initial.
func EditorContractTest(t *testing.T, newEditor func(initial delta.Delta) ports.EditorAdapter) {
	t.Helper()
	initial := delta.FromText("Untitled\n", nil)

	t.Run("GetContents", func(t *testing.T) {
		ed := newEditor(initial)
		if got := ed.GetContents(); !got.Equal(initial) {
			t.Errorf("contents mismatch: got %s, want %s", got, initial)
		}
	})

	t.Run("UpdateContents_API_DoesNotNotify", func(t *testing.T) {
		ed := newEditor(initial)
		notified := 0
		unsubscribe := ed.OnChange(func(ports.ChangeEvent) { notified++ })
		defer unsubscribe()

		op := delta.Delta{}.Retain(8, nil).Insert("!", nil)
		if err := ed.UpdateContents(op, domain.SourceAPI); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ed.GetContents().Text(); got != "Untitled!\n" {
			t.Errorf("got %q after update", got)
		}
		if notified != 0 {
			t.Errorf("api change must not notify, got %d notifications", notified)
		}
	})

	t.Run("UpdateContents_OutOfRange", func(t *testing.T) {
		ed := newEditor(initial)
		if err := ed.UpdateContents(delta.Delta{}.Retain(100, nil).Delete(1), domain.SourceAPI); err == nil {
			t.Error("expected error for an edit longer than the document")
		}
		if got := ed.GetContents(); !got.Equal(initial) {
			t.Errorf("failed update must leave contents untouched, got %s", got)
		}
	})

	t.Run("SetContents", func(t *testing.T) {
		ed := newEditor(initial)
		doc := delta.FromText("Replaced\n", nil)
		if err := ed.SetContents(doc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ed.GetContents(); !got.Equal(doc) {
			t.Errorf("got %s, want %s", got, doc)
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		ed := newEditor(initial)
		notified := 0
		unsubscribe := ed.OnChange(func(ports.ChangeEvent) { notified++ })
		unsubscribe()
		_ = ed.UpdateContents(delta.Delta{}.Insert("x", nil), domain.SourceUser)
		if notified != 0 {
			t.Errorf("unsubscribed listener was notified %d times", notified)
		}
	})
}
