package ports

import (
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
)

// ChangeEvent is the editor's notification that its contents changed.
type ChangeEvent struct {
	Delta       delta.Delta
	OldContents delta.Delta
	Source      domain.ChangeSource
}

// EditorAdapter is the rich-text editing surface.
type EditorAdapter interface {
	// GetContents returns the current document.
	GetContents() delta.Delta

	// SetContents replaces the whole document without notifying change listeners.
	SetContents(doc delta.Delta) error

	// UpdateContents applies op. Changes with a source other than domain.SourceUser must
	// not be echoed to change listeners.
	UpdateContents(op delta.Delta, source domain.ChangeSource) error

	// OnChange subscribes to change notifications and returns the unsubscribe func.
	OnChange(fn func(ChangeEvent)) (unsubscribe func())
}

// SelectionProvider is implemented by editors that track a local selection. The client
// sends it along with operations.
type SelectionProvider interface {
	GetSelection() *domain.Selection
}
