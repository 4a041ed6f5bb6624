package memory

import (
	"fmt"

	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultEmbeds are the embed types an Editor accepts unless configured otherwise.
var DefaultEmbeds = []string{"image", "video", "formula"}

// Editor implements ports.EditorAdapter and ports.SelectionProvider over an
// in-memory document. Like the client it drives, it is meant to be used from a
// single goroutine.
type Editor struct {
	doc       delta.Delta
	selection *domain.Selection
	embeds    mapset.Set[string]
	readOnly  bool

	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(ports.ChangeEvent)
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithEmbeds replaces the accepted embed types.
func WithEmbeds(types ...string) EditorOption {
	return func(e *Editor) {
		e.embeds = mapset.NewThreadUnsafeSet(types...)
	}
}

// NewEditor creates an editor holding initial, which must be a document.
func NewEditor(initial delta.Delta, opts ...EditorOption) *Editor {
	e := &Editor{
		doc:    initial,
		embeds: mapset.NewThreadUnsafeSet(DefaultEmbeds...),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetContents returns the current document.
func (e *Editor) GetContents() delta.Delta {
	return e.doc
}

// Text returns the plain text of the document.
func (e *Editor) Text() string {
	return e.doc.Text()
}

// SetContents replaces the whole document without notifying listeners.
func (e *Editor) SetContents(doc delta.Delta) error {
	if !doc.IsDocument() {
		return delta.ErrNotDocument
	}
	if err := e.checkEmbeds(doc); err != nil {
		return err
	}
	e.doc = doc
	if e.selection != nil {
		length := doc.Length()
		index := min(e.selection.Index, length)
		e.selection = &domain.Selection{Index: index, Length: min(e.selection.Length, length-index)}
	}
	return nil
}

// UpdateContents applies op. Only user-sourced changes reach listeners.
func (e *Editor) UpdateContents(op delta.Delta, source domain.ChangeSource) error {
	return e.apply(op, source)
}

// UserEdit applies op as if the user had typed it.
func (e *Editor) UserEdit(op delta.Delta) error {
	if e.readOnly {
		return ErrReadOnly
	}
	return e.apply(op, domain.SourceUser)
}

func (e *Editor) apply(op delta.Delta, source domain.ChangeSource) error {
	if err := e.checkEmbeds(op); err != nil {
		return err
	}
	next, err := delta.Apply(e.doc, op)
	if err != nil {
		return err
	}

	old := e.doc
	e.doc = next
	if e.selection != nil {
		sel := e.selection.Transform(op, source != domain.SourceUser)
		e.selection = &sel
	}

	if source != domain.SourceUser {
		return nil
	}
	ev := ports.ChangeEvent{Delta: op, OldContents: old, Source: source}
	for _, l := range append([]listener(nil), e.listeners...) {
		l.fn(ev)
	}
	return nil
}

func (e *Editor) checkEmbeds(d delta.Delta) error {
	for _, op := range d.Ops() {
		if op.IsEmbed() && !e.embeds.Contains(op.Embed.Type()) {
			return fmt.Errorf("%w: %q", ErrUnsupportedEmbed, op.Embed.Type())
		}
	}
	return nil
}

// OnChange registers fn for user changes and returns its unsubscribe function.
func (e *Editor) OnChange(fn func(ports.ChangeEvent)) func() {
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// GetSelection returns the current selection, or nil when the editor has no focus.
func (e *Editor) GetSelection() *domain.Selection {
	if e.selection == nil {
		return nil
	}
	sel := *e.selection
	return &sel
}

// SetSelection moves the selection. Nil blurs the editor.
func (e *Editor) SetSelection(sel *domain.Selection) {
	if sel == nil {
		e.selection = nil
		return
	}
	s := *sel
	e.selection = &s
}

// SetReadOnly toggles whether UserEdit is accepted.
func (e *Editor) SetReadOnly(readOnly bool) {
	e.readOnly = readOnly
}

// ReadOnly reports whether user edits are currently rejected.
func (e *Editor) ReadOnly() bool {
	return e.readOnly
}
