package memory

import (
	"context"
	"sync"

	"github.com/aretw0/otsync/pkg/ports"
)

// Status implements ports.StatusStore by recording the banner and, when an Editor is
// attached, toggling its read-only flag.
type Status struct {
	mu       sync.Mutex
	editor   *Editor
	banner   ports.BannerKind
	message  string
	readOnly bool
	history  []ports.BannerKind
}

// NewStatus creates a status store. editor may be nil.
func NewStatus(editor *Editor) *Status {
	return &Status{editor: editor}
}

func (s *Status) SetBanner(ctx context.Context, kind ports.BannerKind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = kind
	s.message = message
	s.history = append(s.history, kind)
	return nil
}

func (s *Status) SetReadOnly(ctx context.Context, readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
	if s.editor != nil {
		s.editor.SetReadOnly(readOnly)
	}
	return nil
}

// Banner returns the visible banner and its message.
func (s *Status) Banner() (ports.BannerKind, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner, s.message
}

// ReadOnly reports the last permission set.
func (s *Status) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnly
}

// BannerHistory lists every banner shown, oldest first.
func (s *Status) BannerHistory() []ports.BannerKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.BannerKind(nil), s.history...)
}
