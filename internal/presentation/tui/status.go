package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/otsync/pkg/ports"
	"github.com/muesli/termenv"
)

// Status is a ports.StatusStore that prints banner changes to a terminal.
type Status struct {
	mu       sync.Mutex
	out      *termenv.Output
	prefix   string
	banner   ports.BannerKind
	readOnly bool
}

// NewStatus writes banners for the named client to w, colored when w is a terminal.
func NewStatus(w io.Writer, name string) *Status {
	return &Status{out: termenv.NewOutput(w), prefix: name}
}

func (s *Status) SetBanner(ctx context.Context, kind ports.BannerKind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == s.banner {
		return nil
	}
	s.banner = kind

	label, color := "online", "#22c55e"
	switch kind {
	case ports.BannerOffline:
		label, color = "offline", "#f59e0b"
	case ports.BannerReconnecting:
		label, color = "reconnecting", "#38bdf8"
	case ports.BannerResyncFailed:
		label, color = "resync failed", "#ef4444"
	}

	tag := s.out.String(fmt.Sprintf("[%s]", label)).Foreground(s.out.Color(color)).Bold()
	line := fmt.Sprintf("%s %s", s.prefix, tag)
	if message != "" {
		line += " " + s.out.String(message).Faint().String()
	}
	_, err := fmt.Fprintln(s.out, line)
	return err
}

func (s *Status) SetReadOnly(ctx context.Context, readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
	return nil
}

// Banner returns the banner last shown.
func (s *Status) Banner() ports.BannerKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

// ReadOnly reports whether editing is currently locked.
func (s *Status) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnly
}
