package memory

import "errors"

var (
	// ErrUnsupportedEmbed is returned when an edit inserts an embed type the editor cannot render.
	ErrUnsupportedEmbed = errors.New("unsupported embed")

	// ErrReadOnly is returned for user edits while the editor is read-only.
	ErrReadOnly = errors.New("editor is read-only")

	// ErrUnknownConnection is returned when a connection is used after it left the hub.
	ErrUnknownConnection = errors.New("unknown connection")
)
