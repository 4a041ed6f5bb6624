package domain

import "errors"

// ErrInvalidTransition is returned when the transport acknowledges or rolls back a
// submission the client is not waiting for.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrSnapshotNotFound is returned when no snapshot exists for a document.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrStaleSnapshot is returned by snapshot stores asked to save a revision older
// than the one they hold.
var ErrStaleSnapshot = errors.New("snapshot is older than the stored revision")

// ErrInvalidRevision is returned for negative revisions.
var ErrInvalidRevision = errors.New("invalid revision")
