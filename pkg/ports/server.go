package ports

import (
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
)

// Callbacks are the inbound server events the client registers for. The transport
// delivers them one at a time, in server order, from a single goroutine.
type Callbacks struct {
	// Operation delivers an operation another client made, already serialized by the
	// server.
	Operation func(op delta.Delta)

	// Ack confirms the outstanding submission. An empty id means "the outstanding one"
	// for transports that do not echo ids.
	Ack func(submissionID string) error

	// Rollback reports that the server rejected the outstanding submission.
	Rollback func(submissionID string) error
}

// ServerAdapter is the client's view of the transport to the authoritative server.
// Sends are fire-and-forget: implementations must not block on the round trip nor call
// the registered callbacks from inside a send.
type ServerAdapter interface {
	// SendOperation submits op, derived from the document at revision.
	SendOperation(revision int, op delta.Delta, cursor *domain.Selection, submissionID string) error

	// SendCursor shares the local selection. A nil cursor clears it.
	SendCursor(cursor *domain.Selection) error

	// RegisterCallbacks installs the inbound event handlers, replacing previous ones.
	RegisterCallbacks(cb Callbacks)
}
