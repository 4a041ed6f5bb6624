package domain

import (
	"fmt"

	"github.com/aretw0/otsync/pkg/delta"
)

// StateKind names a client state variant.
type StateKind string

const (
	KindSynchronized       StateKind = "synchronized"         // Nothing outstanding
	KindAwaitingConfirm    StateKind = "awaiting_confirm"     // One submission in flight
	KindAwaitingWithBuffer StateKind = "awaiting_with_buffer" // In flight, later edits buffered
)

// State is the client's synchronization state. The set of implementations is closed;
// switch on the concrete type to handle every variant.
type State interface {
	Kind() StateKind
	String() string
	isState()
}

// Synchronized means the local document equals the server's at the client revision.
type Synchronized struct{}

func (Synchronized) Kind() StateKind { return KindSynchronized }
func (Synchronized) String() string  { return "Synchronized{}" }
func (Synchronized) isState()        {}

// AwaitingConfirm holds the single submission sent and not yet acknowledged.
type AwaitingConfirm struct {
	Outstanding delta.Delta

	// InverseOutstanding undoes Outstanding on the current local document. It is only
	// used for rollback.
	InverseOutstanding delta.Delta

	SubmissionID string
}

func (AwaitingConfirm) Kind() StateKind { return KindAwaitingConfirm }
func (AwaitingConfirm) isState()        {}

func (s AwaitingConfirm) String() string {
	return fmt.Sprintf("AwaitingConfirm{outstanding: %s, submission: %s}", s.Outstanding, s.SubmissionID)
}

// AwaitingWithBuffer holds the in-flight submission plus the local edits composed
// since it was sent.
type AwaitingWithBuffer struct {
	Outstanding        delta.Delta
	InverseOutstanding delta.Delta
	SubmissionID       string

	Buffer        delta.Delta
	InverseBuffer delta.Delta
}

func (AwaitingWithBuffer) Kind() StateKind { return KindAwaitingWithBuffer }
func (AwaitingWithBuffer) isState()        {}

func (s AwaitingWithBuffer) String() string {
	return fmt.Sprintf("AwaitingWithBuffer{outstanding: %s, buffer: %s, submission: %s}", s.Outstanding, s.Buffer, s.SubmissionID)
}
