package domain

import (
	"fmt"
	"time"

	"github.com/aretw0/otsync/pkg/delta"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSend            EventType = "send"
	EventAck             EventType = "ack"
	EventRemoteOperation EventType = "remote_operation"
	EventRollback        EventType = "rollback"
	EventReset           EventType = "reset"
	EventApplyError      EventType = "apply_operation_error"
	EventStateChange     EventType = "state_change"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Revision  int       `json:"revision"`
}

// OperationEvent describes an operation crossing the client boundary.
type OperationEvent struct {
	EventBase
	Operation    delta.Delta `json:"operation"`
	SubmissionID string      `json:"submission_id,omitempty"`
	Cursor       *Selection  `json:"cursor,omitempty"`
}

// StateChangeEvent is emitted whenever the client moves to another state variant or
// its buffer changes.
type StateChangeEvent struct {
	EventBase
	From         StateKind `json:"from"`
	To           StateKind `json:"to"`
	BufferLength int       `json:"buffer_length"`
}

// ApplyOperationError reports an operation the editor surface could not materialize.
// The client keeps running; this is for the host UI to surface.
type ApplyOperationError struct {
	EventBase
	Author    string      `json:"author,omitempty"`
	Err       error       `json:"-"`
	Operation delta.Delta `json:"operation"`
}

func (e *ApplyOperationError) Error() string {
	if e.Author != "" {
		return fmt.Sprintf("failed to apply change by %s: %v", e.Author, e.Err)
	}
	return fmt.Sprintf("failed to apply change: %v", e.Err)
}

func (e *ApplyOperationError) Unwrap() error {
	return e.Err
}

// LifecycleHooks defines callbacks for client observability. They run synchronously
// inside the triggering event and must not call back into the client.
type LifecycleHooks struct {
	OnSend            func(*OperationEvent)
	OnAck             func(*OperationEvent)
	OnRemoteOperation func(*OperationEvent)
	OnRollback        func(*OperationEvent)
	OnReset           func(*OperationEvent)
	OnApplyError      func(*ApplyOperationError)
	OnStateChange     func(*StateChangeEvent)
}

// ChainHooks fans every callback out to each hook set in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	op := func(pick func(LifecycleHooks) func(*OperationEvent)) func(*OperationEvent) {
		return func(e *OperationEvent) {
			for _, h := range hooks {
				if fn := pick(h); fn != nil {
					fn(e)
				}
			}
		}
	}
	return LifecycleHooks{
		OnSend:            op(func(h LifecycleHooks) func(*OperationEvent) { return h.OnSend }),
		OnAck:             op(func(h LifecycleHooks) func(*OperationEvent) { return h.OnAck }),
		OnRemoteOperation: op(func(h LifecycleHooks) func(*OperationEvent) { return h.OnRemoteOperation }),
		OnRollback:        op(func(h LifecycleHooks) func(*OperationEvent) { return h.OnRollback }),
		OnReset:           op(func(h LifecycleHooks) func(*OperationEvent) { return h.OnReset }),
		OnApplyError: func(e *ApplyOperationError) {
			for _, h := range hooks {
				if h.OnApplyError != nil {
					h.OnApplyError(e)
				}
			}
		},
		OnStateChange: func(e *StateChangeEvent) {
			for _, h := range hooks {
				if h.OnStateChange != nil {
					h.OnStateChange(e)
				}
			}
		},
	}
}
