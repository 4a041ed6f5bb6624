package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/otsync/internal/logging"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
	mapset "github.com/deckarep/golang-set/v2"
)

// Client is the OT synchronization state machine.
// It is not safe for concurrent use: every editor and transport event must be
// delivered from the same goroutine, one at a time.
type Client struct {
	server ports.ServerAdapter
	editor ports.EditorAdapter

	state    domain.State
	revision int

	modifiers []ports.Modifier
	hooks     domain.LifecycleHooks
	resolver  domain.AuthorResolver
	logger    *slog.Logger
	now       func() time.Time

	// stale holds submission ids dropped by a reset whose ack or rollback may
	// still arrive; pendingStale counts those answers, named or not.
	stale        mapset.Set[string]
	pendingStale int
	unsubscribe func()
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// WithModifiers appends outgoing modifiers in order.
func WithModifiers(mods ...ports.Modifier) Option {
	return func(c *Client) {
		c.modifiers = append(c.modifiers, mods...)
	}
}

// WithAuthorResolver maps author ids found in failing operations to display names.
func WithAuthorResolver(resolve domain.AuthorResolver) Option {
	return func(c *Client) {
		c.resolver = resolve
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient wires a client to its server and editor adapters and starts listening
// for user edits. The client starts Synchronized at revision.
func NewClient(revision int, server ports.ServerAdapter, editor ports.EditorAdapter, opts ...Option) (*Client, error) {
	if revision < 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidRevision, revision)
	}
	if server == nil || editor == nil {
		return nil, fmt.Errorf("server and editor adapters are required")
	}

	c := &Client{
		server:   server,
		editor:   editor,
		state:    domain.Synchronized{},
		revision: revision,
		stale:    mapset.NewThreadUnsafeSet[string](),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}

	server.RegisterCallbacks(ports.Callbacks{
		Operation: c.handleRemoteOperation,
		Ack:       c.handleAck,
		Rollback:  c.handleRollback,
	})
	c.unsubscribe = editor.OnChange(c.handleChange)

	return c, nil
}

// State returns the current state variant.
func (c *Client) State() domain.State { return c.state }

// Revision returns the last server revision this client has incorporated.
func (c *Client) Revision() int { return c.revision }

// IsSynchronized reports whether nothing is in flight or buffered.
func (c *Client) IsSynchronized() bool {
	_, ok := c.state.(domain.Synchronized)
	return ok
}

// AddModifier appends fn to the outgoing pipeline.
func (c *Client) AddModifier(fn ports.Modifier) {
	c.modifiers = append(c.modifiers, fn)
}

// Close stops listening for editor changes. Transport callbacks stay registered;
// the adapter owns their lifetime.
func (c *Client) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// ResetClientWithRevision drops every in-flight and buffered edit, forces
// Synchronized and adopts revision. Acks and rollbacks for the dropped submission
// are ignored when they arrive.
func (c *Client) ResetClientWithRevision(revision int) error {
	if revision < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRevision, revision)
	}

	switch s := c.state.(type) {
	case domain.AwaitingConfirm:
		c.markStale(s.SubmissionID)
	case domain.AwaitingWithBuffer:
		c.markStale(s.SubmissionID)
	}

	c.logger.Info("client reset", "from_revision", c.revision, "to_revision", revision, "state", c.state.Kind())
	c.revision = revision
	c.setState(domain.Synchronized{})
	c.emitOperation(c.hooks.OnReset, domain.EventReset, delta.Delta{}, "", nil)
	return nil
}

func (c *Client) markStale(id string) {
	c.pendingStale++
	if id != "" {
		c.stale.Add(id)
	}
}

// ApplyOperation applies op to the editor as an API change. Failures never
// propagate: they are reported through the OnApplyError hook and logged.
func (c *Client) ApplyOperation(op delta.Delta) {
	err := c.updateEditor(op)
	if err == nil {
		return
	}

	appErr := &domain.ApplyOperationError{
		EventBase: c.base(domain.EventApplyError),
		Author:    domain.ResolveAuthor(op, c.resolver),
		Err:       err,
		Operation: op,
	}
	c.logger.Error("failed to apply operation", "err", err, "author", appErr.Author, "op", op.String())
	if c.hooks.OnApplyError != nil {
		c.hooks.OnApplyError(appErr)
	}
}

func (c *Client) updateEditor(op delta.Delta) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("editor panicked: %v", r)
		}
	}()
	return c.editor.UpdateContents(op, domain.SourceAPI)
}

// SendCursor forwards the local selection in the coordinates of the last server
// revision: edits the server has not yet acknowledged are undone on it first.
func (c *Client) SendCursor(sel *domain.Selection) error {
	if sel != nil {
		placed := c.serverSelection(*sel)
		sel = &placed
	}
	return c.server.SendCursor(sel)
}

func (c *Client) serverSelection(sel domain.Selection) domain.Selection {
	switch s := c.state.(type) {
	case domain.AwaitingConfirm:
		sel = sel.Transform(s.InverseOutstanding, false)
	case domain.AwaitingWithBuffer:
		sel = sel.Transform(s.InverseBuffer, false)
		sel = sel.Transform(s.InverseOutstanding, false)
	}
	return sel
}

func (c *Client) handleChange(ev ports.ChangeEvent) {
	if ev.Source != domain.SourceUser {
		return
	}
	op := ev.Delta
	inverse := op.Invert(ev.OldContents)

	switch s := c.state.(type) {
	case domain.Synchronized:
		id := domain.NewSubmissionID()
		c.setState(domain.AwaitingConfirm{Outstanding: op, InverseOutstanding: inverse, SubmissionID: id})
		c.send(op, id)

	case domain.AwaitingConfirm:
		c.setState(domain.AwaitingWithBuffer{
			Outstanding:        s.Outstanding,
			InverseOutstanding: s.InverseOutstanding,
			SubmissionID:       s.SubmissionID,
			Buffer:             op,
			InverseBuffer:      inverse,
		})

	case domain.AwaitingWithBuffer:
		s.Buffer = s.Buffer.Compose(op)
		s.InverseBuffer = inverse.Compose(s.InverseBuffer)
		c.setState(s)
	}
}

// handleRemoteOperation rebases local edits over op. Server history wins ties, the
// same order the server uses when it transforms a late submission.
func (c *Client) handleRemoteOperation(op delta.Delta) {
	c.revision++

	switch s := c.state.(type) {
	case domain.Synchronized:
		c.emitOperation(c.hooks.OnRemoteOperation, domain.EventRemoteOperation, op, "", nil)
		c.ApplyOperation(op)

	case domain.AwaitingConfirm:
		outstanding := op.Transform(s.Outstanding, true)
		remote := s.Outstanding.Transform(op, false)

		next := domain.AwaitingConfirm{Outstanding: outstanding, SubmissionID: s.SubmissionID}
		if synced, err := c.serverDocument(s.InverseOutstanding); err == nil {
			next.InverseOutstanding = outstanding.Invert(synced.Compose(op))
		} else {
			c.logger.Warn("rebasing inverse by transform", "err", err)
			next.InverseOutstanding = op.Transform(s.InverseOutstanding, true)
		}
		c.setState(next)
		c.emitOperation(c.hooks.OnRemoteOperation, domain.EventRemoteOperation, remote, "", nil)
		c.ApplyOperation(remote)

	case domain.AwaitingWithBuffer:
		outstanding := op.Transform(s.Outstanding, true)
		partial := s.Outstanding.Transform(op, false)
		buffer := partial.Transform(s.Buffer, true)
		remote := s.Buffer.Transform(partial, false)

		next := domain.AwaitingWithBuffer{
			Outstanding:  outstanding,
			SubmissionID: s.SubmissionID,
			Buffer:       buffer,
		}
		if synced, err := c.serverDocument(s.InverseBuffer, s.InverseOutstanding); err == nil {
			rebased := synced.Compose(op)
			next.InverseOutstanding = outstanding.Invert(rebased)
			next.InverseBuffer = buffer.Invert(rebased.Compose(outstanding))
		} else {
			c.logger.Warn("rebasing inverses by transform", "err", err)
			next.InverseOutstanding = op.Transform(s.InverseOutstanding, true)
			next.InverseBuffer = partial.Transform(s.InverseBuffer, true)
		}
		c.setState(next)
		c.emitOperation(c.hooks.OnRemoteOperation, domain.EventRemoteOperation, remote, "", nil)
		c.ApplyOperation(remote)
	}
}

// serverDocument reconstructs the document as of the client revision by undoing
// the local edits, most recent first.
func (c *Client) serverDocument(inverses ...delta.Delta) (delta.Delta, error) {
	doc := c.editor.GetContents()
	for _, inv := range inverses {
		var err error
		if doc, err = delta.Apply(doc, inv); err != nil {
			return delta.Delta{}, err
		}
	}
	return doc, nil
}

func (c *Client) handleAck(id string) error {
	if c.consumeStale(id) {
		return nil
	}
	switch s := c.state.(type) {
	case domain.Synchronized:
		return fmt.Errorf("%w: ack %q while synchronized", domain.ErrInvalidTransition, id)

	case domain.AwaitingConfirm:
		if err := c.checkSubmission(id, s.SubmissionID, "ack"); err != nil {
			return err
		}
		c.revision++
		c.setState(domain.Synchronized{})
		c.emitOperation(c.hooks.OnAck, domain.EventAck, s.Outstanding, s.SubmissionID, nil)

	case domain.AwaitingWithBuffer:
		if err := c.checkSubmission(id, s.SubmissionID, "ack"); err != nil {
			return err
		}
		c.revision++
		c.emitOperation(c.hooks.OnAck, domain.EventAck, s.Outstanding, s.SubmissionID, nil)

		if s.Buffer.IsNoop() {
			c.setState(domain.Synchronized{})
			return nil
		}
		next := domain.NewSubmissionID()
		c.setState(domain.AwaitingConfirm{
			Outstanding:        s.Buffer,
			InverseOutstanding: s.InverseBuffer,
			SubmissionID:       next,
		})
		c.send(s.Buffer, next)
	}
	return nil
}

func (c *Client) handleRollback(id string) error {
	if c.consumeStale(id) {
		return nil
	}
	switch s := c.state.(type) {
	case domain.Synchronized:
		return fmt.Errorf("%w: rollback %q while synchronized", domain.ErrInvalidTransition, id)

	case domain.AwaitingConfirm:
		if err := c.checkSubmission(id, s.SubmissionID, "rollback"); err != nil {
			return err
		}
		c.setState(domain.Synchronized{})
		c.emitOperation(c.hooks.OnRollback, domain.EventRollback, s.Outstanding, s.SubmissionID, nil)
		c.ApplyOperation(s.InverseOutstanding)

	case domain.AwaitingWithBuffer:
		if err := c.checkSubmission(id, s.SubmissionID, "rollback"); err != nil {
			return err
		}
		c.setState(domain.Synchronized{})
		c.emitOperation(c.hooks.OnRollback, domain.EventRollback, s.Outstanding, s.SubmissionID, nil)
		c.ApplyOperation(s.InverseBuffer)
		c.ApplyOperation(s.InverseOutstanding)
	}
	return nil
}

// checkSubmission accepts an empty id as "the outstanding submission".
func (c *Client) checkSubmission(got, want, event string) error {
	if got == "" || got == want {
		return nil
	}
	return fmt.Errorf("%w: %s for %q, outstanding is %q", domain.ErrInvalidTransition, event, got, want)
}

// consumeStale reports whether an ack or rollback answers a submission dropped by
// a reset. Answers arrive in submission order, so while any is pending an
// anonymous answer belongs to a dropped submission, never to the current one.
func (c *Client) consumeStale(id string) bool {
	if c.pendingStale == 0 {
		return false
	}
	if id == "" {
		c.pendingStale--
		c.stale.Pop()
		c.logger.Debug("ignoring anonymous response for reset submission", "pending", c.pendingStale)
		return true
	}
	if c.stale.Contains(id) {
		c.stale.Remove(id)
		c.pendingStale--
		c.logger.Debug("ignoring response for reset submission", "submission_id", id)
		return true
	}
	return false
}

func (c *Client) send(op delta.Delta, id string) {
	outgoing := op
	for _, m := range c.modifiers {
		outgoing = m(outgoing)
	}
	cursor := c.selection()

	c.emitOperation(c.hooks.OnSend, domain.EventSend, outgoing, id, cursor)
	if err := c.server.SendOperation(c.revision, outgoing, cursor, id); err != nil {
		c.logger.Warn("send operation failed", "err", err, "revision", c.revision, "submission_id", id)
	}
}

func (c *Client) selection() *domain.Selection {
	if p, ok := c.editor.(ports.SelectionProvider); ok {
		return p.GetSelection()
	}
	return nil
}

func (c *Client) setState(next domain.State) {
	prev := c.state
	c.state = next
	if c.hooks.OnStateChange == nil {
		return
	}
	c.hooks.OnStateChange(&domain.StateChangeEvent{
		EventBase:    c.base(domain.EventStateChange),
		From:         prev.Kind(),
		To:           next.Kind(),
		BufferLength: bufferLength(next),
	})
}

func bufferLength(s domain.State) int {
	if b, ok := s.(domain.AwaitingWithBuffer); ok {
		return b.Buffer.Length()
	}
	return 0
}

func (c *Client) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: c.now(), Type: t, Revision: c.revision}
}

func (c *Client) emitOperation(hook func(*domain.OperationEvent), t domain.EventType, op delta.Delta, id string, cursor *domain.Selection) {
	if hook == nil {
		return
	}
	hook(&domain.OperationEvent{
		EventBase:    c.base(t),
		Operation:    op,
		SubmissionID: id,
		Cursor:       cursor,
	})
}
