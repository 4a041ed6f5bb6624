package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/otsync/internal/logging"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
	mapset "github.com/deckarep/golang-set/v2"
)

// Submission is an operation a connection sent to the hub.
type Submission struct {
	DocumentID   string
	Connection   string
	Revision     int
	Operation    delta.Delta
	Cursor       *domain.Selection
	SubmissionID string
}

// RejectFunc decides whether the hub rolls back a submission it would otherwise accept.
type RejectFunc func(Submission) bool

// ConnectionObserver is told when a connection drops or comes back.
type ConnectionObserver interface {
	Disconnected(ctx context.Context)
	Connected(ctx context.Context) error
}

// Hub is an in-memory authoritative OT server. It keeps the revision history of
// each document, transforms stale submissions across it, acks the sender and
// broadcasts accepted operations to the other connections.
//
// Submissions are queued by Conn.SendOperation and handled by Process; events are
// queued per connection and handed to the client by Conn.Deliver. Nothing is ever
// called back from inside SendOperation, so clients are never re-entered.
// Hub is safe for concurrent use.
type Hub struct {
	mu      sync.Mutex
	docs    map[string]*document
	conns   map[string]*Conn
	pending []Submission
	seen    mapset.Set[string]

	store  ports.SnapshotStore
	reject RejectFunc
	logger *slog.Logger
	now    func() time.Time
}

type document struct {
	id       string
	base     int
	contents delta.Delta
	history  []delta.Delta
}

func (d *document) revision() int { return d.base + len(d.history) }

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSnapshotStore persists a snapshot after every accepted operation.
func WithSnapshotStore(store ports.SnapshotStore) HubOption {
	return func(h *Hub) {
		h.store = store
	}
}

// WithRejectFunc forces rollbacks for the submissions fn selects.
func WithRejectFunc(fn RejectFunc) HubOption {
	return func(h *Hub) {
		h.reject = fn
	}
}

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		docs:  make(map[string]*document),
		conns: make(map[string]*Conn),
		seen:  mapset.NewThreadUnsafeSet[string](),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	return h
}

// CreateDocument registers a document with contents at revision.
func (h *Hub) CreateDocument(documentID string, contents delta.Delta, revision int) error {
	if !contents.IsDocument() {
		return delta.ErrNotDocument
	}
	if revision < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRevision, revision)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.docs[documentID]; ok {
		return fmt.Errorf("document %q already exists", documentID)
	}
	h.docs[documentID] = &document{id: documentID, base: revision, contents: contents}
	return nil
}

// Snapshot implements ports.SnapshotSource with the live document state.
func (h *Hub) Snapshot(ctx context.Context, documentID string) (*domain.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	doc, ok := h.docs[documentID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return h.snapshot(doc), nil
}

func (h *Hub) snapshot(doc *document) *domain.Snapshot {
	return &domain.Snapshot{
		DocumentID: doc.id,
		Revision:   doc.revision(),
		Contents:   doc.contents,
		UpdatedAt:  h.now().UTC(),
	}
}

// Connect opens a connection named name on a document.
func (h *Hub) Connect(documentID, name string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.docs[documentID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, documentID)
	}
	if _, ok := h.conns[name]; ok {
		return nil, fmt.Errorf("connection %q already exists", name)
	}
	c := &Conn{hub: h, name: name, documentID: documentID, connected: true}
	h.conns[name] = c
	return c, nil
}

// Pending returns the number of queued submissions.
func (h *Hub) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Cursors returns the last cursor each connection reported on a document.
func (h *Hub) Cursors(documentID string) map[string]*domain.Selection {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]*domain.Selection)
	for name, c := range h.conns {
		if c.documentID == documentID {
			out[name] = c.cursor
		}
	}
	return out
}

// Process handles every queued submission in arrival order and returns how many
// were accepted.
func (h *Hub) Process(ctx context.Context) (int, error) {
	h.mu.Lock()
	batch := h.pending
	h.pending = nil

	accepted := 0
	var snaps []*domain.Snapshot
	for _, sub := range batch {
		doc, err := h.accept(sub)
		if err != nil {
			h.logger.Debug("submission rejected", "err", err, "connection", sub.Connection, "revision", sub.Revision)
			h.queue(sub.Connection, event{kind: eventRollback, id: sub.SubmissionID})
			continue
		}
		accepted++
		if h.store != nil {
			snaps = append(snaps, h.snapshot(doc))
		}
	}
	h.mu.Unlock()

	var errs []error
	for _, snap := range snaps {
		err := h.store.Save(ctx, snap)
		if errors.Is(err, domain.ErrStaleSnapshot) {
			// An overlapping Process already stored a newer revision.
			h.logger.Debug("skipping stale snapshot", "document", snap.DocumentID, "revision", snap.Revision)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to save snapshot of %s: %w", snap.DocumentID, err))
		}
	}
	return accepted, errors.Join(errs...)
}

func (h *Hub) accept(sub Submission) (*document, error) {
	doc, ok := h.docs[sub.DocumentID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	if sub.Revision < doc.base || sub.Revision > doc.revision() {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", domain.ErrInvalidRevision, sub.Revision, doc.base, doc.revision())
	}
	if sub.SubmissionID != "" && h.seen.Contains(sub.SubmissionID) {
		return nil, fmt.Errorf("duplicate submission %s", sub.SubmissionID)
	}
	if h.reject != nil && h.reject(sub) {
		return nil, errors.New("rejected by policy")
	}

	op := sub.Operation
	for _, concurrent := range doc.history[sub.Revision-doc.base:] {
		op = concurrent.Transform(op, true)
	}
	contents, err := delta.Apply(doc.contents, op)
	if err != nil {
		return nil, err
	}

	doc.contents = contents
	doc.history = append(doc.history, op)
	if sub.SubmissionID != "" {
		h.seen.Add(sub.SubmissionID)
	}

	h.queue(sub.Connection, event{kind: eventAck, id: sub.SubmissionID})
	names := make([]string, 0, len(h.conns))
	for name := range h.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c := h.conns[name]; name != sub.Connection && c.documentID == doc.id {
			h.queue(name, event{kind: eventOperation, op: op})
		}
	}
	return doc, nil
}

// queue must be called with h.mu held.
func (h *Hub) queue(name string, ev event) {
	c, ok := h.conns[name]
	if !ok || !c.connected {
		return
	}
	c.events = append(c.events, ev)
}

type eventKind int

const (
	eventOperation eventKind = iota
	eventAck
	eventRollback
)

type event struct {
	kind eventKind
	op   delta.Delta
	id   string
}

// Conn is one client's connection to a Hub. It implements ports.ServerAdapter.
type Conn struct {
	hub        *Hub
	name       string
	documentID string

	// Guarded by hub.mu.
	connected bool
	events    []event
	cursor    *domain.Selection
	callbacks ports.Callbacks
	observers []ConnectionObserver
}

// Name returns the connection name.
func (c *Conn) Name() string { return c.name }

// RegisterCallbacks installs the client's event handlers.
func (c *Conn) RegisterCallbacks(cb ports.Callbacks) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.callbacks = cb
}

// SendOperation queues a submission for the next Process call.
func (c *Conn) SendOperation(revision int, op delta.Delta, cursor *domain.Selection, submissionID string) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.connected {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, c.name)
	}
	c.hub.pending = append(c.hub.pending, Submission{
		DocumentID:   c.documentID,
		Connection:   c.name,
		Revision:     revision,
		Operation:    op,
		Cursor:       cursor,
		SubmissionID: submissionID,
	})
	if cursor != nil {
		sel := *cursor
		c.cursor = &sel
	}
	return nil
}

// SendCursor records the connection's cursor.
func (c *Conn) SendCursor(cursor *domain.Selection) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.connected {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, c.name)
	}
	if cursor == nil {
		c.cursor = nil
		return nil
	}
	sel := *cursor
	c.cursor = &sel
	return nil
}

// Pending returns the number of events waiting for Deliver.
func (c *Conn) Pending() int {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return len(c.events)
}

// Deliver hands every queued event to the registered callbacks, in order.
// It returns the number delivered and the errors the callbacks reported.
func (c *Conn) Deliver() (int, error) {
	return c.deliver(-1)
}

// DeliverOne hands at most one queued event to the callbacks.
func (c *Conn) DeliverOne() (bool, error) {
	n, err := c.deliver(1)
	return n == 1, err
}

func (c *Conn) deliver(limit int) (int, error) {
	c.hub.mu.Lock()
	events := c.events
	if limit >= 0 && len(events) > limit {
		events = events[:limit]
	}
	c.events = c.events[len(events):]
	cb := c.callbacks
	c.hub.mu.Unlock()

	var errs []error
	for _, ev := range events {
		switch ev.kind {
		case eventOperation:
			if cb.Operation != nil {
				cb.Operation(ev.op)
			}
		case eventAck:
			if cb.Ack != nil {
				if err := cb.Ack(ev.id); err != nil {
					errs = append(errs, err)
				}
			}
		case eventRollback:
			if cb.Rollback != nil {
				if err := cb.Rollback(ev.id); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return len(events), errors.Join(errs...)
}

// Observe registers obs for connectivity changes.
func (c *Conn) Observe(obs ConnectionObserver) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// Connected reports whether the connection is up.
func (c *Conn) Connected() bool {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.connected
}

// Disconnect drops the connection and every undelivered event, then tells the
// observers.
func (c *Conn) Disconnect(ctx context.Context) {
	c.hub.mu.Lock()
	if !c.connected {
		c.hub.mu.Unlock()
		return
	}
	c.connected = false
	c.events = nil
	c.cursor = nil
	observers := append([]ConnectionObserver(nil), c.observers...)
	c.hub.mu.Unlock()

	for _, obs := range observers {
		obs.Disconnected(ctx)
	}
}

// Reconnect brings the connection back and tells the observers, which usually
// resync the client. It returns the first observer error.
func (c *Conn) Reconnect(ctx context.Context) error {
	c.hub.mu.Lock()
	if c.connected {
		c.hub.mu.Unlock()
		return nil
	}
	c.connected = true
	observers := append([]ConnectionObserver(nil), c.observers...)
	c.hub.mu.Unlock()

	for _, obs := range observers {
		if err := obs.Connected(ctx); err != nil {
			return err
		}
	}
	return nil
}
