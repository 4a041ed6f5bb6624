package otsync

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/otsync/internal/runtime"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
)

// Client is the high-level entry point for the otsync library.
// It wraps the internal state machine and provides a simplified API for consumers.
type Client struct {
	runtime     *runtime.Client
	server      ports.ServerAdapter
	editor      ports.EditorAdapter
	hooks       domain.LifecycleHooks
	modifiers   []ports.Modifier
	resolver    domain.AuthorResolver
	runtimeOpts []runtime.Option
	logger      *slog.Logger
	DocumentID  string
}

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithLifecycleHooks registers observability hooks. Calling it more than once
// chains the hook sets.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Client) {
		c.hooks = domain.ChainHooks(c.hooks, hooks)
	}
}

// WithModifiers registers outgoing modifiers, run in the order given.
func WithModifiers(mods ...ports.Modifier) Option {
	return func(c *Client) {
		c.modifiers = append(c.modifiers, mods...)
	}
}

// WithAuthorResolver maps author ids to display names in apply errors.
func WithAuthorResolver(resolve domain.AuthorResolver) Option {
	return func(c *Client) {
		c.resolver = resolve
	}
}

// WithLogger sets a custom structured logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDocumentID labels the client's log lines with the document it edits.
func WithDocumentID(id string) Option {
	return func(c *Client) {
		c.DocumentID = id
	}
}

// WithRuntimeOptions passes options straight to the state machine.
func WithRuntimeOptions(opts ...runtime.Option) Option {
	return func(c *Client) {
		c.runtimeOpts = append(c.runtimeOpts, opts...)
	}
}

// New wires a client to a server connection and an editor surface. The client
// starts Synchronized at initialRevision, which must match the document the
// editor currently holds.
func New(initialRevision int, server ports.ServerAdapter, editor ports.EditorAdapter, opts ...Option) (*Client, error) {
	c := &Client{server: server, editor: editor}
	for _, opt := range opts {
		opt(c)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if c.DocumentID != "" {
		c.logger = c.logger.With("document", c.DocumentID)
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLifecycleHooks(c.hooks),
		runtime.WithLogger(c.logger),
		runtime.WithModifiers(c.modifiers...),
		runtime.WithAuthorResolver(c.resolver),
	}
	runtimeOpts = append(runtimeOpts, c.runtimeOpts...)

	rt, err := runtime.NewClient(initialRevision, server, editor, runtimeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start client: %w", err)
	}
	c.runtime = rt
	return c, nil
}

// AddModifier appends fn to the outgoing pipeline.
func (c *Client) AddModifier(fn ports.Modifier) {
	c.runtime.AddModifier(fn)
}

// IsSynchronized reports whether nothing is in flight or buffered.
func (c *Client) IsSynchronized() bool {
	return c.runtime.IsSynchronized()
}

// ResetClientWithRevision discards in-flight and buffered edits and adopts revision.
// Call it after loading a catch-up snapshot into the editor.
func (c *Client) ResetClientWithRevision(revision int) error {
	return c.runtime.ResetClientWithRevision(revision)
}

// ApplyOperation applies op to the editor. Failures are reported through the
// OnApplyError hook, never returned.
func (c *Client) ApplyOperation(op delta.Delta) {
	c.runtime.ApplyOperation(op)
}

// SendCursor forwards the local selection to the server.
func (c *Client) SendCursor(sel *domain.Selection) error {
	return c.runtime.SendCursor(sel)
}

// State returns the current synchronization state.
func (c *Client) State() domain.State {
	return c.runtime.State()
}

// Revision returns the last server revision incorporated.
func (c *Client) Revision() int {
	return c.runtime.Revision()
}

// Editor returns the editor surface the client drives.
func (c *Client) Editor() ports.EditorAdapter {
	return c.editor
}

// Close stops listening for editor changes.
func (c *Client) Close() {
	c.runtime.Close()
}
