package reconnect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/otsync/internal/logging"
	"github.com/aretw0/otsync/pkg/ports"
)

// Resetter is the part of the client the coordinator drives.
type Resetter interface {
	ResetClientWithRevision(revision int) error
}

// Coordinator resyncs a client after its connection comes back.
type Coordinator struct {
	documentID string
	client     Resetter
	editor     ports.EditorAdapter
	source     ports.SnapshotSource
	status     ports.StatusStore
	timeout    time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	online bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithTimeout bounds the snapshot fetch. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// New creates a coordinator for documentID. It starts online.
func New(documentID string, client Resetter, editor ports.EditorAdapter, source ports.SnapshotSource, status ports.StatusStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		documentID: documentID,
		client:     client,
		editor:     editor,
		source:     source,
		status:     status,
		online:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c
}

// Online reports whether the last resync succeeded and no drop happened since.
func (c *Coordinator) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Disconnected shows the offline banner and locks the document.
func (c *Coordinator) Disconnected(ctx context.Context) {
	c.mu.Lock()
	c.online = false
	c.mu.Unlock()

	c.logger.Warn("connection lost", "document", c.documentID)
	if err := c.status.SetReadOnly(ctx, true); err != nil {
		c.logger.Error("failed to lock document", "err", err)
	}
	if err := c.status.SetBanner(ctx, ports.BannerOffline, "You are offline. Changes are paused until the connection is back."); err != nil {
		c.logger.Error("failed to show banner", "err", err)
	}
}

// Connected resyncs the editor and client from a fresh snapshot, then clears the
// banner and unlocks the document. On failure the document stays locked behind a
// resync-failed banner and the error is returned.
func (c *Coordinator) Connected(ctx context.Context) error {
	if err := c.status.SetBanner(ctx, ports.BannerReconnecting, "Reconnecting..."); err != nil {
		c.logger.Error("failed to show banner", "err", err)
	}

	if err := c.resync(ctx); err != nil {
		c.logger.Error("resync failed", "document", c.documentID, "err", err)
		if bErr := c.status.SetBanner(ctx, ports.BannerResyncFailed, "Could not load the latest version. Reload to keep editing."); bErr != nil {
			c.logger.Error("failed to show banner", "err", bErr)
		}
		return err
	}

	if err := c.status.SetBanner(ctx, ports.BannerNone, ""); err != nil {
		return fmt.Errorf("failed to clear banner: %w", err)
	}
	if err := c.status.SetReadOnly(ctx, false); err != nil {
		return fmt.Errorf("failed to unlock document: %w", err)
	}

	c.mu.Lock()
	c.online = true
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) resync(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	snap, err := c.source.Snapshot(ctx, c.documentID)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot of %s: %w", c.documentID, err)
	}
	if err := c.editor.SetContents(snap.Contents); err != nil {
		return fmt.Errorf("failed to load snapshot into editor: %w", err)
	}
	if err := c.client.ResetClientWithRevision(snap.Revision); err != nil {
		return fmt.Errorf("failed to reset client: %w", err)
	}

	c.logger.Info("resynced", "document", c.documentID, "revision", snap.Revision)
	return nil
}
