package loam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/otsync/internal/logging"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
)

// SnapshotStore implements ports.SnapshotStore on a Loam document repository, one
// file per document. The revision is kept in the frontmatter and the contents in
// the body.
type SnapshotStore struct {
	Repo   *loam.TypedRepository[SnapshotMetadata]
	logger *slog.Logger

	// mu serializes the revision check with the write for this process.
	mu sync.Mutex
}

type Option func(*SnapshotStore)

// WithLogger sets the logger used for repository diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SnapshotStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a snapshot store over an existing typed repository.
func New(repo *loam.TypedRepository[SnapshotMetadata], opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		Repo:   repo,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open initializes a Loam repository in dir, creating it if needed, and returns a
// store over it. Versioning is off: every save simply rewrites the file.
func Open(dir string, opts ...Option) (*SnapshotStore, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithVersioning(false),
		loam.WithForceTemp(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[SnapshotMetadata](repo), opts...), nil
}

// Save writes snap unless the stored snapshot has a higher revision.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	contents, err := json.Marshal(snap.Contents)
	if err != nil {
		return fmt.Errorf("failed to marshal contents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx, snap.DocumentID)
	switch {
	case err == nil && snap.Revision < current.Revision:
		return fmt.Errorf("%w: %s at %d, stored %d", domain.ErrStaleSnapshot, snap.DocumentID, snap.Revision, current.Revision)
	case err != nil && !errors.Is(err, domain.ErrSnapshotNotFound):
		return err
	}

	meta := SnapshotMetadata{
		DocumentID: snap.DocumentID,
		Revision:   snap.Revision,
	}
	if !snap.UpdatedAt.IsZero() {
		meta.UpdatedAt = snap.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	err = s.Repo.Save(ctx, &loam.DocumentModel[SnapshotMetadata]{
		ID:      snap.DocumentID,
		Content: string(contents),
		Data:    meta,
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", snap.DocumentID, err)
	}
	return nil
}

// Snapshot loads the stored snapshot of a document.
func (s *SnapshotStore) Snapshot(ctx context.Context, documentID string) (*domain.Snapshot, error) {
	return s.read(ctx, documentID)
}

func (s *SnapshotStore) read(ctx context.Context, documentID string) (*domain.Snapshot, error) {
	doc, err := s.Repo.Get(ctx, documentID)
	if err != nil {
		// Loam reports a missing file as an ordinary error; tell it apart by listing.
		if ok, listErr := s.exists(ctx, documentID); listErr == nil && !ok {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", documentID, err)
	}

	var contents delta.Delta
	if err := json.Unmarshal([]byte(strings.TrimSpace(doc.Content)), &contents); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", documentID, err)
	}

	snap := &domain.Snapshot{
		DocumentID: documentID,
		Revision:   doc.Data.Revision,
		Contents:   contents,
	}
	if doc.Data.UpdatedAt != "" {
		at, err := time.Parse(time.RFC3339Nano, doc.Data.UpdatedAt)
		if err != nil {
			s.logger.Warn("ignoring unreadable snapshot timestamp", "document", documentID, "updated_at", doc.Data.UpdatedAt, "err", err)
		} else {
			snap.UpdatedAt = at
		}
	}
	return snap, nil
}

// Delete removes the snapshot file of a document. Deleting a missing document is
// not an error.
func (s *SnapshotStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.exists(ctx, documentID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.Repo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("loam delete failed for %s: %w", documentID, err)
	}
	return nil
}

// List returns the stored document ids in order.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := doc.Data.DocumentID
		if id == "" {
			id = trimExtension(doc.ID)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *SnapshotStore) exists(ctx context.Context, documentID string) (bool, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(ids, documentID)
	return i < len(ids) && ids[i] == documentID, nil
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
