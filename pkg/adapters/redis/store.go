package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/otsync/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// SnapshotStore implements ports.SnapshotStore using Redis.
// Each document is stored as JSON next to its revision; an index ZSET tracks the
// documents for listing.
type SnapshotStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*SnapshotStore)

// WithTTL sets the expiration for snapshots.
func WithTTL(ttl time.Duration) Option {
	return func(s *SnapshotStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for snapshots.
func WithPrefix(prefix string) Option {
	return func(s *SnapshotStore) {
		s.prefix = prefix
	}
}

const defaultPrefix = "otsync:snapshot:"

// New creates a new Redis snapshot store with options.
func New(address, password string, db int, opts ...Option) *SnapshotStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis snapshot store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *SnapshotStore {
	store := &SnapshotStore{
		client: client,
		prefix: defaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *SnapshotStore) key(documentID string) string {
	return s.prefix + documentID
}

func (s *SnapshotStore) revisionKey(documentID string) string {
	return s.prefix + documentID + ":rev"
}

func (s *SnapshotStore) indexKey() string {
	return s.prefix + "index"
}

// saveScript writes the snapshot only when it is not older than the stored one, so
// concurrent writers never move a document back in time.
var saveScript = backend.NewScript(`
local current = tonumber(redis.call("get", KEYS[2]) or "-1")
if tonumber(ARGV[1]) < current then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
	redis.call("set", KEYS[2], ARGV[1], "PX", ARGV[3])
else
	redis.call("set", KEYS[1], ARGV[2])
	redis.call("set", KEYS[2], ARGV[1])
end
return 1
`)

// Save persists the snapshot to Redis.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	keys := []string{s.key(snap.DocumentID), s.revisionKey(snap.DocumentID)}
	written, err := saveScript.Run(ctx, s.client, keys, snap.Revision, data, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("%w: %s at %d", domain.ErrStaleSnapshot, snap.DocumentID, snap.Revision)
	}

	// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	err = s.client.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: snap.DocumentID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index snapshot: %w", err)
	}
	return nil
}

// Snapshot retrieves the snapshot of a document from Redis.
func (s *SnapshotStore) Snapshot(ctx context.Context, documentID string) (*domain.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key(documentID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Delete removes the snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, documentID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(documentID), s.revisionKey(documentID))
	pipe.ZRem(ctx, s.indexKey(), documentID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the stored document ids, pruning expired entries from the index.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired snapshots: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return ids, nil
}

// Close closes the redis client.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
