package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotesCache keeps each owner's full note list in Redis. Writers invalidate
// the owner's entry and bump its generation; readers repopulate it on a miss,
// but only if the generation they read before querying the store is still
// current.
type NotesCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type notesCacheEntry struct {
	Notes    []*model.Note `json:"notes"`
	CachedAt time.Time     `json:"cached_at"`
}

func NewNotesCache(client *redis.Client, ttl time.Duration) *NotesCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &NotesCache{client: client, ttl: ttl, prefix: "user_notes:"}
}

func (nc *NotesCache) key(userID string) string {
	return nc.prefix + userID
}

func (nc *NotesCache) genKey(userID string) string {
	return nc.prefix + "gen:" + userID
}

// Get returns the cached list and whether it was present.
func (nc *NotesCache) Get(ctx context.Context, userID string) ([]*model.Note, bool, error) {
	if userID == "" {
		return nil, false, errors.New("userID cannot be empty")
	}

	data, err := nc.client.Get(ctx, nc.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		utils.TrackCacheOperation("notes", false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get notes from cache: %w", err)
	}

	var entry notesCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is a miss; drop it so the next read repopulates.
		nc.client.Del(ctx, nc.key(userID))
		utils.TrackCacheOperation("notes", false)
		return nil, false, nil
	}
	utils.TrackCacheOperation("notes", true)
	return entry.Notes, true, nil
}

// Generation returns the owner's invalidation counter, zero before the
// first write.
func (nc *NotesCache) Generation(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("userID cannot be empty")
	}
	gen, err := nc.client.Get(ctx, nc.genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get notes cache generation: %w", err)
	}
	return gen, nil
}

var errStaleGeneration = errors.New("notes cache generation changed")

// Set stores notes read at generation. The write is dropped when the owner
// has been invalidated since, or is invalidated while the write runs.
func (nc *NotesCache) Set(ctx context.Context, userID string, generation int64, notes []*model.Note) error {
	if userID == "" {
		return errors.New("userID cannot be empty")
	}

	data, err := json.Marshal(notesCacheEntry{Notes: notes, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	genKey := nc.genKey(userID)
	err = nc.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, nc.key(userID), data, nc.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		utils.Logger.Debug("skipped stale notes cache write", zap.String("user_id", userID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cache notes: %w", err)
	}
	return nil
}

// Invalidate drops the owner's list and bumps its generation in one
// transaction, so a reader still holding the old generation cannot
// repopulate it.
func (nc *NotesCache) Invalidate(ctx context.Context, userID string) error {
	_, err := nc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, nc.genKey(userID))
		pipe.Del(ctx, nc.key(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate notes cache: %w", err)
	}
	return nil
}

func (nc *NotesCache) Ping(ctx context.Context) error {
	return nc.client.Ping(ctx).Err()
}
