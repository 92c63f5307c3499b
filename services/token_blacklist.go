package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// RevocationList remembers revoked tokens until they would have expired.
type RevocationList interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// tokenKey hashes the raw token so the store never holds a usable credential.
func tokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type RedisRevocationList struct {
	Client *redis.Client
	Prefix string
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{Client: client, Prefix: "revoked:"}
}

func (rl *RedisRevocationList) key(token string) string {
	return rl.Prefix + tokenKey(token)
}

func (rl *RedisRevocationList) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// Already expired; verification rejects it anyway.
		return nil
	}
	if err := rl.Client.Set(ctx, rl.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token in Redis: %w", err)
	}
	return nil
}

func (rl *RedisRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := rl.Client.Exists(ctx, rl.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocationList is the single-process fallback used when no Redis
// URL is configured.
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (rl *MemoryRevocationList) Revoke(_ context.Context, token string, until time.Time) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, exp := range rl.revoked {
		if !exp.After(now) {
			delete(rl.revoked, k)
		}
	}
	if until.After(now) {
		rl.revoked[tokenKey(token)] = until
	}
	return nil
}

func (rl *MemoryRevocationList) IsRevoked(_ context.Context, token string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	exp, ok := rl.revoked[tokenKey(token)]
	return ok && exp.After(rl.now()), nil
}
