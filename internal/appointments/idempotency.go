package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers which appointment an Idempotency-Key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (appointmentID string, found bool, err error)
	Save(ctx context.Context, key, appointmentID string) error
}

// RedisIdempotencyStore keeps keys for 24 hours.
type RedisIdempotencyStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	if client == nil {
		panic("appointments: redis client required")
	}
	return &RedisIdempotencyStore{redis: client, ttl: idempotencyTTL}
}

func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := s.redis.Get(ctx, idempotencyKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("appointments: idempotency lookup failed: %w", err)
	}
	return id, true, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key, appointmentID string) error {
	if err := s.redis.Set(ctx, idempotencyKey(key), appointmentID, s.ttl).Err(); err != nil {
		return fmt.Errorf("appointments: idempotency save failed: %w", err)
	}
	return nil
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:appoint:%s", key)
}

// MemoryIdempotencyStore is the single-process variant.
type MemoryIdempotencyStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{keys: make(map[string]string)}
}

func (s *MemoryIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[key]
	return id, ok, nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, key, appointmentID string) error {
	s.mu.Lock()
	s.keys[key] = appointmentID
	s.mu.Unlock()
	return nil
}

var (
	_ IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ IdempotencyStore = (*MemoryIdempotencyStore)(nil)
)
