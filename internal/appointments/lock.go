package appointments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a slot stays reserved while a meeting is
// being provisioned.
const DefaultLockTTL = 30 * time.Second

// ReleaseFunc gives a reserved slot back.
type ReleaseFunc func(ctx context.Context) error

// SlotLocker reserves a booking ref for the duration of one booking attempt.
// Acquire returns ErrSlotTaken when another attempt holds the ref.
type SlotLocker interface {
	Acquire(ctx context.Context, ref string, ttl time.Duration) (ReleaseFunc, error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotLocker reserves slots with SET NX PX so reservations hold across
// API replicas.
type RedisSlotLocker struct {
	redis *redis.Client
}

func NewRedisSlotLocker(client *redis.Client) *RedisSlotLocker {
	if client == nil {
		panic("appointments: redis client required")
	}
	return &RedisSlotLocker{redis: client}
}

func (l *RedisSlotLocker) Acquire(ctx context.Context, ref string, ttl time.Duration) (ReleaseFunc, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	key := lockKey(ref)
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("appointments: slot lock failed: %w", err)
	}
	if !ok {
		return nil, ErrSlotTaken
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.redis, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("appointments: slot unlock failed: %w", err)
		}
		return nil
	}, nil
}

func lockKey(ref string) string {
	return fmt.Sprintf("appointment:lock:%s", ref)
}

// MemorySlotLocker reserves slots within one process.
type MemorySlotLocker struct {
	mu   sync.Mutex
	held map[string]memoryLock
	now  func() time.Time
}

type memoryLock struct {
	token   string
	expires time.Time
}

func NewMemorySlotLocker() *MemorySlotLocker {
	return &MemorySlotLocker{held: make(map[string]memoryLock), now: time.Now}
}

func (l *MemorySlotLocker) Acquire(ctx context.Context, ref string, ttl time.Duration) (ReleaseFunc, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[ref]; ok && now.Before(cur.expires) {
		return nil, ErrSlotTaken
	}
	token := uuid.NewString()
	l.held[ref] = memoryLock{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[ref]; ok && cur.token == token {
			delete(l.held, ref)
		}
		return nil
	}, nil
}

var (
	_ SlotLocker = (*RedisSlotLocker)(nil)
	_ SlotLocker = (*MemorySlotLocker)(nil)
)
