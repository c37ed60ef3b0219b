package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careconnect/pkg/logging"
)

const defaultCacheTTL = 10 * time.Minute

// CachedRepository serves GetByID from Redis and falls back to the wrapped
// repository on a miss. Cache failures never fail a request.
type CachedRepository struct {
	Repository
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedRepository wraps repo with a read-through cache.
func NewCachedRepository(repo Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if repo == nil || client == nil {
		panic("appointments: repository and redis client required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{Repository: repo, redis: client, ttl: ttl, logger: logger}
}

func (r *CachedRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	data, err := r.redis.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var appt Appointment
		if jerr := json.Unmarshal(data, &appt); jerr == nil {
			return &appt, nil
		}
		r.logger.Warn("discarding undecodable cached appointment", "appointment_id", id)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("appointment cache read failed", "error", err, "appointment_id", id)
	}

	appt, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(appt); err == nil {
		if err := r.redis.Set(ctx, cacheKey(id), data, r.ttl).Err(); err != nil {
			r.logger.Warn("appointment cache write failed", "error", err, "appointment_id", id)
		}
	}
	return appt, nil
}

func (r *CachedRepository) Delete(ctx context.Context, id string) (*Appointment, error) {
	appt, err := r.Repository.Delete(ctx, id)
	if delErr := r.redis.Del(ctx, cacheKey(id)).Err(); delErr != nil {
		r.logger.Warn("appointment cache evict failed", "error", delErr, "appointment_id", id)
	}
	return appt, err
}

func cacheKey(id string) string {
	return fmt.Sprintf("appointment:%s", id)
}

var _ Repository = (*CachedRepository)(nil)
