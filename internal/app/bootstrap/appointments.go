package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wolfman30/careconnect/internal/appointments"
	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/meeting"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// BuildMeetingClient wires the OAuth token provider into a meetings client.
func BuildMeetingClient(cfg *appconfig.Config) (*meeting.Client, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	tokens, err := meeting.NewTokenProvider(meeting.TokenConfig{
		AccountID:    cfg.ZoomAccountID,
		ClientID:     cfg.ZoomClientID,
		ClientSecret: cfg.ZoomClientSecret,
		TokenURL:     cfg.ZoomTokenURL,
		Timeout:      cfg.MeetingTimeout,
	})
	if err != nil {
		return nil, err
	}
	return meeting.NewClient(meeting.Config{
		BaseURL:  cfg.ZoomBaseURL,
		Password: cfg.ZoomMeetingPassword,
		Timeout:  cfg.MeetingTimeout,
	}, tokens)
}

// BuildAppointmentRepository picks the configured store and fronts it with
// the Redis read-through cache when a client is available.
func BuildAppointmentRepository(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, mongoDB *mongo.Database, redisClient *redis.Client, logger *logging.Logger) (appointments.Repository, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var repo appointments.Repository
	switch cfg.AppointmentStore {
	case "mongo":
		if mongoDB == nil {
			return nil, errors.New("bootstrap: mongo database is required for the mongo appointment store")
		}
		mongoRepo := appointments.NewMongoRepository(mongoDB)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: ensure appointment indexes: %w", err)
		}
		repo = mongoRepo
	case "postgres", "":
		if pool == nil {
			return nil, errors.New("bootstrap: postgres pool is required for the postgres appointment store")
		}
		repo = appointments.NewPostgresRepository(pool)
	default:
		return nil, fmt.Errorf("bootstrap: unknown appointment store %q", cfg.AppointmentStore)
	}

	if redisClient != nil {
		logger.Info("appointment cache enabled")
		return appointments.NewCachedRepository(repo, redisClient, 0, logger.Component("appointment-cache")), nil
	}
	return repo, nil
}

// BuildBookingGuards returns the slot locker and idempotency store. Redis
// makes both safe across replicas; without it they are process-local.
func BuildBookingGuards(redisClient *redis.Client) (appointments.SlotLocker, appointments.IdempotencyStore) {
	if redisClient == nil {
		return appointments.NewMemorySlotLocker(), appointments.NewMemoryIdempotencyStore()
	}
	return appointments.NewRedisSlotLocker(redisClient), appointments.NewRedisIdempotencyStore(redisClient)
}
