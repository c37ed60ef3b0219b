package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without an address")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, false); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	if again := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); again != nil {
		t.Fatalf("expected nil client once redis is down")
	}
}

func TestBuildPostgresPoolRequiresURL(t *testing.T) {
	if _, err := BuildPostgresPool(context.Background(), &appconfig.Config{}); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
	if _, err := BuildPostgresPool(context.Background(), &appconfig.Config{DatabaseURL: "::not a url"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestBuildMongoDatabaseSkippedForPostgres(t *testing.T) {
	client, db, err := BuildMongoDatabase(context.Background(), &appconfig.Config{AppointmentStore: "postgres"})
	if err != nil || client != nil || db != nil {
		t.Fatalf("expected no mongo wiring, got client=%v db=%v err=%v", client, db, err)
	}
	if _, _, err := BuildMongoDatabase(context.Background(), &appconfig.Config{AppointmentStore: "mongo"}); err == nil {
		t.Fatalf("expected error without MONGO_URI")
	}
}
