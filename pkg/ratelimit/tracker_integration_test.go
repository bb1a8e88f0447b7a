//go:build integration

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newRedisTracker(client *redis.Client) *Tracker {
	tr := NewTracker(client, zerolog.New(os.Stderr).Level(zerolog.Disabled))
	tr.ThrottleDelay = 200 * time.Millisecond
	return tr
}

func TestTracker_Integration_GetState_Default(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	state, err := newRedisTracker(redisClient).GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy {
		t.Error("empty Redis should yield a healthy default state")
	}
}

func TestTracker_Integration_SharedAcrossTrackers(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	writer := newRedisTracker(redisClient)
	reader := newRedisTracker(redisClient)

	if err := writer.UpdateFromHeaders(ctx, rateHeaders(3, 60)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err := reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != 3 {
		t.Errorf("Remaining = %d, want 3", state.Remaining)
	}
	if state.LastUpdate.IsZero() {
		t.Error("LastUpdate was not stored")
	}

	allowed, err := reader.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("ShouldAllowRequest() = true, want false for critical state written by another tracker")
	}
}

func TestTracker_Integration_ShouldAllowRequest_Warning(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := newRedisTracker(redisClient)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, rateHeaders(15, 60)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(ctx)
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("ShouldAllowRequest() = false, want true for warning state")
	}
	if duration < tracker.ThrottleDelay {
		t.Errorf("throttle duration = %v, want >= %v", duration, tracker.ThrottleDelay)
	}
}

func TestTracker_Integration_KeysExpire(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := newRedisTracker(redisClient)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, rateHeaders(3, 2)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	ttl, err := redisClient.TTL(ctx, RedisKeyRemaining).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 2*time.Second+time.Minute {
		t.Errorf("TTL = %v, want in (0, 62s]", ttl)
	}
}
