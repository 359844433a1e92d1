package session_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/session"
)

func setupRedisRepo(t *testing.T, ttl time.Duration) (*session.RedisRepository, *redis.Client) {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("skipping: cannot reach test redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return session.NewRedisRepository(client, "quizdash:test:"+t.Name()+":", ttl), client
}

func TestRedisRepository_SaveGetDelete(t *testing.T) {
	repo, _ := setupRedisRepo(t, time.Minute)
	ctx := context.Background()

	rec := sampleRecord(time.Now().UTC())
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Principal, got.Principal)
	assert.Equal(t, rec.SealedTokens, got.SealedTokens)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	_, err = repo.Get(ctx, rec.ID)
	assert.True(t, errors.Is(err, session.ErrNotFound))
}

func TestRedisRepository_TTL(t *testing.T) {
	repo, client := setupRedisRepo(t, time.Minute)
	ctx := context.Background()

	rec := sampleRecord(time.Now().UTC())
	require.NoError(t, repo.Save(ctx, rec))

	ttl, err := client.TTL(ctx, "quizdash:test:"+t.Name()+":"+rec.ID.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)
	assert.LessOrEqual(t, ttl, time.Minute)
}
