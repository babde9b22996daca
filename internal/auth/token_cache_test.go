package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisTokenCacheRoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisTokenCache(client)
	ctx := context.Background()

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached, "empty cache")

	require.NoError(t, cache.Set(ctx, "token-1", 300))

	cached, err = cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "token-1", cached.Token)
	assert.Equal(t, 300*time.Second+TokenExpiryBuffer, mr.TTL(M2MTokenKey))
}

func TestRedisTokenCacheHonoursExpiryBuffer(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisTokenCache(client)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return start }
	require.NoError(t, cache.Set(ctx, "token-1", 120))

	cache.now = func() time.Time { return start.Add(59 * time.Second) }
	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cached)

	cache.now = func() time.Time { return start.Add(61 * time.Second) }
	cached, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached, "token inside the buffer must not be served")
}

func TestRedisTokenCacheCorruptEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(M2MTokenKey, "{not json"))

	_, err := NewRedisTokenCache(client).Get(context.Background())
	assert.Error(t, err)
}

func TestRedisTokenCacheUnavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	cache := NewRedisTokenCache(client)
	_, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "token", 60))
}

func TestCachedTokenValidAt(t *testing.T) {
	now := time.Now()
	assert.False(t, (*CachedToken)(nil).ValidAt(now))
	assert.False(t, (&CachedToken{ExpiresAt: now.Add(time.Hour)}).ValidAt(now))
	assert.True(t, (&CachedToken{Token: "t", ExpiresAt: now.Add(time.Hour)}).ValidAt(now))
	assert.False(t, (&CachedToken{Token: "t", ExpiresAt: now.Add(30 * time.Second)}).ValidAt(now))
}

func TestRedisTokenCacheIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := ConnectRedis(ctx, host+":"+port.Port())
	require.NoError(t, err)
	defer client.Close()

	cache := NewRedisTokenCache(client)
	require.NoError(t, cache.Set(ctx, "integration-token", 300))

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "integration-token", cached.Token)
}
