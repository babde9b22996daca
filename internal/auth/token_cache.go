package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// M2MTokenKey is the Redis key holding the service token.
	M2MTokenKey = "m2m_token"
	// TokenExpiryBuffer is how long before expiry a cached token stops being served.
	TokenExpiryBuffer = 60 * time.Second
)

type CachedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether the token can still be used at now, keeping the
// expiry buffer.
func (c *CachedToken) ValidAt(now time.Time) bool {
	if c == nil || c.Token == "" {
		return false
	}
	return now.Add(TokenExpiryBuffer).Before(c.ExpiresAt)
}

type RedisTokenCache struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisTokenCache(client redis.Cmdable) *RedisTokenCache {
	return &RedisTokenCache{client: client, now: time.Now}
}

// Get returns the cached token, or nil when nothing usable is stored.
func (c *RedisTokenCache) Get(ctx context.Context) (*CachedToken, error) {
	raw, err := c.client.Get(ctx, M2MTokenKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached token: %w", err)
	}

	var cached CachedToken
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	if !cached.ValidAt(c.now()) {
		return nil, nil
	}
	return &cached, nil
}

// Set stores token for expiresIn seconds. The Redis TTL adds the buffer so
// clock skew between replicas never drops a still valid entry early.
func (c *RedisTokenCache) Set(ctx context.Context, token string, expiresIn int) error {
	lifetime := time.Duration(expiresIn) * time.Second
	raw, err := json.Marshal(CachedToken{Token: token, ExpiresAt: c.now().Add(lifetime)})
	if err != nil {
		return fmt.Errorf("encode cached token: %w", err)
	}
	if err := c.client.Set(ctx, M2MTokenKey, raw, lifetime+TokenExpiryBuffer).Err(); err != nil {
		return fmt.Errorf("store cached token: %w", err)
	}
	return nil
}

// ConnectRedis opens a client and checks it answers within five seconds.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}
