package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guildtrack/guildtrack/internal/models"
	"github.com/guildtrack/guildtrack/pkg/logger"
)

// Client is the directory lookup surface. Absent entities are (nil, nil).
type Client interface {
	User(ctx context.Context, userID int64) (*models.Identity, error)
	Guild(ctx context.Context, guildID int64) (*models.Guild, error)
	Member(ctx context.Context, guildID, userID int64) (*models.Identity, error)
}

// CachedClient is a Redis read-through cache in front of another Client.
// Only hits are cached: a miss is always re-asked of the upstream so that a
// newly created entity becomes visible without waiting out a TTL. Cache
// failures degrade to upstream lookups rather than failing the call.
type CachedClient struct {
	inner  Client
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedClient wraps inner with a Redis cache. Prefix may be empty.
func NewCachedClient(inner Client, rc *redis.Client, prefix string, ttl time.Duration) *CachedClient {
	if prefix == "" {
		prefix = "dir:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedClient{inner: inner, client: rc, prefix: prefix, ttl: ttl}
}

func (c *CachedClient) User(ctx context.Context, userID int64) (*models.Identity, error) {
	key := fmt.Sprintf("%suser:%d", c.prefix, userID)
	var id models.Identity
	if c.fetch(ctx, key, &id) {
		return &id, nil
	}
	got, err := c.inner.User(ctx, userID)
	if err != nil || got == nil {
		return got, err
	}
	c.put(ctx, key, got)
	return got, nil
}

func (c *CachedClient) Guild(ctx context.Context, guildID int64) (*models.Guild, error) {
	key := fmt.Sprintf("%sguild:%d", c.prefix, guildID)
	var g models.Guild
	if c.fetch(ctx, key, &g) {
		return &g, nil
	}
	got, err := c.inner.Guild(ctx, guildID)
	if err != nil || got == nil {
		return got, err
	}
	c.put(ctx, key, got)
	return got, nil
}

func (c *CachedClient) Member(ctx context.Context, guildID, userID int64) (*models.Identity, error) {
	key := fmt.Sprintf("%smember:%d:%d", c.prefix, guildID, userID)
	var id models.Identity
	if c.fetch(ctx, key, &id) {
		return &id, nil
	}
	got, err := c.inner.Member(ctx, guildID, userID)
	if err != nil || got == nil {
		return got, err
	}
	c.put(ctx, key, got)
	return got, nil
}

func (c *CachedClient) fetch(ctx context.Context, key string, v interface{}) bool {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("directory cache get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		logger.Warnf("directory cache decode %s: %v", key, err)
		_ = c.client.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *CachedClient) put(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logger.Warnf("directory cache set %s: %v", key, err)
	}
}
