package link

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache implements Cache on a Redis backend. Entries carry a TTL so
// Redis evicts them on its own; no hit outlives the TTL from insertion.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Cache backed by Redis.
func NewRedisCache(client *redis.Client, ttl time.Duration) Cache {
	return &redisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *redisCache) GetByCode(ctx context.Context, code string) (Link, bool, bool, error) {
	data, err := c.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return Link{}, false, false, nil
	}
	if err != nil {
		return Link{}, false, false, err
	}

	if data == negativeMarker {
		return Link{}, true, true, nil
	}

	l, err := decodeLink([]byte(data))
	if err != nil {
		return Link{}, false, false, err
	}
	return l, true, false, nil
}

func (c *redisCache) GetByOriginalURL(ctx context.Context, originalURL string) (Link, bool, error) {
	data, err := c.client.Get(ctx, urlKey(originalURL)).Result()
	if errors.Is(err, redis.Nil) {
		return Link{}, false, nil
	}
	if err != nil {
		return Link{}, false, err
	}
	if data == negativeMarker {
		return Link{}, false, nil
	}

	l, err := decodeLink([]byte(data))
	if err != nil {
		return Link{}, false, err
	}
	return l, true, nil
}

func (c *redisCache) Put(ctx context.Context, l Link) error {
	data, err := encodeLink(l)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, codeKey(l.Code), data, c.ttl)
	pipe.Set(ctx, urlKey(l.OriginalURL), data, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *redisCache) PutNegative(ctx context.Context, code string) error {
	return c.client.Set(ctx, codeKey(code), negativeMarker, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, code, originalURL string) error {
	keys := []string{codeKey(code)}
	if originalURL != "" {
		keys = append(keys, urlKey(originalURL))
	}
	return c.client.Del(ctx, keys...).Err()
}
