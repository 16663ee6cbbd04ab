package infra

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVerdictCache guarda as marcas de BLOCK no Redis com TTL nativo.
//
// Erros sobem para o chamador, que deve tratá-los como cache miss
// (o cache é best-effort, nunca fonte de verdade).
type RedisVerdictCache struct {
	rdb    *redis.Client
	prefix string
}

type RedisVerdictCacheOption func(*RedisVerdictCache)

func WithCachePrefix(prefix string) RedisVerdictCacheOption {
	return func(c *RedisVerdictCache) {
		c.prefix = strings.Trim(prefix, ":")
	}
}

func NewRedisVerdictCache(rdb *redis.Client, opts ...RedisVerdictCacheOption) *RedisVerdictCache {
	c := &RedisVerdictCache{
		rdb:    rdb,
		prefix: "admission:block",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisVerdictCache) key(ip string) string {
	return c.prefix + ":" + ip
}

func (c *RedisVerdictCache) CacheBlock(ctx context.Context, ip string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.key(ip), "1", ttl).Err()
}

func (c *RedisVerdictCache) CachedBlock(ctx context.Context, ip string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key(ip)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
