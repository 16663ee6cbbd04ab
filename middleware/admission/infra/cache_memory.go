package infra

import (
	"context"
	"sync"
	"time"
)

// MemoryVerdictCache é o cache negativo em processo: mapa ip → expiração.
// Entradas expiradas são ignoradas na leitura e removidas pelo janitor.
type MemoryVerdictCache struct {
	mu           sync.Mutex
	expiresAt    map[string]time.Time
	cleanupEvery time.Duration
}

type MemoryVerdictCacheOption func(*MemoryVerdictCache)

func WithCacheCleanupEvery(d time.Duration) MemoryVerdictCacheOption {
	return func(c *MemoryVerdictCache) { c.cleanupEvery = d }
}

func NewMemoryVerdictCache(opts ...MemoryVerdictCacheOption) *MemoryVerdictCache {
	c := &MemoryVerdictCache{
		expiresAt:    make(map[string]time.Time),
		cleanupEvery: 1 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryVerdictCache) CacheBlock(_ context.Context, ip string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiresAt[ip] = time.Now().Add(ttl)
	return nil
}

func (c *MemoryVerdictCache) CachedBlock(_ context.Context, ip string) (bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	exp, ok := c.expiresAt[ip]
	if !ok {
		return false, nil
	}
	if now.After(exp) {
		delete(c.expiresAt, ip)
		return false, nil
	}
	return true, nil
}

func (c *MemoryVerdictCache) Cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for ip, exp := range c.expiresAt {
		if now.After(exp) {
			delete(c.expiresAt, ip)
		}
	}
}

// StartJanitor remove entradas expiradas periodicamente.
// Pare cancelando o contexto.
func (c *MemoryVerdictCache) StartJanitor(ctx DoneContext) {
	if c.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(c.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}
