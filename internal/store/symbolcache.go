package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"signalforge/internal/logging"
)

const symbolKeyPrefix = "signalforge:symbol"
const symbolCacheTTL = 24 * time.Hour

// SymbolCache is a read-through cache mapping a symbol name to its
// enabled flag. It prefers Redis when configured and reachable, and
// falls back to an in-memory map otherwise — the same
// always-available-even-if-Redis-is-down shape as the reference
// position-state repository, generalized from positions to symbols.
type SymbolCache struct {
	client    *redis.Client
	available atomic.Bool
	repo      *Repository
	log       *logging.Logger

	mu    sync.RWMutex
	local map[string]bool
}

// NewSymbolCache builds a cache. client may be nil, in which case the
// cache operates purely from Postgres + an in-memory layer.
func NewSymbolCache(client *redis.Client, repo *Repository, log *logging.Logger) *SymbolCache {
	if log == nil {
		log = logging.Default()
	}
	c := &SymbolCache{client: client, repo: repo, log: log, local: make(map[string]bool)}
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithComponent("store").Warn("redis unavailable at startup, using in-memory symbol cache", "error", err)
			c.available.Store(false)
		} else {
			c.available.Store(true)
		}
	}
	return c
}

func symbolKey(name string) string {
	return fmt.Sprintf("%s:%s", symbolKeyPrefix, name)
}

// IsEnabled reports whether a symbol is enabled for surveillance,
// consulting Redis (if available), then the in-memory layer, then
// falling through to Postgres and populating both caches.
func (c *SymbolCache) IsEnabled(ctx context.Context, name string) (bool, error) {
	if c.client != nil && c.available.Load() {
		val, err := c.client.Get(ctx, symbolKey(name)).Result()
		switch {
		case err == redis.Nil:
			// fall through to Postgres
		case err != nil:
			c.log.WithComponent("store").Warn("redis read failed, falling back", "error", err)
			c.available.Store(false)
		default:
			return val == "1", nil
		}
	}

	c.mu.RLock()
	enabled, found := c.local[name]
	c.mu.RUnlock()
	if found {
		return enabled, nil
	}

	enabled, err := c.loadFromStore(ctx, name)
	if err != nil {
		return false, err
	}
	c.set(ctx, name, enabled)
	return enabled, nil
}

func (c *SymbolCache) loadFromStore(ctx context.Context, name string) (bool, error) {
	const query = `SELECT enabled FROM symbols WHERE name = $1`
	var enabled bool
	err := c.repo.db.Pool.QueryRow(ctx, query, name).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("load symbol %s: %w", name, err)
	}
	return enabled, nil
}

// Set updates both cache layers (and Postgres) after an operator
// enables/disables a symbol.
func (c *SymbolCache) Set(ctx context.Context, name string, enabled bool) error {
	const query = `
		INSERT INTO symbols (name, enabled) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET enabled = EXCLUDED.enabled
	`
	if _, err := c.repo.db.Pool.Exec(ctx, query, name, enabled); err != nil {
		return fmt.Errorf("persist symbol %s: %w", name, err)
	}
	c.set(ctx, name, enabled)
	return nil
}

func (c *SymbolCache) set(ctx context.Context, name string, enabled bool) {
	c.mu.Lock()
	c.local[name] = enabled
	c.mu.Unlock()

	if c.client == nil || !c.available.Load() {
		return
	}
	val := "0"
	if enabled {
		val = "1"
	}
	if err := c.client.Set(ctx, symbolKey(name), val, symbolCacheTTL).Err(); err != nil {
		c.log.WithComponent("store").Warn("redis write failed", "error", err)
		c.available.Store(false)
	}
}
