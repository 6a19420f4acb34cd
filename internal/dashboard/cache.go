package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache scopes. Mutating services invalidate the scopes their writes
// touch; readers key their entries under them.
const (
	ScopeDashboard = "dashboard"
	ScopeInventory = "inventory"
	ScopePurchases = "purchasing"
	ScopeSales     = "sales"
	ScopeInvoices  = "invoicing"
)

// Cache is a read-through Redis cache with per-scope versioning.
// Invalidation bumps a scope's version, which orphans every key built
// under the old version. All Redis failures degrade to loading from
// the source; the cache never takes a request down with it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func versionKey(scope string) string {
	return "cache:ver:" + scope
}

func (c *Cache) version(ctx context.Context, scope string) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, versionKey(scope), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// FetchJSON loads a cached value for the scope or populates it with the
// loader.
func (c *Cache) FetchJSON(ctx context.Context, scope string, parts []string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("dashboard: cache loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader)
	}

	ver, err := c.version(ctx, scope)
	if err != nil {
		c.logger.Warn("cache version unavailable", "scope", scope, "error", err)
		return loadInto(ctx, dest, loader)
	}
	key := fmt.Sprintf("%s:%s:%d", scope, strings.Join(parts, ":"), ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return loadInto(ctx, dest, loader)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate bumps the version of each scope. Errors are logged and
// swallowed; a missed invalidation only shortens to the TTL.
func (c *Cache) Invalidate(ctx context.Context, scopes ...string) {
	if c == nil || c.client == nil {
		return
	}
	for _, scope := range scopes {
		if err := c.client.Incr(ctx, versionKey(scope)).Err(); err != nil {
			c.logger.Warn("cache invalidation failed", "scope", scope, "error", err)
		}
	}
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
