// Package refcache caches the reference lists a draft is built against
// (faculties, graduate attributes, missions, programs) per role, with a
// staleness window and an optimistic delete.
package refcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"curricore/internal/client"
	"curricore/internal/optimistic"
	"curricore/internal/platform/logger"
	"curricore/pkg/domain"
)

// KeyPrefix roots every cache key.
const KeyPrefix = "curricore:refs:"

// DefaultTTL is how long a fetched list is served without refetching.
const DefaultTTL = 5 * time.Minute

// Key returns curricore:refs:<resource>:<role>.
func Key(resource, role string) string { return KeyPrefix + resource + ":" + role }

// Entry is one cached list.
type Entry struct {
	Items     []json.RawMessage `json:"items"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Backend stores entries by key.
type Backend interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// API is the subset of *client.Client the cache reads and deletes through.
type API interface {
	List(ctx context.Context, resource string, out any) error
	Delete(ctx context.Context, resource string, id domain.ID, opts ...client.RequestOption) error
}

// Option customises a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// Cache serves reference lists for one role.
type Cache struct {
	backend Backend
	api     API
	role    string
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger
}

// New returns a cache for role. A nil backend selects process memory.
func New(backend Backend, api API, role string, opts ...Option) *Cache {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	c := &Cache{backend: backend, api: api, role: role, ttl: DefaultTTL, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "RefCache", "role", role)
	return c
}

func (c *Cache) fresh(e Entry) bool { return c.now().Sub(e.FetchedAt) < c.ttl }

// Items returns the cached list for resource, fetching it when missing or
// stale. A stale list is still served when the refetch fails.
func (c *Cache) Items(ctx context.Context, resource string) ([]json.RawMessage, error) {
	key := Key(resource, c.role)
	entry, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.log.Warn("reference cache load failed", "key", key, "error", err)
		ok = false
	} else if ok && c.fresh(entry) {
		return entry.Items, nil
	}
	items, err := c.fetch(ctx, resource)
	if err != nil && ok {
		c.log.Warn("serving stale reference list", "key", key, "fetched_at", entry.FetchedAt, "error", err)
		return entry.Items, nil
	}
	return items, err
}

func (c *Cache) fetch(ctx context.Context, resource string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := c.api.List(ctx, resource, &items); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", resource, err)
	}
	key := Key(resource, c.role)
	if err := c.backend.Save(ctx, key, Entry{Items: items, FetchedAt: c.now()}); err != nil {
		c.log.Warn("reference cache save failed", "key", key, "error", err)
	}
	return items, nil
}

// Refetch drops the cached list and fetches it again.
func (c *Cache) Refetch(ctx context.Context, resource string) ([]json.RawMessage, error) {
	if err := c.Invalidate(ctx, resource); err != nil {
		return nil, err
	}
	return c.fetch(ctx, resource)
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate(ctx context.Context, resource string) error {
	return c.backend.Delete(ctx, Key(resource, c.role))
}

// Decode returns the list for resource decoded into T.
func Decode[T any](ctx context.Context, c *Cache, resource string) ([]T, error) {
	items, err := c.Items(ctx, resource)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", resource, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func itemID(raw json.RawMessage) domain.ID {
	var head struct {
		ID domain.ID `json:"id"`
	}
	if json.Unmarshal(raw, &head) != nil {
		return domain.ID{}
	}
	return head.ID
}

// DeleteOptimistic removes the item from the cached list, deletes it on the
// backend, and restores the previous list if the backend refuses.
func (c *Cache) DeleteOptimistic(ctx context.Context, resource string, id domain.ID) error {
	key := Key(resource, c.role)
	type snapshot struct {
		entry  Entry
		cached bool
	}
	err := optimistic.Run(ctx, optimistic.Update[snapshot]{
		Snapshot: func(ctx context.Context) (snapshot, error) {
			entry, ok, err := c.backend.Load(ctx, key)
			return snapshot{entry: entry, cached: ok}, err
		},
		Apply: func(ctx context.Context, prev snapshot) error {
			if !prev.cached {
				return nil
			}
			next := Entry{FetchedAt: prev.entry.FetchedAt, Items: slices.DeleteFunc(slices.Clone(prev.entry.Items), func(raw json.RawMessage) bool {
				return itemID(raw) == id
			})}
			return c.backend.Save(ctx, key, next)
		},
		Commit: func(ctx context.Context) error {
			return c.api.Delete(ctx, resource, id)
		},
		Rollback: func(ctx context.Context, prev snapshot) error {
			if !prev.cached {
				return nil
			}
			return c.backend.Save(ctx, key, prev.entry)
		},
	})
	if err != nil {
		var rb *optimistic.RollbackError
		if errors.As(err, &rb) {
			c.log.Error("reference cache rollback failed", "key", key, "error", rb.Rollback)
		}
		return fmt.Errorf("delete %s %s: %w", resource, id, err)
	}
	c.log.Info("reference deleted", "resource", resource, "id", id)
	return nil
}
