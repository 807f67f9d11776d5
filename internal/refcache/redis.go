package refcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRetention bounds how long Redis keeps an entry. Staleness is
// decided by the cache, not by key expiry.
const DefaultRetention = 24 * time.Hour

// RedisBackend shares entries across processes through Redis.
type RedisBackend struct {
	rdb       *goredis.Client
	retention time.Duration
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(rdb *goredis.Client, retention time.Duration) *RedisBackend {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisBackend{rdb: rdb, retention: retention}
}

// DialRedis connects to addr and pings it.
func DialRedis(ctx context.Context, addr string) (*RedisBackend, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisBackend(rdb, 0), nil
}

// Load implements Backend.
func (r *RedisBackend) Load(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, true, nil
}

// Save implements Backend.
func (r *RedisBackend) Save(ctx context.Context, key string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, raw, r.retention).Err()
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// Close closes the client.
func (r *RedisBackend) Close() error { return r.rdb.Close() }
