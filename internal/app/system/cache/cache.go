// Package cache is a read-through cache for person and organization read
// models with explicit, keyed invalidation.
//
// Every mutation handler invalidates exactly the keys whose rows it changed:
// the person it touched, the persons list, and any organization whose member
// counts moved.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Cache stores JSON-encoded values under string keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Key builders.
const PersonsListKey = "persons:list"

func PersonKey(id primitive.ObjectID) string       { return "person:" + id.Hex() }
func OrganizationKey(id primitive.ObjectID) string { return "organization:" + id.Hex() }

// Fetch returns the cached value for key or calls load, stores and returns
// its result. Cache failures are logged and treated as misses so a cache
// outage never fails a read.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, log *zap.Logger, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return load(ctx)
	}

	if raw, ok, err := c.Get(ctx, key); err != nil {
		log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		log.Warn("cache decode failed; reloading", zap.String("key", key))
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// Invalidate deletes keys, logging (not returning) failures. Stale entries
// expire on their TTL if the delete is lost.
func Invalidate(ctx context.Context, c Cache, log *zap.Logger, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.Delete(ctx, keys...); err != nil {
		log.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
