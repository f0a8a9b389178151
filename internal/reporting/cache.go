package reporting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-shop-backoffice/internal/redisx"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, b []byte)
}

// RedisCache keeps report JSON for redisx.TTLReport. The projector clears report:* on every order event.
type RedisCache struct{ RDB redis.Cmdable }

func (c RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	s, ok, err := redisx.GetString(ctx, c.RDB, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("reporting: cache get")
		return nil, false
	}
	return []byte(s), ok
}

func (c RedisCache) Set(ctx context.Context, key string, b []byte) {
	if err := c.RDB.Set(ctx, key, b, redisx.TTLReport).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("reporting: cache set")
	}
}

// cached returns the cached report under name/window or computes and stores it.
func cached[T any](ctx context.Context, c Cache, name, window string, compute func(context.Context) (T, error)) (T, error) {
	key := fmt.Sprintf(redisx.KeyReport, name, window)
	if c != nil {
		if b, ok := c.Get(ctx, key); ok {
			var v T
			if err := json.Unmarshal(b, &v); err == nil {
				return v, nil
			}
		}
	}
	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		if b, err := json.Marshal(v); err == nil {
			c.Set(ctx, key, b)
		}
	}
	return v, nil
}
