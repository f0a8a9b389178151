package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-backoffice/internal/kafka"
	"github.com/ariefcatur/go-shop-backoffice/internal/redisx"
)

// KafkaSink publishes order events through the async producer.
type KafkaSink struct{ Producer *kafkax.Producer }

func (k KafkaSink) Emit(_ context.Context, topic string, env Envelope) {
	k.Producer.Publish(topic, PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(fmt.Sprint(env.EventVersion))},
	)
}

// RedisCache stores orders as JSON. Redis errors are logged and treated as misses; the
// database stays the source of truth.
type RedisCache struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func (c RedisCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return redisx.TTLOrderCache
}

func (c RedisCache) Get(ctx context.Context, key string) (*Order, bool) {
	s, ok, err := redisx.GetString(ctx, c.RDB, fmt.Sprintf(redisx.KeyOrder, key))
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: get order")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var o Order
	if err := json.Unmarshal([]byte(s), &o); err != nil {
		return nil, false
	}
	return &o, true
}

func (c RedisCache) Set(ctx context.Context, key string, o *Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	if err := c.RDB.Set(ctx, fmt.Sprintf(redisx.KeyOrder, key), b, c.ttl()).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: set order")
	}
}

func (c RedisCache) Invalidate(ctx context.Context, keys ...string) {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, fmt.Sprintf(redisx.KeyOrder, k))
		}
	}
	if len(full) == 0 {
		return
	}
	if err := c.RDB.Del(ctx, full...).Err(); err != nil {
		log.Warn().Err(err).Strs("keys", full).Msg("cache: invalidate order")
	}
}
