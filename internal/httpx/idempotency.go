package httpx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/redisx"
)

const idemPending = "pending"

// Idempotency guards order creation against client retries.
type Idempotency interface {
	// Claim returns ("", true) when the caller owns key, or the order id stored by an earlier request.
	Claim(ctx context.Context, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, key, orderID string)
	Release(ctx context.Context, key string)
}

type RedisIdempotency struct{ RDB redis.Cmdable }

func (i RedisIdempotency) key(k string) string { return fmt.Sprintf(redisx.KeyIdemOrderCreate, k) }

func (i RedisIdempotency) Claim(ctx context.Context, k string) (string, bool, error) {
	ok, err := i.RDB.SetNX(ctx, i.key(k), idemPending, redisx.TTLIdemPending).Result()
	if err != nil {
		return "", false, fmt.Errorf("idempotency: claim: %w", err)
	}
	if ok {
		return "", true, nil
	}
	v, found, err := redisx.GetString(ctx, i.RDB, i.key(k))
	if err != nil {
		return "", false, fmt.Errorf("idempotency: read: %w", err)
	}
	if !found {
		// pending claim expired between SETNX and GET; try once more
		ok, err := i.RDB.SetNX(ctx, i.key(k), idemPending, redisx.TTLIdemPending).Result()
		if err != nil {
			return "", false, fmt.Errorf("idempotency: claim: %w", err)
		}
		if ok {
			return "", true, nil
		}
	}
	if !found || v == idemPending {
		return "", false, &apperr.ConflictError{Msg: "a request with this Idempotency-Key is still in progress"}
	}
	return v, false, nil
}

func (i RedisIdempotency) Complete(ctx context.Context, k, orderID string) {
	if err := i.RDB.Set(ctx, i.key(k), orderID, redisx.TTLIdempotency).Err(); err != nil {
		log.Warn().Err(err).Str("idempotency_key", k).Msg("idempotency: store result")
	}
}

func (i RedisIdempotency) Release(ctx context.Context, k string) {
	if err := i.RDB.Del(ctx, i.key(k)).Err(); err != nil {
		log.Warn().Err(err).Str("idempotency_key", k).Msg("idempotency: release")
	}
}
