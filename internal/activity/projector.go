package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-backoffice/internal/kafka"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
	"github.com/ariefcatur/go-shop-backoffice/internal/redisx"
)

type Recorder interface {
	Record(ctx context.Context, e Entry) (bool, error)
}

// Projector turns order events into activity entries and drops cached reports.
type Projector struct {
	Store Recorder
	Redis redis.Cmdable // optional
	Name  string
}

// Handle dipasang sebagai handler consumer. Returning an error leaves the offset uncommitted.
func (p *Projector) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; log lalu commit
		log.Error().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("projector: bad envelope, skipping")
		return nil
	}
	switch env.EventType {
	case orders.EventOrderCreated, orders.EventOrderStatusChanged, orders.EventOrderDeleted:
	default:
		return nil // ignore
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, p.Name, env.EventID)
	if p.Redis != nil {
		if seen, _ := redisx.Exists(ctx, p.Redis, dkey); seen {
			return nil
		}
	}

	entry, err := EntryFromEnvelope(env)
	if err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Msg("projector: bad payload, skipping")
		return nil
	}
	written, err := p.Store.Record(ctx, entry)
	if err != nil {
		return err
	}

	if p.Redis != nil {
		_ = p.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
		if n, err := redisx.DeletePattern(ctx, p.Redis, redisx.PatternReport); err != nil {
			log.Warn().Err(err).Msg("projector: evict report cache")
		} else if n > 0 {
			log.Debug().Int("keys", n).Msg("projector: report cache evicted")
		}
	}

	log.Info().Str("event_type", env.EventType).Str("order_id", env.CorrelationID).
		Str("header_type", kafkax.Header(m.Headers, "x-event-type")).Bool("written", written).Msg("projector: event recorded")
	return nil
}

// EntryFromEnvelope maps any order event onto an activity entry.
func EntryFromEnvelope(env orders.Envelope) (Entry, error) {
	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		return Entry{}, fmt.Errorf("event id: %w", err)
	}
	meta, err := kafkax.UnwrapPayload[orders.EventMeta](env.Payload)
	if err != nil {
		return Entry{}, err
	}
	orderID, err := uuid.Parse(meta.OrderID)
	if err != nil {
		return Entry{}, fmt.Errorf("order id: %w", err)
	}
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return Entry{
		EventID:     eventID,
		OrderID:     orderID,
		OrderNumber: meta.OrderNumber,
		EventType:   env.EventType,
		Status:      meta.CurrentStatus(),
		Payload:     payload,
		OccurredAt:  env.OccurredAt,
	}, nil
}
