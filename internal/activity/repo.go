package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one line of an order's activity log.
type Entry struct {
	EventID     uuid.UUID       `json:"eventId"`
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	EventType   string          `json:"eventType"`
	Status      string          `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
	RecordedAt  time.Time       `json:"recordedAt"`
}

type Repo struct{ DB *pgxpool.Pool }

// Record inserts the entry; a replayed event id is ignored. Reports whether a row was written.
func (r *Repo) Record(ctx context.Context, e Entry) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO order_activity(event_id, order_id, order_number, event_type, status, payload, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.OrderID, e.OrderNumber, e.EventType, e.Status, []byte(e.Payload), e.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("activity: record: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ListByOrder(ctx context.Context, orderID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT event_id, order_id, order_number, event_type, status, payload, occurred_at, recorded_at
		FROM order_activity
		WHERE order_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("activity: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.EventID, &e.OrderID, &e.OrderNumber, &e.EventType, &e.Status, &payload, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("activity: scan: %w", err)
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}
