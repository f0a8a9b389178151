package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-shop-backoffice/internal/kafka"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
)

type memRecorder struct {
	entries map[uuid.UUID]Entry
	err     error
}

func (m *memRecorder) Record(_ context.Context, e Entry) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.entries == nil {
		m.entries = map[uuid.UUID]Entry{}
	}
	if _, ok := m.entries[e.EventID]; ok {
		return false, nil
	}
	m.entries[e.EventID] = e
	return true, nil
}

func message(t *testing.T, eventType, orderID string, payload any) (kafka.Message, orders.Envelope) {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "test", orderID, "req-1", payload)
	require.NoError(t, err)
	return kafka.Message{Topic: "order.test", Value: kafkax.MustMarshal(env)}, env
}

func TestProjector_RecordsEvents(t *testing.T) {
	rec := &memRecorder{}
	p := &Projector{Store: rec, Name: "projector"}
	orderID := uuid.New()

	created, createdEnv := message(t, orders.EventOrderCreated, orderID.String(), orders.OrderCreatedPayload{
		OrderID: orderID.String(), OrderNumber: "ORD-123456-001", Status: "pending", Total: decimal.NewFromInt(37),
	})
	changed, changedEnv := message(t, orders.EventOrderStatusChanged, orderID.String(), orders.OrderStatusChangedPayload{
		OrderID: orderID.String(), OrderNumber: "ORD-123456-001", From: "pending", To: "shipped",
	})

	require.NoError(t, p.Handle(context.Background(), created))
	require.NoError(t, p.Handle(context.Background(), changed))
	require.NoError(t, p.Handle(context.Background(), changed), "replay is harmless")

	require.Len(t, rec.entries, 2)
	c := rec.entries[uuid.MustParse(createdEnv.EventID)]
	assert.Equal(t, orderID, c.OrderID)
	assert.Equal(t, "pending", c.Status)
	assert.Equal(t, orders.EventOrderCreated, c.EventType)

	s := rec.entries[uuid.MustParse(changedEnv.EventID)]
	assert.Equal(t, "shipped", s.Status)
	assert.Equal(t, "ORD-123456-001", s.OrderNumber)
}

func TestProjector_SkipsUnusableMessages(t *testing.T) {
	rec := &memRecorder{}
	p := &Projector{Store: rec, Name: "projector"}

	require.NoError(t, p.Handle(context.Background(), kafka.Message{Value: []byte("not json")}))

	other, _ := message(t, "SomethingElse", uuid.NewString(), map[string]string{})
	require.NoError(t, p.Handle(context.Background(), other))

	badOrder, _ := message(t, orders.EventOrderDeleted, "x", orders.OrderDeletedPayload{OrderID: "not-an-id"})
	require.NoError(t, p.Handle(context.Background(), badOrder))

	assert.Empty(t, rec.entries)
}

func TestProjector_StoreErrorIsRetried(t *testing.T) {
	boom := errors.New("db down")
	p := &Projector{Store: &memRecorder{err: boom}, Name: "projector"}
	id := uuid.NewString()
	m, _ := message(t, orders.EventOrderDeleted, id, orders.OrderDeletedPayload{OrderID: id, Status: "cancelled"})

	err := p.Handle(context.Background(), m)
	require.ErrorIs(t, err, boom)
}
