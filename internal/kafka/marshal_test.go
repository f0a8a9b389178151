package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
		Qty     int    `json:"qty"`
	}
	raw := json.RawMessage(MustMarshal(payload{OrderID: "o-1", Qty: 2}))

	got, err := UnwrapPayload[payload](raw)
	require.NoError(t, err)
	assert.Equal(t, payload{OrderID: "o-1", Qty: 2}, got)

	_, err = UnwrapPayload[payload](json.RawMessage(`{"qty":"two"}`))
	require.Error(t, err)
}

func TestMustMarshal_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(make(chan int)) })
}

func TestHeader(t *testing.T) {
	hs := []kafka.Header{{Key: "x-event-type", Value: []byte("OrderCreated")}}
	assert.Equal(t, "OrderCreated", Header(hs, "x-event-type"))
	assert.Equal(t, "", Header(hs, "x-event-version"))
}
