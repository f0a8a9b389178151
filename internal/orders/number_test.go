package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumber_Format(t *testing.T) {
	now := time.UnixMilli(1_710_000_123_456)
	for i := 0; i < 500; i++ {
		n := NewOrderNumber(now)
		assert.True(t, ValidOrderNumber(n), n)
		assert.Equal(t, "ORD-123456-", n[:11])
	}
}

func TestNewOrderNumber_PadsShortTimestamps(t *testing.T) {
	n := NewOrderNumber(time.UnixMilli(42))
	assert.Equal(t, "ORD-000042-", n[:11])
	assert.True(t, ValidOrderNumber(n))
}

func TestValidOrderNumber(t *testing.T) {
	assert.True(t, ValidOrderNumber("ORD-000001-001"))
	assert.False(t, ValidOrderNumber("ORD-1-1"))
	assert.False(t, ValidOrderNumber("ord-000001-001"))
	assert.False(t, ValidOrderNumber("ORD-0000011-001"))
}
