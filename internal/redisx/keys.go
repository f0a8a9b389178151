package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{Idempotency-Key} -> order_id ("pending" selama diproses)
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cache order: order:{id atau order_number} -> JSON order
	KeyOrder = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Report cache: report:{name}:{window}
	KeyReport     = "report:%s:%s"
	PatternReport = "report:*"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLOrderCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLReport      = 60 * time.Second
)
