package orders

import "slices"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

var allStatuses = []Status{
	StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
}

// ParseStatus accepts only the exact lowercase enum values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !slices.Contains(allStatuses, st) {
		return "", &InvalidStatusError{Status: s}
	}
	return st, nil
}

// validNext hanya dipakai kalau strict transitions aktif.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true, StatusRefunded: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true, StatusRefunded: true},
	StatusDelivered:  {StatusRefunded: true},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// CanTransition follows the strict lifecycle table. Re-applying the current status is always allowed
// so that repeated "shipped" updates stay idempotent.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return validNext[from][to]
}
