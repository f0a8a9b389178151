package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderDeleted       = "order.deleted"
)

// AllTopics is what the projector subscribes to.
var AllTopics = []string{TopicOrderCreated, TopicOrderStatusChanged, TopicOrderDeleted}

// Partition key = order id, supaya semua event 1 order tetap berurutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
