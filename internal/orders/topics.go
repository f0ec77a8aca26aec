package orders

const (
	TopicOrderCreated   = "flash.order.created"
	TopicOrderFinalized = "flash.order.finalized"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
