package orders

// OrderIntent is the wire payload published to the intake queue. Field names
// and JSON shape are a cross-service contract; changing them breaks any
// consumer competing on the same queue.
type OrderIntent struct {
	UserID      string            `json:"userId"`
	Items       []OrderIntentItem `json:"items"`
	TotalAmount float64           `json:"totalAmount"`
	Timestamp   string            `json:"timestamp"`
}

// OrderIntentItem is one requested line in an OrderIntent. The client never
// submits a price; the authoritative price is looked up at fulfillment time.
type OrderIntentItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
