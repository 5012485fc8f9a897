package models

// OrderCreatedEvent is published after a checkout commits.
type OrderCreatedEvent struct {
	OrderID     string           `json:"order_id"`
	CustomerID  string           `json:"customer_id"`
	TotalAmount float64          `json:"total_amount"`
	Items       []OrderItemEvent `json:"items"`
}

type OrderItemEvent struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderStatusChangedEvent is published after a vendor order status update
// commits. OrderStatus carries the master status as of the same commit, so
// consumers observe promotions in order.
type OrderStatusChangedEvent struct {
	OrderID       string `json:"order_id"`
	VendorOrderID string `json:"vendor_order_id"`
	VendorID      string `json:"vendor_id"`
	Status        Status `json:"status"`
	OrderStatus   Status `json:"order_status"`
}
