package models

import "time"

// Order is the customer-facing master order for one checkout. It owns one
// VendorOrder per vendor represented in the cart plus every line item.
// Its status is derived from the vendor orders and never set directly.
type Order struct {
	ID           string        `json:"id"`
	CustomerID   string        `json:"customer_id"`
	TotalAmount  float64       `json:"total_amount"`
	Status       Status        `json:"status"`
	VendorOrders []VendorOrder `json:"vendor_orders"`
	Items        []OrderItem   `json:"items"`
	CreatedAt    time.Time     `json:"created_at"`
}

// VendorOrder is the per-vendor partition of a master order. Each vendor
// progresses their own vendor order independently.
type VendorOrder struct {
	ID          string    `json:"id"`
	VendorID    string    `json:"vendor_id"`
	OrderID     string    `json:"order_id"`
	TotalAmount float64   `json:"total_amount"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderItem captures product, quantity and the unit price at order time.
// Later catalog price changes never alter a persisted item.
type OrderItem struct {
	ID            string  `json:"id"`
	OrderID       string  `json:"order_id"`
	VendorOrderID string  `json:"vendor_order_id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
}

type CreateOrderRequest struct {
	Items []CartLine `json:"items" binding:"required"`
}

type CartLine struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderSummary is the read-only view of a master order a vendor sees
// alongside their own vendor order.
type OrderSummary struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// VendorOrderView pairs a vendor order with the items belonging to it and
// a summary of its parent order.
type VendorOrderView struct {
	VendorOrder
	Items []OrderItem  `json:"items"`
	Order OrderSummary `json:"order"`
}
