package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openbasket/marketplace/internal/models"
)

// OrderByID returns the full order graph, or (nil, nil) when the id does
// not resolve.
func (s *PostgresStore) OrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orderWhere(ctx, `id = $1`, orderID)
}

// OrderForCustomer returns the order only when it belongs to the customer.
func (s *PostgresStore) OrderForCustomer(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	return s.orderWhere(ctx, `id = $1 AND customer_id = $2`, orderID, customerID)
}

func (s *PostgresStore) orderWhere(ctx context.Context, where string, args ...any) (*models.Order, error) {
	query := `SELECT id, customer_id, total_amount, status, created_at FROM orders WHERE ` + where

	var o models.Order
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.VendorOrders, err = s.vendorOrdersOf(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.Items, err = s.itemsWhere(ctx, `order_id = $1`, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

// VendorOrderForVendor resolves a master order id into the vendor's slice
// of it: their vendor order, its items and a read-only parent summary.
// Returns (nil, nil) when the vendor has no part in that order.
func (s *PostgresStore) VendorOrderForVendor(ctx context.Context, vendorID, orderID string) (*models.VendorOrderView, error) {
	query := `
		SELECT vo.id, vo.vendor_id, vo.order_id, vo.total_amount, vo.status, vo.created_at,
		       o.id, o.customer_id, o.status, o.created_at
		FROM vendor_orders vo
		JOIN orders o ON o.id = vo.order_id
		WHERE vo.order_id = $1 AND vo.vendor_id = $2
	`
	var v models.VendorOrderView
	err := s.db.QueryRowContext(ctx, query, orderID, vendorID).
		Scan(&v.ID, &v.VendorID, &v.OrderID, &v.TotalAmount, &v.Status, &v.CreatedAt,
			&v.Order.ID, &v.Order.CustomerID, &v.Order.Status, &v.Order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor order: %w", err)
	}

	if v.Items, err = s.itemsWhere(ctx, `vendor_order_id = $1`, v.ID); err != nil {
		return nil, err
	}
	return &v, nil
}

// Orders returns every master order, most recent first, without children.
func (s *PostgresStore) Orders(ctx context.Context) ([]models.Order, error) {
	return s.ordersWhere(ctx, ``)
}

// OrdersForCustomer returns the customer's master orders, most recent first.
func (s *PostgresStore) OrdersForCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.ordersWhere(ctx, `WHERE customer_id = $1`, customerID)
}

func (s *PostgresStore) ordersWhere(ctx context.Context, where string, args ...any) ([]models.Order, error) {
	query := `SELECT id, customer_id, total_amount, status, created_at FROM orders ` +
		where + ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// VendorOrdersForVendor returns the vendor's vendor orders with parent
// summaries, most recent first.
func (s *PostgresStore) VendorOrdersForVendor(ctx context.Context, vendorID string) ([]models.VendorOrderView, error) {
	query := `
		SELECT vo.id, vo.vendor_id, vo.order_id, vo.total_amount, vo.status, vo.created_at,
		       o.id, o.customer_id, o.status, o.created_at
		FROM vendor_orders vo
		JOIN orders o ON o.id = vo.order_id
		WHERE vo.vendor_id = $1
		ORDER BY vo.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor orders: %w", err)
	}
	defer rows.Close()

	var views []models.VendorOrderView
	for rows.Next() {
		var v models.VendorOrderView
		err := rows.Scan(&v.ID, &v.VendorID, &v.OrderID, &v.TotalAmount, &v.Status, &v.CreatedAt,
			&v.Order.ID, &v.Order.CustomerID, &v.Order.Status, &v.Order.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor order: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *PostgresStore) vendorOrdersOf(ctx context.Context, orderID string) ([]models.VendorOrder, error) {
	query := `
		SELECT id, vendor_id, order_id, total_amount, status, created_at
		FROM vendor_orders
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor orders: %w", err)
	}
	defer rows.Close()

	var vendorOrders []models.VendorOrder
	for rows.Next() {
		var vo models.VendorOrder
		err := rows.Scan(&vo.ID, &vo.VendorID, &vo.OrderID, &vo.TotalAmount, &vo.Status, &vo.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor order: %w", err)
		}
		vendorOrders = append(vendorOrders, vo)
	}
	return vendorOrders, rows.Err()
}

func (s *PostgresStore) itemsWhere(ctx context.Context, where string, arg any) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, vendor_order_id, product_id, product_name, quantity, price
		FROM order_items
		WHERE ` + where

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.VendorOrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
