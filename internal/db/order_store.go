package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/openbasket/marketplace/internal/models"
)

// maxTxAttempts bounds the automatic retry on transient Postgres
// serialization conflicts. Business failures are never retried.
const maxTxAttempts = 3

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(database *PostgresDB) *PostgresStore {
	return &PostgresStore{db: database.Conn}
}

// Checkout runs fn inside one serializable transaction. Commit happens only
// when fn returns nil; every other exit path rolls back, so a failed line
// undoes every stock decrement already applied in the same checkout.
func (s *PostgresStore) Checkout(ctx context.Context, fn func(Checkout) error) error {
	return s.runSerializable(ctx, func(tx *sql.Tx) error {
		return fn(&pgCheckout{tx: tx})
	})
}

// UpdateStatus runs fn inside one serializable transaction so concurrent
// sibling updates under the same master order are linearized.
func (s *PostgresStore) UpdateStatus(ctx context.Context, fn func(StatusUpdate) error) error {
	return s.runSerializable(ctx, func(tx *sql.Tx) error {
		return fn(&pgStatusUpdate{tx: tx})
	})
}

func (s *PostgresStore) runSerializable(ctx context.Context, fn func(*sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", models.ErrTransactionConflict, err)
}

func (s *PostgresStore) runOnce(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isRetryable matches serialization failures and deadlocks, the only
// conflicts worth another attempt.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

type pgCheckout struct {
	tx *sql.Tx
}

func (c *pgCheckout) ProductsForUpdate(ctx context.Context, ids []string) (map[string]models.Product, error) {
	query := `
		SELECT id, name, price, stock, category, vendor_id, created_at
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`
	rows, err := c.tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]models.Product)
	for rows.Next() {
		var p models.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.VendorID, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (c *pgCheckout) ReserveStock(ctx context.Context, productID string, quantity int) error {
	// The conditional decrement is the serialization point: the loser of a
	// race sees the post-decrement stock and fails cleanly.
	query := `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	result, err := c.tx.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var available int
	err = c.tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
	if err == sql.ErrNoRows {
		return &models.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return fmt.Errorf("failed to read stock: %w", err)
	}
	return &models.InsufficientStockError{ProductID: productID, Available: available, Requested: quantity}
}

func (c *pgCheckout) InsertOrderGraph(ctx context.Context, order *models.Order) error {
	orderQuery := `
		INSERT INTO orders (id, customer_id, total_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := c.tx.QueryRowContext(ctx, orderQuery,
		order.ID, order.CustomerID, order.TotalAmount, order.Status).
		Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	vendorQuery := `
		INSERT INTO vendor_orders (id, vendor_id, order_id, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	for i := range order.VendorOrders {
		vo := &order.VendorOrders[i]
		err := c.tx.QueryRowContext(ctx, vendorQuery,
			vo.ID, vo.VendorID, vo.OrderID, vo.TotalAmount, vo.Status).
			Scan(&vo.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert vendor order: %w", err)
		}
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, vendor_order_id, product_id, product_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range order.Items {
		it := &order.Items[i]
		_, err := c.tx.ExecContext(ctx, itemQuery,
			it.ID, it.OrderID, it.VendorOrderID, it.ProductID, it.ProductName, it.Quantity, it.Price)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

type pgStatusUpdate struct {
	tx *sql.Tx
}

func (u *pgStatusUpdate) VendorOrderForUpdate(ctx context.Context, vendorOrderID string) (*models.VendorOrder, error) {
	query := `
		SELECT id, vendor_id, order_id, total_amount, status, created_at
		FROM vendor_orders
		WHERE id = $1
		FOR UPDATE
	`
	var vo models.VendorOrder
	err := u.tx.QueryRowContext(ctx, query, vendorOrderID).
		Scan(&vo.ID, &vo.VendorID, &vo.OrderID, &vo.TotalAmount, &vo.Status, &vo.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor order: %w", err)
	}
	return &vo, nil
}

func (u *pgStatusUpdate) SetVendorOrderStatus(ctx context.Context, vendorOrderID string, status models.Status) error {
	_, err := u.tx.ExecContext(ctx,
		`UPDATE vendor_orders SET status = $2 WHERE id = $1`, vendorOrderID, status)
	if err != nil {
		return fmt.Errorf("failed to update vendor order: %w", err)
	}
	return nil
}

func (u *pgStatusUpdate) SiblingStatuses(ctx context.Context, orderID string) ([]models.Status, error) {
	// Locked read: two concurrent unanimity checks under one master order
	// must not both act on stale sibling state.
	query := `SELECT status FROM vendor_orders WHERE order_id = $1 FOR UPDATE`

	rows, err := u.tx.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sibling statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.Status
	for rows.Next() {
		var s models.Status
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (u *pgStatusUpdate) OrderStatus(ctx context.Context, orderID string) (models.Status, error) {
	var s models.Status
	err := u.tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&s)
	if err != nil {
		return "", fmt.Errorf("failed to get order status: %w", err)
	}
	return s, nil
}

func (u *pgStatusUpdate) SetOrderStatus(ctx context.Context, orderID string, status models.Status) error {
	_, err := u.tx.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}
