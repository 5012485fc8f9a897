package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openbasket/marketplace/internal/models"
)

// CatalogReader serves the read-only product endpoints. Catalog lifecycle
// (create/update/delete) is owned elsewhere; the engine only reads the
// catalog outside checkout, and mutates stock inside it.
type CatalogReader interface {
	Products(ctx context.Context) ([]models.Product, error)
	ProductByID(ctx context.Context, id string) (*models.Product, error)
}

type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(database *PostgresDB) *PostgresCatalog {
	return &PostgresCatalog{db: database.Conn}
}

// Products returns all products
func (c *PostgresCatalog) Products(ctx context.Context) ([]models.Product, error) {
	query := "SELECT id, name, price, stock, category, vendor_id, created_at FROM products ORDER BY id"

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.VendorID, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// ProductByID returns a single product
func (c *PostgresCatalog) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	query := "SELECT id, name, price, stock, category, vendor_id, created_at FROM products WHERE id = $1"

	var p models.Product
	err := c.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.VendorID, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}
