package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openbasket/marketplace/internal/models"
)

// lowStockThreshold marks products a vendor should restock.
const lowStockThreshold = 10

// dailySalesDays is the reporting window for per-day vendor sales.
const dailySalesDays = 7

type VendorRevenue struct {
	VendorID string  `json:"vendor_id"`
	Revenue  float64 `json:"revenue"`
}

type DailySales struct {
	Date       string  `json:"date"`
	TotalSales float64 `json:"total_sales"`
	OrderCount int     `json:"order_count"`
}

type ProductSales struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalQuantity int     `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// AnalyticsStore serves the read-only reporting endpoints. It aggregates
// persisted orders and never touches the stock ledger.
type AnalyticsStore struct {
	db *sql.DB
}

func NewAnalyticsStore(database *PostgresDB) *AnalyticsStore {
	return &AnalyticsStore{db: database.Conn}
}

// VendorRevenues sums non-cancelled vendor order totals over the last 30
// days, highest revenue first.
func (s *AnalyticsStore) VendorRevenues(ctx context.Context) ([]VendorRevenue, error) {
	query := `
		SELECT vendor_id, COALESCE(SUM(total_amount), 0)
		FROM vendor_orders
		WHERE created_at >= $1 AND status <> 'cancelled'
		GROUP BY vendor_id
		ORDER BY 2 DESC
	`
	rows, err := s.db.QueryContext(ctx, query, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor revenue: %w", err)
	}
	defer rows.Close()

	var revenues []VendorRevenue
	for rows.Next() {
		var r VendorRevenue
		if err := rows.Scan(&r.VendorID, &r.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan vendor revenue: %w", err)
		}
		revenues = append(revenues, r)
	}
	return revenues, rows.Err()
}

// TopProducts returns the five best sellers by quantity across processing
// and completed orders.
func (s *AnalyticsStore) TopProducts(ctx context.Context) ([]ProductSales, error) {
	query := `
		SELECT oi.product_id, oi.product_name,
		       SUM(oi.quantity), SUM(oi.price * oi.quantity)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status IN ('processing', 'completed')
		GROUP BY oi.product_id, oi.product_name
		ORDER BY 3 DESC
		LIMIT 5
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	var sales []ProductSales
	for rows.Next() {
		var p ProductSales
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.TotalQuantity, &p.TotalRevenue); err != nil {
			return nil, fmt.Errorf("failed to scan product sales: %w", err)
		}
		sales = append(sales, p)
	}
	return sales, rows.Err()
}

// AverageOrderValue averages master order totals, cancelled orders excluded.
func (s *AnalyticsStore) AverageOrderValue(ctx context.Context) (float64, error) {
	query := `SELECT COALESCE(AVG(total_amount), 0) FROM orders WHERE status <> 'cancelled'`

	var avg float64
	if err := s.db.QueryRowContext(ctx, query).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to get average order value: %w", err)
	}
	return avg, nil
}

// VendorDailySales breaks the vendor's last seven days down into per-day
// totals and order counts, cancelled orders excluded. Days without sales
// appear with zeros, oldest first.
func (s *AnalyticsStore) VendorDailySales(ctx context.Context, vendorID string) ([]DailySales, error) {
	query := `
		SELECT created_at::date, COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM vendor_orders
		WHERE vendor_id = $1 AND created_at >= $2 AND status <> 'cancelled'
		GROUP BY 1
	`
	rows, err := s.db.QueryContext(ctx, query, vendorID, time.Now().AddDate(0, 0, -(dailySalesDays-1)).Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}
	defer rows.Close()

	var sales []DailySales
	for rows.Next() {
		var day time.Time
		var d DailySales
		if err := rows.Scan(&day, &d.TotalSales, &d.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily sales: %w", err)
		}
		d.Date = day.Format("2006-01-02")
		sales = append(sales, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fillDailySales(time.Now(), sales), nil
}

// fillDailySales maps sparse per-day rows onto a dense window ending today,
// oldest first, so the caller always gets one entry per day.
func fillDailySales(now time.Time, sales []DailySales) []DailySales {
	byDate := make(map[string]DailySales, len(sales))
	for _, d := range sales {
		byDate[d.Date] = d
	}

	filled := make([]DailySales, 0, dailySalesDays)
	for i := dailySalesDays - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		day := DailySales{Date: date}
		if d, ok := byDate[date]; ok {
			day.TotalSales = d.TotalSales
			day.OrderCount = d.OrderCount
		}
		filled = append(filled, day)
	}
	return filled
}

// LowStockProducts lists the vendor's products under the restock
// threshold, emptiest first.
func (s *AnalyticsStore) LowStockProducts(ctx context.Context, vendorID string) ([]models.Product, error) {
	query := `
		SELECT id, name, price, stock, category, vendor_id, created_at
		FROM products
		WHERE vendor_id = $1 AND stock < $2
		ORDER BY stock ASC
	`
	rows, err := s.db.QueryContext(ctx, query, vendorID, lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
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
