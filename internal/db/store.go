package db

import (
	"context"

	"github.com/openbasket/marketplace/internal/models"
)

// Checkout is the unit of work for order placement. Every read and write
// made through one Checkout commits together or leaves no trace, including
// stock decrements applied before a later line fails.
type Checkout interface {
	// ProductsForUpdate returns locked snapshots for the given product ids.
	// Ids that do not resolve are simply absent from the map. Duplicate ids
	// are read once.
	ProductsForUpdate(ctx context.Context, ids []string) (map[string]models.Product, error)

	// ReserveStock decrements stock for one line. It fails with
	// InsufficientStockError when the remaining stock cannot cover the
	// quantity, which makes the decrement the serialization point between
	// racing checkouts.
	ReserveStock(ctx context.Context, productID string, quantity int) error

	// InsertOrderGraph persists the master order, its vendor orders and
	// its items.
	InsertOrderGraph(ctx context.Context, order *models.Order) error
}

// StatusUpdate is the unit of work for a vendor order status change plus
// the unanimity check over its siblings. Sibling reads are locked so two
// concurrent updates under the same master order cannot both observe
// stale state.
type StatusUpdate interface {
	VendorOrderForUpdate(ctx context.Context, vendorOrderID string) (*models.VendorOrder, error)
	SetVendorOrderStatus(ctx context.Context, vendorOrderID string, status models.Status) error
	SiblingStatuses(ctx context.Context, orderID string) ([]models.Status, error)
	OrderStatus(ctx context.Context, orderID string) (models.Status, error)
	SetOrderStatus(ctx context.Context, orderID string, status models.Status) error
}

// Store is the transactional resource the order engine runs against.
// Read methods follow the repository convention of returning (nil, nil)
// when nothing matches; the service layer decides what "not found" means
// for the caller's role.
type Store interface {
	Checkout(ctx context.Context, fn func(Checkout) error) error
	UpdateStatus(ctx context.Context, fn func(StatusUpdate) error) error

	OrderByID(ctx context.Context, orderID string) (*models.Order, error)
	OrderForCustomer(ctx context.Context, customerID, orderID string) (*models.Order, error)
	VendorOrderForVendor(ctx context.Context, vendorID, orderID string) (*models.VendorOrderView, error)
	Orders(ctx context.Context) ([]models.Order, error)
	OrdersForCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	VendorOrdersForVendor(ctx context.Context, vendorID string) ([]models.VendorOrderView, error)
}
