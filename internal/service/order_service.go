package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/openbasket/marketplace/internal/db"
	"github.com/openbasket/marketplace/internal/models"
)

// EventPublisher emits order events after a unit of work commits.
// Publication is best-effort: a publish failure never fails the request.
type EventPublisher interface {
	PublishOrderCreated(order *models.Order) error
	PublishStatusChanged(event models.OrderStatusChangedEvent) error
}

// OrderService is the order transaction engine: checkout decomposition
// with stock reservation, vendor status progression with master-order
// aggregation, and role-scoped reads.
type OrderService struct {
	store     db.Store
	publisher EventPublisher
}

// NewOrderService creates the engine over a Store. publisher may be nil
// when no broker is configured.
func NewOrderService(store db.Store, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
	}
}

// PlaceOrder turns a cart into a persisted order graph. Validation,
// decomposition, stock reservation and persistence run in one unit of
// work: either the whole graph commits with every decrement, or nothing
// does.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID string, req models.CreateOrderRequest) (*models.Order, error) {
	// Malformed carts are rejected before any transaction starts.
	if len(req.Items) == 0 {
		return nil, models.ErrEmptyOrder
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", models.ErrInvalidQuantity, line.ProductID)
		}
	}

	var order *models.Order
	err := s.store.Checkout(ctx, func(co db.Checkout) error {
		ids := make([]string, 0, len(req.Items))
		for _, line := range req.Items {
			ids = append(ids, line.ProductID)
		}

		products, err := co.ProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		groups, total, err := PartitionByVendor(req.Items, products)
		if err != nil {
			return err
		}

		order = buildOrderGraph(customerID, groups, total)

		// Reserve per line after validation; a loser of a concurrent race
		// fails here and the whole checkout rolls back.
		for _, item := range order.Items {
			if err := co.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		return co.InsertOrderGraph(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(order); err != nil {
			log.Printf("⚠️ Failed to publish order.created for %s: %v", order.ID, err)
		}
	}
	return order, nil
}

// buildOrderGraph materializes the order, one vendor order per group and
// the line items, all pending.
func buildOrderGraph(customerID string, groups []VendorGroup, total float64) *models.Order {
	order := &models.Order{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		TotalAmount: total,
		Status:      models.StatusPending,
	}

	for _, g := range groups {
		vo := models.VendorOrder{
			ID:          uuid.NewString(),
			VendorID:    g.VendorID,
			OrderID:     order.ID,
			TotalAmount: g.Subtotal,
			Status:      models.StatusPending,
		}
		order.VendorOrders = append(order.VendorOrders, vo)

		for _, line := range g.Lines {
			order.Items = append(order.Items, models.OrderItem{
				ID:            uuid.NewString(),
				OrderID:       order.ID,
				VendorOrderID: vo.ID,
				ProductID:     line.ProductID,
				ProductName:   line.ProductName,
				Quantity:      line.Quantity,
				Price:         line.UnitPrice,
			})
		}
	}
	return order
}

// UpdateVendorOrderStatus applies a vendor's transition to their vendor
// order and re-derives the master status under the unanimity rule, all in
// one atomic scope. A vendor order owned by someone else reports not
// found, never forbidden.
func (s *OrderService) UpdateVendorOrderStatus(ctx context.Context, vendorID, vendorOrderID, rawStatus string) (*models.VendorOrder, error) {
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	var (
		updated *models.VendorOrder
		event   models.OrderStatusChangedEvent
	)
	err = s.store.UpdateStatus(ctx, func(u db.StatusUpdate) error {
		vo, err := u.VendorOrderForUpdate(ctx, vendorOrderID)
		if err != nil {
			return err
		}
		if vo == nil || vo.VendorID != vendorID {
			return models.ErrVendorOrderNotFound
		}
		if !vo.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, vo.Status, status)
		}

		if err := u.SetVendorOrderStatus(ctx, vo.ID, status); err != nil {
			return err
		}

		siblings, err := u.SiblingStatuses(ctx, vo.OrderID)
		if err != nil {
			return err
		}

		masterStatus, err := u.OrderStatus(ctx, vo.OrderID)
		if err != nil {
			return err
		}
		if agreed, ok := models.AggregateStatus(siblings); ok && agreed != masterStatus {
			if err := u.SetOrderStatus(ctx, vo.OrderID, agreed); err != nil {
				return err
			}
			masterStatus = agreed
		}

		vo.Status = status
		updated = vo
		event = models.OrderStatusChangedEvent{
			OrderID:       vo.OrderID,
			VendorOrderID: vo.ID,
			VendorID:      vo.VendorID,
			Status:        status,
			OrderStatus:   masterStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishStatusChanged(event); err != nil {
			log.Printf("⚠️ Failed to publish order.status_changed for %s: %v", event.VendorOrderID, err)
		}
	}
	return updated, nil
}

// OrderView is the role-shaped result of GetOrder: customers and admins
// get the master order, vendors get their slice of it.
type OrderView struct {
	Order       *models.Order
	VendorOrder *models.VendorOrderView
}

// GetOrder reads one order within the principal's scope. Anything outside
// that scope reports not found.
func (s *OrderService) GetOrder(ctx context.Context, principal models.Principal, orderID string) (*OrderView, error) {
	switch principal.Role {
	case models.RoleAdmin:
		order, err := s.store.OrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, models.ErrOrderNotFound
		}
		return &OrderView{Order: order}, nil

	case models.RoleCustomer:
		order, err := s.store.OrderForCustomer(ctx, principal.UserID, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, models.ErrOrderNotFound
		}
		return &OrderView{Order: order}, nil

	case models.RoleVendor:
		view, err := s.store.VendorOrderForVendor(ctx, principal.UserID, orderID)
		if err != nil {
			return nil, err
		}
		if view == nil {
			return nil, models.ErrOrderNotFound
		}
		return &OrderView{VendorOrder: view}, nil
	}
	return nil, models.ErrOrderNotFound
}

// OrderList is the role-shaped result of ListOrders, most recent first.
type OrderList struct {
	Orders       []models.Order
	VendorOrders []models.VendorOrderView
}

// ListOrders lists everything within the principal's scope.
func (s *OrderService) ListOrders(ctx context.Context, principal models.Principal) (*OrderList, error) {
	switch principal.Role {
	case models.RoleAdmin:
		orders, err := s.store.Orders(ctx)
		if err != nil {
			return nil, err
		}
		return &OrderList{Orders: orders}, nil

	case models.RoleCustomer:
		orders, err := s.store.OrdersForCustomer(ctx, principal.UserID)
		if err != nil {
			return nil, err
		}
		return &OrderList{Orders: orders}, nil

	case models.RoleVendor:
		views, err := s.store.VendorOrdersForVendor(ctx, principal.UserID)
		if err != nil {
			return nil, err
		}
		return &OrderList{VendorOrders: views}, nil
	}
	return &OrderList{}, nil
}
