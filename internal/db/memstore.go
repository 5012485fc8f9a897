package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openbasket/marketplace/internal/models"
)

// MemoryStore is a mutex-guarded Store used for development mode and
// tests. Each unit of work holds the lock for its whole duration, which
// makes every checkout serializable by construction; an undo journal
// restores stock and statuses when a unit of work fails partway.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	orders   map[string]*models.Order
	orderIDs []string // insertion order, oldest first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]models.Product),
		orders:   make(map[string]*models.Order),
	}
}

// SeedProducts loads catalog rows; existing entries with the same id are
// replaced.
func (m *MemoryStore) SeedProducts(products []models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		m.products[p.ID] = p
	}
}

func (m *MemoryStore) Checkout(ctx context.Context, fn func(Checkout) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	co := &memCheckout{store: m, prevStock: make(map[string]int)}
	if err := fn(co); err != nil {
		co.undo()
		return err
	}
	return nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, fn func(StatusUpdate) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	su := &memStatusUpdate{store: m}
	if err := fn(su); err != nil {
		su.undo()
		return err
	}
	return nil
}

type memCheckout struct {
	store     *MemoryStore
	prevStock map[string]int // stock values before first touch
	orderID   string
}

func (c *memCheckout) undo() {
	for id, stock := range c.prevStock {
		p := c.store.products[id]
		p.Stock = stock
		c.store.products[id] = p
	}
	if c.orderID != "" {
		delete(c.store.orders, c.orderID)
		ids := c.store.orderIDs
		if len(ids) > 0 && ids[len(ids)-1] == c.orderID {
			c.store.orderIDs = ids[:len(ids)-1]
		}
	}
}

func (c *memCheckout) ProductsForUpdate(ctx context.Context, ids []string) (map[string]models.Product, error) {
	products := make(map[string]models.Product)
	for _, id := range ids {
		if p, ok := c.store.products[id]; ok {
			products[id] = p
		}
	}
	return products, nil
}

func (c *memCheckout) ReserveStock(ctx context.Context, productID string, quantity int) error {
	p, ok := c.store.products[productID]
	if !ok {
		return &models.ProductNotFoundError{ProductID: productID}
	}
	if p.Stock < quantity {
		return &models.InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: quantity}
	}
	if _, touched := c.prevStock[productID]; !touched {
		c.prevStock[productID] = p.Stock
	}
	p.Stock -= quantity
	c.store.products[productID] = p
	return nil
}

func (c *memCheckout) InsertOrderGraph(ctx context.Context, order *models.Order) error {
	now := time.Now()
	order.CreatedAt = now
	for i := range order.VendorOrders {
		order.VendorOrders[i].CreatedAt = now
	}

	stored := cloneOrder(order)
	c.store.orders[order.ID] = &stored
	c.store.orderIDs = append(c.store.orderIDs, order.ID)
	c.orderID = order.ID
	return nil
}

type memStatusUpdate struct {
	store *MemoryStore

	changedOrder    string
	prevVendor      map[string]models.Status // vendor order id -> prior status
	prevOrderStatus *models.Status
}

func (u *memStatusUpdate) undo() {
	o, ok := u.store.orders[u.changedOrder]
	if !ok {
		return
	}
	for id, prev := range u.prevVendor {
		for i := range o.VendorOrders {
			if o.VendorOrders[i].ID == id {
				o.VendorOrders[i].Status = prev
			}
		}
	}
	if u.prevOrderStatus != nil {
		o.Status = *u.prevOrderStatus
	}
}

func (u *memStatusUpdate) find(vendorOrderID string) (*models.Order, *models.VendorOrder) {
	for _, o := range u.store.orders {
		for i := range o.VendorOrders {
			if o.VendorOrders[i].ID == vendorOrderID {
				return o, &o.VendorOrders[i]
			}
		}
	}
	return nil, nil
}

func (u *memStatusUpdate) VendorOrderForUpdate(ctx context.Context, vendorOrderID string) (*models.VendorOrder, error) {
	_, vo := u.find(vendorOrderID)
	if vo == nil {
		return nil, nil
	}
	copied := *vo
	return &copied, nil
}

func (u *memStatusUpdate) SetVendorOrderStatus(ctx context.Context, vendorOrderID string, status models.Status) error {
	o, vo := u.find(vendorOrderID)
	if vo == nil {
		return models.ErrVendorOrderNotFound
	}
	if u.prevVendor == nil {
		u.prevVendor = make(map[string]models.Status)
	}
	if _, touched := u.prevVendor[vendorOrderID]; !touched {
		u.prevVendor[vendorOrderID] = vo.Status
	}
	u.changedOrder = o.ID
	vo.Status = status
	return nil
}

func (u *memStatusUpdate) SiblingStatuses(ctx context.Context, orderID string) ([]models.Status, error) {
	o, ok := u.store.orders[orderID]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	statuses := make([]models.Status, 0, len(o.VendorOrders))
	for _, vo := range o.VendorOrders {
		statuses = append(statuses, vo.Status)
	}
	return statuses, nil
}

func (u *memStatusUpdate) OrderStatus(ctx context.Context, orderID string) (models.Status, error) {
	o, ok := u.store.orders[orderID]
	if !ok {
		return "", models.ErrOrderNotFound
	}
	return o.Status, nil
}

func (u *memStatusUpdate) SetOrderStatus(ctx context.Context, orderID string, status models.Status) error {
	o, ok := u.store.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	if u.prevOrderStatus == nil {
		prev := o.Status
		u.prevOrderStatus = &prev
	}
	u.changedOrder = orderID
	o.Status = status
	return nil
}

func (m *MemoryStore) OrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := cloneOrder(o)
	return &copied, nil
}

func (m *MemoryStore) OrderForCustomer(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.CustomerID != customerID {
		return nil, nil
	}
	copied := cloneOrder(o)
	return &copied, nil
}

func (m *MemoryStore) VendorOrderForVendor(ctx context.Context, vendorID, orderID string) (*models.VendorOrderView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	for _, vo := range o.VendorOrders {
		if vo.VendorID != vendorID {
			continue
		}
		view := models.VendorOrderView{
			VendorOrder: vo,
			Order: models.OrderSummary{
				ID:         o.ID,
				CustomerID: o.CustomerID,
				Status:     o.Status,
				CreatedAt:  o.CreatedAt,
			},
		}
		for _, it := range o.Items {
			if it.VendorOrderID == vo.ID {
				view.Items = append(view.Items, it)
			}
		}
		return &view, nil
	}
	return nil, nil
}

func (m *MemoryStore) Orders(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ordersNewestFirst(func(*models.Order) bool { return true }), nil
}

func (m *MemoryStore) OrdersForCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ordersNewestFirst(func(o *models.Order) bool { return o.CustomerID == customerID }), nil
}

func (m *MemoryStore) ordersNewestFirst(keep func(*models.Order) bool) []models.Order {
	var orders []models.Order
	for i := len(m.orderIDs) - 1; i >= 0; i-- {
		o := m.orders[m.orderIDs[i]]
		if keep(o) {
			orders = append(orders, cloneOrder(o))
		}
	}
	return orders
}

func (m *MemoryStore) VendorOrdersForVendor(ctx context.Context, vendorID string) ([]models.VendorOrderView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var views []models.VendorOrderView
	for i := len(m.orderIDs) - 1; i >= 0; i-- {
		o := m.orders[m.orderIDs[i]]
		for _, vo := range o.VendorOrders {
			if vo.VendorID != vendorID {
				continue
			}
			views = append(views, models.VendorOrderView{
				VendorOrder: vo,
				Order: models.OrderSummary{
					ID:         o.ID,
					CustomerID: o.CustomerID,
					Status:     o.Status,
					CreatedAt:  o.CreatedAt,
				},
			})
		}
	}
	return views, nil
}

// Products returns the catalog sorted by id for stable listings.
func (m *MemoryStore) Products(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	products := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (m *MemoryStore) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func cloneOrder(o *models.Order) models.Order {
	copied := *o
	copied.VendorOrders = append([]models.VendorOrder(nil), o.VendorOrders...)
	copied.Items = append([]models.OrderItem(nil), o.Items...)
	return copied
}
