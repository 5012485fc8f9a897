package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/openbasket/marketplace/internal/db"
	"github.com/openbasket/marketplace/internal/models"
)

func newTestStore() *db.MemoryStore {
	store := db.NewMemoryStore()
	store.SeedProducts([]models.Product{
		{ID: "p-1", Name: "Mug", Price: 10.00, Stock: 5, VendorID: "v-a"},
		{ID: "p-2", Name: "Board", Price: 40.00, Stock: 3, VendorID: "v-a"},
		{ID: "p-3", Name: "Tote", Price: 20.00, Stock: 8, VendorID: "v-b"},
		{ID: "p-4", Name: "Candle", Price: 15.00, Stock: 1, VendorID: "v-c"},
	})
	return store
}

func mustStock(t *testing.T, store *db.MemoryStore, productID string) int {
	t.Helper()
	p, err := store.ProductByID(context.Background(), productID)
	if err != nil || p == nil {
		t.Fatalf("product %s not readable: %v", productID, err)
	}
	return p.Stock
}

func TestOrderService_PlaceOrder(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)

	req := models.CreateOrderRequest{Items: []models.CartLine{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "p-3", Quantity: 1},
		{ProductID: "p-2", Quantity: 1},
	}}

	order, err := svc.PlaceOrder(context.Background(), "cust-1", req)
	if err != nil {
		t.Fatalf("PlaceOrder() unexpected error: %v", err)
	}

	if order.CustomerID != "cust-1" || order.Status != models.StatusPending {
		t.Errorf("order = %+v", order)
	}
	if len(order.VendorOrders) != 2 {
		t.Fatalf("vendor orders = %d, want 2", len(order.VendorOrders))
	}
	if len(order.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(order.Items))
	}

	// Master total equals the sum over items and the sum over vendor orders.
	var itemSum, vendorSum float64
	for _, it := range order.Items {
		itemSum += it.Price * float64(it.Quantity)
	}
	for _, vo := range order.VendorOrders {
		vendorSum += vo.TotalAmount
		if vo.Status != models.StatusPending {
			t.Errorf("vendor order %s status = %s, want pending", vo.ID, vo.Status)
		}
	}
	if order.TotalAmount != itemSum || order.TotalAmount != vendorSum {
		t.Errorf("total = %.2f, item sum = %.2f, vendor sum = %.2f", order.TotalAmount, itemSum, vendorSum)
	}

	// Every item links into the graph.
	vendorByID := make(map[string]string)
	for _, vo := range order.VendorOrders {
		vendorByID[vo.ID] = vo.VendorID
	}
	for _, it := range order.Items {
		if it.OrderID != order.ID {
			t.Errorf("item %s order id = %s", it.ID, it.OrderID)
		}
		if _, ok := vendorByID[it.VendorOrderID]; !ok {
			t.Errorf("item %s references unknown vendor order %s", it.ID, it.VendorOrderID)
		}
	}

	// Stock decremented exactly by the ordered quantities.
	if got := mustStock(t, store, "p-1"); got != 3 {
		t.Errorf("p-1 stock = %d, want 3", got)
	}
	if got := mustStock(t, store, "p-2"); got != 2 {
		t.Errorf("p-2 stock = %d, want 2", got)
	}
	if got := mustStock(t, store, "p-3"); got != 7 {
		t.Errorf("p-3 stock = %d, want 7", got)
	}
}

func TestOrderService_PlaceOrder_Validation(t *testing.T) {
	svc := NewOrderService(newTestStore(), nil)

	tests := []struct {
		name    string
		items   []models.CartLine
		wantErr error
	}{
		{"empty cart", nil, models.ErrEmptyOrder},
		{"zero quantity", []models.CartLine{{ProductID: "p-1", Quantity: 0}}, models.ErrInvalidQuantity},
		{"negative quantity", []models.CartLine{{ProductID: "p-1", Quantity: -2}}, models.ErrInvalidQuantity},
		{"unknown product", []models.CartLine{{ProductID: "ghost", Quantity: 1}}, models.ErrProductNotFound},
		{"over stock", []models.CartLine{{ProductID: "p-2", Quantity: 99}}, models.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), "cust-1", models.CreateOrderRequest{Items: tt.items})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PlaceOrder() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrderService_PlaceOrder_AllOrNothing(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)

	// The valid first line must not keep its decrement when the second
	// line fails.
	req := models.CreateOrderRequest{Items: []models.CartLine{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "p-2", Quantity: 99},
	}}

	_, err := svc.PlaceOrder(context.Background(), "cust-1", req)
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("PlaceOrder() error = %v, want ErrInsufficientStock", err)
	}

	if got := mustStock(t, store, "p-1"); got != 5 {
		t.Errorf("p-1 stock = %d after aborted checkout, want 5", got)
	}

	orders, err := store.Orders(context.Background())
	if err != nil {
		t.Fatalf("Orders() error: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("persisted orders = %d after aborted checkout, want 0", len(orders))
	}
}

func TestOrderService_PlaceOrder_DuplicateLinesExceedingStock(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)

	// Each line fits the snapshot individually; together they exceed stock.
	// The ledger's conditional decrement must catch the cumulative overrun.
	req := models.CreateOrderRequest{Items: []models.CartLine{
		{ProductID: "p-2", Quantity: 2},
		{ProductID: "p-2", Quantity: 2},
	}}

	_, err := svc.PlaceOrder(context.Background(), "cust-1", req)
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("PlaceOrder() error = %v, want ErrInsufficientStock", err)
	}
	if got := mustStock(t, store, "p-2"); got != 3 {
		t.Errorf("p-2 stock = %d after aborted checkout, want 3", got)
	}
}

func TestOrderService_PlaceOrder_ConcurrentLastUnit(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)

	req := models.CreateOrderRequest{Items: []models.CartLine{
		{ProductID: "p-4", Quantity: 1}, // stock = 1
	}}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), "cust-1", req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrInsufficientStock):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 || losses != 1 {
		t.Fatalf("wins = %d, losses = %d; want exactly one of each", wins, losses)
	}
	if got := mustStock(t, store, "p-4"); got != 0 {
		t.Errorf("p-4 stock = %d, want 0", got)
	}

	orders, _ := store.Orders(context.Background())
	if len(orders) != 1 {
		t.Errorf("persisted orders = %d, want 1", len(orders))
	}
}

// placeTwoVendorOrder creates an order spanning v-a and v-b and returns it.
func placeTwoVendorOrder(t *testing.T, svc *OrderService) *models.Order {
	t.Helper()
	order, err := svc.PlaceOrder(context.Background(), "cust-1", models.CreateOrderRequest{
		Items: []models.CartLine{
			{ProductID: "p-1", Quantity: 1},
			{ProductID: "p-3", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() unexpected error: %v", err)
	}
	return order
}

func vendorOrderOf(t *testing.T, order *models.Order, vendorID string) models.VendorOrder {
	t.Helper()
	for _, vo := range order.VendorOrders {
		if vo.VendorID == vendorID {
			return vo
		}
	}
	t.Fatalf("no vendor order for %s", vendorID)
	return models.VendorOrder{}
}

func masterStatus(t *testing.T, store *db.MemoryStore, orderID string) models.Status {
	t.Helper()
	o, err := store.OrderByID(context.Background(), orderID)
	if err != nil || o == nil {
		t.Fatalf("order %s not readable: %v", orderID, err)
	}
	return o.Status
}

func TestOrderService_UpdateVendorOrderStatus_Unanimity(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)
	order := placeTwoVendorOrder(t, svc)

	voA := vendorOrderOf(t, order, "v-a")
	voB := vendorOrderOf(t, order, "v-b")

	// First vendor moves alone: master stays pending.
	updated, err := svc.UpdateVendorOrderStatus(context.Background(), "v-a", voA.ID, "processing")
	if err != nil {
		t.Fatalf("UpdateVendorOrderStatus() error: %v", err)
	}
	if updated.Status != models.StatusProcessing {
		t.Errorf("vendor order status = %s, want processing", updated.Status)
	}
	if got := masterStatus(t, store, order.ID); got != models.StatusPending {
		t.Errorf("master status = %s after one vendor moved, want pending", got)
	}

	// Second vendor agrees: master promotes.
	if _, err := svc.UpdateVendorOrderStatus(context.Background(), "v-b", voB.ID, "processing"); err != nil {
		t.Fatalf("UpdateVendorOrderStatus() error: %v", err)
	}
	if got := masterStatus(t, store, order.ID); got != models.StatusProcessing {
		t.Errorf("master status = %s after unanimity, want processing", got)
	}

	// One vendor cancels: mixed set, master keeps its last agreed status.
	if _, err := svc.UpdateVendorOrderStatus(context.Background(), "v-a", voA.ID, "cancelled"); err != nil {
		t.Fatalf("UpdateVendorOrderStatus() error: %v", err)
	}
	if got := masterStatus(t, store, order.ID); got != models.StatusProcessing {
		t.Errorf("master status = %s with mixed vendor statuses, want processing", got)
	}

	// The other converges on cancelled: master follows.
	if _, err := svc.UpdateVendorOrderStatus(context.Background(), "v-b", voB.ID, "cancelled"); err != nil {
		t.Fatalf("UpdateVendorOrderStatus() error: %v", err)
	}
	if got := masterStatus(t, store, order.ID); got != models.StatusCancelled {
		t.Errorf("master status = %s after both cancelled, want cancelled", got)
	}
}

func TestOrderService_UpdateVendorOrderStatus_CancelAfterCompleted(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)

	order, err := svc.PlaceOrder(context.Background(), "cust-1", models.CreateOrderRequest{
		Items: []models.CartLine{{ProductID: "p-1", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() unexpected error: %v", err)
	}
	voID := order.VendorOrders[0].ID

	// A fulfilled vendor order can still be voided.
	for _, status := range []string{"processing", "completed", "cancelled"} {
		updated, err := svc.UpdateVendorOrderStatus(context.Background(), "v-a", voID, status)
		if err != nil {
			t.Fatalf("UpdateVendorOrderStatus(%s) error: %v", status, err)
		}
		if string(updated.Status) != status {
			t.Errorf("vendor order status = %s, want %s", updated.Status, status)
		}
	}

	// Single vendor order, so the master follows it into cancelled.
	if got := masterStatus(t, store, order.ID); got != models.StatusCancelled {
		t.Errorf("master status = %s after cancellation, want cancelled", got)
	}

	// Cancelled never moves again.
	_, err = svc.UpdateVendorOrderStatus(context.Background(), "v-a", voID, "processing")
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("UpdateVendorOrderStatus() after cancel error = %v, want ErrInvalidTransition", err)
	}
}

func TestOrderService_UpdateVendorOrderStatus_ConcurrentSiblings(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)
	order := placeTwoVendorOrder(t, svc)

	// Both siblings move at once; neither update may act on a stale view of
	// the other, so the unanimity check of whichever commits second must see
	// both at processing and promote the master.
	updates := []struct {
		vendorID string
		id       string
	}{
		{"v-a", vendorOrderOf(t, order, "v-a").ID},
		{"v-b", vendorOrderOf(t, order, "v-b").ID},
	}

	var wg sync.WaitGroup
	results := make(chan error, len(updates))
	for _, u := range updates {
		wg.Add(1)
		go func(vendorID, id string) {
			defer wg.Done()
			_, err := svc.UpdateVendorOrderStatus(context.Background(), vendorID, id, "processing")
			results <- err
		}(u.vendorID, u.id)
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("UpdateVendorOrderStatus() error: %v", err)
		}
	}

	if got := masterStatus(t, store, order.ID); got != models.StatusProcessing {
		t.Errorf("master status = %s after concurrent sibling updates, want processing", got)
	}
}

func TestOrderService_UpdateVendorOrderStatus_Failures(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)
	order := placeTwoVendorOrder(t, svc)
	voA := vendorOrderOf(t, order, "v-a")

	tests := []struct {
		name     string
		vendorID string
		id       string
		status   string
		wantErr  error
	}{
		{"unknown status", "v-a", voA.ID, "shipped", models.ErrInvalidStatus},
		{"skipping a step", "v-a", voA.ID, "completed", models.ErrInvalidTransition},
		{"unknown vendor order", "v-a", "missing", "processing", models.ErrVendorOrderNotFound},
		// Another vendor's order reads as not found, not forbidden.
		{"foreign vendor order", "v-b", voA.ID, "processing", models.ErrVendorOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateVendorOrderStatus(context.Background(), tt.vendorID, tt.id, tt.status)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateVendorOrderStatus() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed updates leave no state change behind.
	fresh, err := store.OrderByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("OrderByID() error: %v", err)
	}
	for _, vo := range fresh.VendorOrders {
		if vo.Status != models.StatusPending {
			t.Errorf("vendor order %s status = %s after failed updates, want pending", vo.ID, vo.Status)
		}
	}
}

func TestOrderService_GetOrder_Scoping(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)
	order := placeTwoVendorOrder(t, svc)

	ctx := context.Background()

	// Owner sees the full graph.
	view, err := svc.GetOrder(ctx, models.Principal{UserID: "cust-1", Role: models.RoleCustomer}, order.ID)
	if err != nil {
		t.Fatalf("GetOrder() as owner error: %v", err)
	}
	if view.Order == nil || view.Order.ID != order.ID {
		t.Fatalf("GetOrder() as owner view = %+v", view)
	}

	// A different customer gets not found, not forbidden.
	_, err = svc.GetOrder(ctx, models.Principal{UserID: "cust-2", Role: models.RoleCustomer}, order.ID)
	if !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("GetOrder() as stranger error = %v, want ErrOrderNotFound", err)
	}

	// A vendor sees only their slice.
	view, err = svc.GetOrder(ctx, models.Principal{UserID: "v-a", Role: models.RoleVendor}, order.ID)
	if err != nil {
		t.Fatalf("GetOrder() as vendor error: %v", err)
	}
	if view.VendorOrder == nil || view.VendorOrder.VendorID != "v-a" {
		t.Fatalf("GetOrder() as vendor view = %+v", view)
	}
	for _, it := range view.VendorOrder.Items {
		if it.ProductID != "p-1" {
			t.Errorf("vendor view leaked foreign item %s", it.ProductID)
		}
	}

	// A vendor with no part in the order gets not found.
	_, err = svc.GetOrder(ctx, models.Principal{UserID: "v-c", Role: models.RoleVendor}, order.ID)
	if !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("GetOrder() as uninvolved vendor error = %v, want ErrOrderNotFound", err)
	}

	// Admin sees anything.
	view, err = svc.GetOrder(ctx, models.Principal{UserID: "root", Role: models.RoleAdmin}, order.ID)
	if err != nil || view.Order == nil {
		t.Fatalf("GetOrder() as admin = %+v, %v", view, err)
	}

	_, err = svc.GetOrder(ctx, models.Principal{UserID: "root", Role: models.RoleAdmin}, "missing")
	if !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("GetOrder() unknown id error = %v, want ErrOrderNotFound", err)
	}
}

func TestOrderService_ListOrders(t *testing.T) {
	store := newTestStore()
	svc := NewOrderService(store, nil)
	ctx := context.Background()

	first := placeTwoVendorOrder(t, svc)
	second, err := svc.PlaceOrder(ctx, "cust-1", models.CreateOrderRequest{
		Items: []models.CartLine{{ProductID: "p-3", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}
	if _, err := svc.PlaceOrder(ctx, "cust-2", models.CreateOrderRequest{
		Items: []models.CartLine{{ProductID: "p-1", Quantity: 1}},
	}); err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}

	list, err := svc.ListOrders(ctx, models.Principal{UserID: "cust-1", Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("ListOrders() error: %v", err)
	}
	if len(list.Orders) != 2 {
		t.Fatalf("customer orders = %d, want 2", len(list.Orders))
	}
	// Most recent first.
	if list.Orders[0].ID != second.ID || list.Orders[1].ID != first.ID {
		t.Errorf("customer listing order = [%s %s]", list.Orders[0].ID, list.Orders[1].ID)
	}

	list, err = svc.ListOrders(ctx, models.Principal{UserID: "v-b", Role: models.RoleVendor})
	if err != nil {
		t.Fatalf("ListOrders() error: %v", err)
	}
	if len(list.VendorOrders) != 2 {
		t.Fatalf("vendor orders = %d, want 2", len(list.VendorOrders))
	}
	for _, vo := range list.VendorOrders {
		if vo.VendorID != "v-b" {
			t.Errorf("vendor listing leaked vendor order of %s", vo.VendorID)
		}
	}

	list, err = svc.ListOrders(ctx, models.Principal{UserID: "root", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("ListOrders() error: %v", err)
	}
	if len(list.Orders) != 3 {
		t.Errorf("admin orders = %d, want 3", len(list.Orders))
	}
}
