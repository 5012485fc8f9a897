package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbasket/marketplace/internal/middleware"
	"github.com/openbasket/marketplace/internal/models"
	"github.com/openbasket/marketplace/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// HealthCheck returns server status
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "marketplace-server"})
}

// PlaceOrder handles POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	principal := middleware.PrincipalFrom(c)
	order, err := h.orders.PlaceOrder(c.Request.Context(), principal.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyOrder),
			errors.Is(err, models.ErrInvalidQuantity),
			errors.Is(err, models.ErrProductNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrTransactionConflict):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			log.Printf("❌ Failed to place order: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to place order"})
		}
		return
	}

	log.Printf("✅ Order %s placed for customer %s, total %.2f across %d vendors",
		order.ID, order.CustomerID, order.TotalAmount, len(order.VendorOrders))
	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)

	view, err := h.orders.GetOrder(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		log.Printf("❌ Failed to get order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}

	if view.VendorOrder != nil {
		c.JSON(http.StatusOK, view.VendorOrder)
		return
	}
	c.JSON(http.StatusOK, view.Order)
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)

	list, err := h.orders.ListOrders(c.Request.Context(), principal)
	if err != nil {
		log.Printf("❌ Failed to list orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}

	if principal.Role == models.RoleVendor {
		c.JSON(http.StatusOK, list.VendorOrders)
		return
	}
	c.JSON(http.StatusOK, list.Orders)
}

// UpdateVendorOrderStatus handles PATCH /vendor-orders/:id/status
func (h *OrderHandler) UpdateVendorOrderStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	principal := middleware.PrincipalFrom(c)
	vendorOrder, err := h.orders.UpdateVendorOrderStatus(c.Request.Context(), principal.UserID, c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrVendorOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "vendor order not found"})
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			log.Printf("❌ Failed to update vendor order status: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, vendorOrder)
}
