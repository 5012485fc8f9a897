package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbasket/marketplace/internal/db"
	"github.com/openbasket/marketplace/internal/middleware"
)

type AnalyticsHandler struct {
	analytics *db.AnalyticsStore
}

func NewAnalyticsHandler(analytics *db.AnalyticsStore) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// VendorRevenue handles GET /analytics/vendor-revenue
func (h *AnalyticsHandler) VendorRevenue(c *gin.Context) {
	revenues, err := h.analytics.VendorRevenues(c.Request.Context())
	if err != nil {
		log.Printf("❌ Failed to get vendor revenue: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get vendor revenue"})
		return
	}

	c.JSON(http.StatusOK, revenues)
}

// TopProducts handles GET /analytics/top-products
func (h *AnalyticsHandler) TopProducts(c *gin.Context) {
	sales, err := h.analytics.TopProducts(c.Request.Context())
	if err != nil {
		log.Printf("❌ Failed to get top products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get top products"})
		return
	}

	c.JSON(http.StatusOK, sales)
}

// AverageOrderValue handles GET /analytics/average-order-value
func (h *AnalyticsHandler) AverageOrderValue(c *gin.Context) {
	avg, err := h.analytics.AverageOrderValue(c.Request.Context())
	if err != nil {
		log.Printf("❌ Failed to get average order value: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get average order value"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"average_order_value": avg})
}

// DailySales handles GET /analytics/daily-sales
func (h *AnalyticsHandler) DailySales(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)

	sales, err := h.analytics.VendorDailySales(c.Request.Context(), principal.UserID)
	if err != nil {
		log.Printf("❌ Failed to get daily sales: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get daily sales"})
		return
	}

	c.JSON(http.StatusOK, sales)
}

// LowStock handles GET /analytics/low-stock
func (h *AnalyticsHandler) LowStock(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)

	products, err := h.analytics.LowStockProducts(c.Request.Context(), principal.UserID)
	if err != nil {
		log.Printf("❌ Failed to get low stock products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get low stock products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(products), "products": products})
}
