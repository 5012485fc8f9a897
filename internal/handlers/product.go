package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbasket/marketplace/internal/db"
)

// ProductHandler serves read-only catalog endpoints. Catalog lifecycle is
// managed elsewhere.
type ProductHandler struct {
	catalog db.CatalogReader
}

func NewProductHandler(catalog db.CatalogReader) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.Products(c.Request.Context())
	if err != nil {
		log.Printf("❌ Failed to list products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.ProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("❌ Failed to get product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get product"})
		return
	}

	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}
