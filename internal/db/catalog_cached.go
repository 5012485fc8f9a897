package db

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/openbasket/marketplace/internal/cache"
	"github.com/openbasket/marketplace/internal/models"
)

// CachedCatalog layers Redis over a CatalogReader. Stock shown here may
// lag the ledger by up to the cache TTL or until an order event
// invalidates it; checkout never reads through this path.
type CachedCatalog struct {
	reader CatalogReader
	cache  *cache.RedisCache
}

func NewCachedCatalog(reader CatalogReader, cache *cache.RedisCache) *CachedCatalog {
	return &CachedCatalog{
		reader: reader,
		cache:  cache,
	}
}

// Cache key helpers
func ProductKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func AllProductsKey() string {
	return "products:all"
}

// Products returns all products (with caching)
func (c *CachedCatalog) Products(ctx context.Context) ([]models.Product, error) {
	cacheKey := AllProductsKey()

	// Try cache first
	var products []models.Product
	err := c.cache.Get(ctx, cacheKey, &products)
	if err == nil {
		return products, nil
	}

	// Cache miss - get from the catalog store
	products, err = c.reader.Products(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, cacheKey, products); err != nil {
		log.Printf("⚠️ Failed to cache products: %v", err)
	}

	return products, nil
}

// ProductByID returns a single product (with caching)
func (c *CachedCatalog) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	cacheKey := ProductKey(id)

	// Try cache first
	var product models.Product
	err := c.cache.Get(ctx, cacheKey, &product)
	if err == nil {
		return &product, nil
	}

	if err != redis.Nil {
		log.Printf("⚠️ Cache error: %v", err)
	}

	// Cache miss - get from the catalog store
	p, err := c.reader.ProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, nil
	}

	if err := c.cache.Set(ctx, cacheKey, p); err != nil {
		log.Printf("⚠️ Failed to cache product: %v", err)
	}

	return p, nil
}
