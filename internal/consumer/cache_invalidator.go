package consumer

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/openbasket/marketplace/internal/cache"
	"github.com/openbasket/marketplace/internal/db"
	"github.com/openbasket/marketplace/internal/models"
)

// CacheInvalidator drops stale catalog cache entries when orders commit.
// Stock moves inside the checkout transaction itself; this consumer only
// keeps the read-side cache from serving pre-checkout stock for a full TTL.
type CacheInvalidator struct {
	cache *cache.RedisCache
}

func NewCacheInvalidator(cache *cache.RedisCache) *CacheInvalidator {
	return &CacheInvalidator{cache: cache}
}

// ProcessOrderCreated handles order.created events
func (c *CacheInvalidator) ProcessOrderCreated(messages <-chan amqp.Delivery) {
	ctx := context.Background()

	for msg := range messages {
		var event models.OrderCreatedEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Printf("❌ Failed to parse order.created event: %v", err)
			// Don't requeue bad messages
			if err := msg.Nack(false, false); err != nil {
				log.Printf("⚠️ Failed to nack message: %v", err)
			}
			continue
		}

		// Invalidate every product the order touched, plus the listing
		for _, item := range event.Items {
			if err := c.cache.Delete(ctx, db.ProductKey(item.ProductID)); err != nil {
				log.Printf("⚠️ Failed to invalidate product %s: %v", item.ProductID, err)
			}
		}
		if err := c.cache.Delete(ctx, db.AllProductsKey()); err != nil {
			log.Printf("⚠️ Failed to invalidate product listing: %v", err)
		}

		if err := msg.Ack(false); err != nil {
			log.Printf("⚠️ Failed to ack message: %v", err)
		}
		log.Printf("🗑️ Cache invalidated for order %s (%d products)", event.OrderID, len(event.Items))
	}
}
