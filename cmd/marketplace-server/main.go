package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/openbasket/marketplace/internal/cache"
	"github.com/openbasket/marketplace/internal/config"
	"github.com/openbasket/marketplace/internal/consumer"
	"github.com/openbasket/marketplace/internal/db"
	"github.com/openbasket/marketplace/internal/discovery"
	"github.com/openbasket/marketplace/internal/handlers"
	"github.com/openbasket/marketplace/internal/messaging"
	"github.com/openbasket/marketplace/internal/middleware"
	"github.com/openbasket/marketplace/internal/models"
	"github.com/openbasket/marketplace/internal/publisher"
	"github.com/openbasket/marketplace/internal/service"
)

const (
	serviceName = "marketplace-server"
	serviceID   = "marketplace-server-1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var (
		store     db.Store
		catalog   db.CatalogReader
		analytics *db.AnalyticsStore
	)

	switch cfg.Storage {
	case config.StorageMemory:
		memStore := db.NewMemoryStore()
		memStore.SeedProducts(demoCatalog())
		store = memStore
		catalog = memStore
		log.Println("✅ Using in-memory store (demo catalog seeded)")

	default:
		database, err := db.NewPostgresDB(
			cfg.Postgres.Host, cfg.Postgres.Port,
			cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName,
		)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		store = db.NewPostgresStore(database)
		catalog = db.NewPostgresCatalog(database)
		analytics = db.NewAnalyticsStore(database)
	}

	// Optional Redis catalog cache
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled() {
		redisCache, err = cache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.TTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		catalog = db.NewCachedCatalog(catalog, redisCache)
	}

	// Optional RabbitMQ event publishing
	var orderPublisher *publisher.OrderPublisher
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := messaging.NewRabbitMQ(
			cfg.RabbitMQ.Host, cfg.RabbitMQ.Port,
			cfg.RabbitMQ.User, cfg.RabbitMQ.Password,
		)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rabbitMQ.Close()

		orderPublisher, err = publisher.NewOrderPublisher(rabbitMQ)
		if err != nil {
			log.Fatalf("Failed to create publisher: %v", err)
		}

		if redisCache != nil {
			go startCacheInvalidator(rabbitMQ, redisCache)
		}
	}

	// Optional Consul registration
	if cfg.Consul.Enabled() {
		consul, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
		if err != nil {
			log.Fatalf("Failed to connect to Consul: %v", err)
		}

		port, _ := strconv.Atoi(cfg.Server.Port)
		err = consul.Register(discovery.ServiceConfig{
			Name: serviceName,
			ID:   serviceID,
			Port: port,
			Tags: []string{"api", "orders"},
		})
		if err != nil {
			log.Fatalf("Failed to register service: %v", err)
		}
		defer consul.Deregister(serviceID)
	}

	orderService := service.NewOrderService(store, publisherOrNil(orderPublisher))

	orderHandler := handlers.NewOrderHandler(orderService)
	productHandler := handlers.NewProductHandler(catalog)

	router := gin.Default()

	router.GET("/health", orderHandler.HealthCheck)
	router.GET("/products", productHandler.ListProducts)
	router.GET("/products/:id", productHandler.GetProduct)

	authed := router.Group("/", middleware.Principal())
	authed.POST("/orders", middleware.RequireRole(models.RoleCustomer), orderHandler.PlaceOrder)
	authed.GET("/orders", orderHandler.ListOrders)
	authed.GET("/orders/:id", orderHandler.GetOrder)
	authed.PATCH("/vendor-orders/:id/status", middleware.RequireRole(models.RoleVendor), orderHandler.UpdateVendorOrderStatus)

	// Analytics reads aggregate SQL directly; not available on the
	// in-memory store.
	if analytics != nil {
		analyticsHandler := handlers.NewAnalyticsHandler(analytics)
		authed.GET("/analytics/vendor-revenue", middleware.RequireRole(models.RoleAdmin), analyticsHandler.VendorRevenue)
		authed.GET("/analytics/top-products", middleware.RequireRole(models.RoleAdmin), analyticsHandler.TopProducts)
		authed.GET("/analytics/average-order-value", middleware.RequireRole(models.RoleAdmin), analyticsHandler.AverageOrderValue)
		authed.GET("/analytics/low-stock", middleware.RequireRole(models.RoleVendor), analyticsHandler.LowStock)
		authed.GET("/analytics/daily-sales", middleware.RequireRole(models.RoleVendor), analyticsHandler.DailySales)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 %s starting on http://localhost:%s (storage=%s)", serviceName, cfg.Server.Port, cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func startCacheInvalidator(mq *messaging.RabbitMQ, redisCache *cache.RedisCache) {
	messages, err := mq.Consume(publisher.OrderCreatedQueue)
	if err != nil {
		log.Fatalf("Failed to consume messages: %v", err)
	}

	invalidator := consumer.NewCacheInvalidator(redisCache)
	invalidator.ProcessOrderCreated(messages)
}

// publisherOrNil keeps the service's nil check honest: a typed nil pointer
// must not masquerade as a non-nil EventPublisher.
func publisherOrNil(p *publisher.OrderPublisher) service.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

// demoCatalog seeds the in-memory store so the server is usable without
// Postgres.
func demoCatalog() []models.Product {
	return []models.Product{
		{ID: "p-1", Name: "Ceramic Mug", Price: 14.50, Stock: 120, Category: "Kitchen", VendorID: "v-blue"},
		{ID: "p-2", Name: "Walnut Cutting Board", Price: 39.00, Stock: 35, Category: "Kitchen", VendorID: "v-blue"},
		{ID: "p-3", Name: "Linen Tote Bag", Price: 22.00, Stock: 80, Category: "Accessories", VendorID: "v-green"},
		{ID: "p-4", Name: "Beeswax Candle Set", Price: 18.75, Stock: 60, Category: "Home", VendorID: "v-green"},
		{ID: "p-5", Name: "Leather Journal", Price: 27.90, Stock: 45, Category: "Stationery", VendorID: "v-red"},
	}
}
